package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// AddComment appends a TicketMessage, a CommentAdded history row, and the
// §4.8 fanout notifications in one transaction.
func (s *Store) AddComment(ctx context.Context, ticketID string, author *models.User, text string) (*models.TicketMessage, []*models.Notification, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Unavailable, "begin comment tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := getTicketTx(ctx, tx, ticketID)
	if err != nil {
		return nil, nil, err
	}

	msg := &models.TicketMessage{
		ID: NewID(), TicketID: ticketID, SenderUserID: author.ID, Text: text, CreatedAt: now(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ticket_messages (id, ticket_id, sender_user_id, text, created_at) VALUES ($1,$2,$3,$4,$5)`,
		msg.ID, msg.TicketID, msg.SenderUserID, msg.Text, msg.CreatedAt)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Unavailable, "insert comment", err)
	}

	desc := "comment added"
	history := &models.TicketHistory{
		ID: NewID(), TicketID: ticketID, ActorUserID: &author.ID, Action: models.HistoryCommentAdded,
		Description: &desc, CreatedAt: now(),
	}
	if err := insertHistory(ctx, tx, history); err != nil {
		return nil, nil, err
	}

	var notifications []*models.Notification
	if author.Role == models.RoleAdmin || author.Role == models.RoleEmployee {
		if author.ID != t.AuthorUserID {
			notifications = append(notifications, &models.Notification{
				ID: NewID(), RecipientID: t.AuthorUserID, TicketID: &t.ID, Type: models.NotificationAdminReply,
				Title:   fmt.Sprintf("Administrator replied to #%s", shortID(t.ID)),
				Message: text, CreatedAt: now(),
			})
		}
	} else {
		admins, err := listAdminsTx(ctx, tx, author.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, a := range admins {
			notifications = append(notifications, &models.Notification{
				ID: NewID(), RecipientID: a.ID, TicketID: &t.ID, Type: models.NotificationComment,
				Title:   fmt.Sprintf("New comment in #%s", shortID(t.ID)),
				Message: text, CreatedAt: now(),
			})
		}
	}

	for _, n := range notifications {
		if err := s.insertNotification(ctx, tx, n); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, errs.Wrap(errs.Unavailable, "commit comment tx", err)
	}
	return msg, notifications, nil
}

// ListComments returns a ticket's comment thread in chronological order.
func (s *Store) ListComments(ctx context.Context, ticketID string) ([]*models.TicketMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticket_id, sender_user_id, text, created_at FROM ticket_messages WHERE ticket_id = $1 ORDER BY created_at ASC`,
		ticketID)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list comments", err)
	}
	defer rows.Close()

	var out []*models.TicketMessage
	for rows.Next() {
		var m models.TicketMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.SenderUserID, &m.Text, &m.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan comment", err)
		}
		out = append(out, &m)
	}
	return out, nil
}

// ListHistory returns a ticket's audit trail in chronological order.
func (s *Store) ListHistory(ctx context.Context, ticketID string) ([]*models.TicketHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticket_id, actor_user_id, action, old_value, new_value, description, created_at
		 FROM ticket_history WHERE ticket_id = $1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list history", err)
	}
	defer rows.Close()

	var out []*models.TicketHistory
	for rows.Next() {
		var h models.TicketHistory
		var actor, oldVal, newVal, desc sql.NullString
		if err := rows.Scan(&h.ID, &h.TicketID, &actor, &h.Action, &oldVal, &newVal, &desc, &h.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan history", err)
		}
		if actor.Valid {
			h.ActorUserID = &actor.String
		}
		if oldVal.Valid {
			h.OldValue = &oldVal.String
		}
		if newVal.Valid {
			h.NewValue = &newVal.String
		}
		if desc.Valid {
			h.Description = &desc.String
		}
		out = append(out, &h)
	}
	return out, nil
}

func listAdminsTx(ctx context.Context, tx *sql.Tx, excludeID string) ([]*models.User, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, email, name, role, password_hash, coalesce(phone, ''), created_at FROM users WHERE role = $1 AND id <> $2`,
		models.RoleAdmin, excludeID)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list admins", err)
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.Phone, &u.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan admin", err)
		}
		out = append(out, &u)
	}
	return out, nil
}
