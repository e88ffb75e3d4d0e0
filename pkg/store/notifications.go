package store

import (
	"context"
	"database/sql"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// ListNotifications returns a user's notifications, newest first,
// optionally filtered to unread-only.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	query := `SELECT id, recipient_id, ticket_id, type, title, message, is_read, created_at
		FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += " AND is_read = false"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list notifications", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		var ticketID sql.NullString
		if err := rows.Scan(&n.ID, &n.RecipientID, &ticketID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan notification", err)
		}
		if ticketID.Valid {
			n.TicketID = &ticketID.String
		}
		out = append(out, &n)
	}
	return out, nil
}

// CountUnreadNotifications returns the unread count for a user.
func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND is_read = false`, userID).Scan(&count)
	if err != nil {
		return 0, errs.Wrap(errs.Unavailable, "count unread notifications", err)
	}
	return count, nil
}

// MarkNotificationRead flips is-read for a single notification.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "mark notification read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.Internal, "rows affected", err)
	}
	if n == 0 {
		return errs.New(errs.NotFound, "notification not found")
	}
	return nil
}

// MarkAllNotificationsRead flips is-read for every unread notification
// belonging to a user.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND is_read = false`, userID)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "mark all notifications read", err)
	}
	return nil
}
