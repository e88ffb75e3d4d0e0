package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// CreateTicketInput bundles every row the ingestion orchestrator writes
// atomically: the ticket itself, its one-time classifier prediction, an
// optional auto-response, and the Created history + notification rows.
type CreateTicketInput struct {
	Ticket        *models.Ticket
	Prediction    *models.AIPrediction
	AutoResponse  *models.AutoResponse
	History       []*models.TicketHistory
	Notifications []*models.Notification
}

// CreateTicket performs the five-way insert of §4.6 step 7 as a single
// transaction: ticket, prediction, optional auto-response, history, and
// notifications are all observable together or not at all.
func (s *Store) CreateTicket(ctx context.Context, in CreateTicketInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "begin create ticket tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	t := in.Ticket
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tickets (
			id, source, author_user_id, subject, body, language, category_id, priority, issue_type,
			ai_confidence, assigned_department_id, assigned_operator_id, status, auto_resolved,
			needs_clarification, confidence_warning, sla_deadline, is_escalated, created_at, updated_at, closed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		t.ID, t.Source, t.AuthorUserID, nullStr(t.Subject), t.Body, t.Language, t.CategoryID, t.Priority, t.IssueType,
		t.AIConfidence, t.AssignedDepartmentID, t.AssignedOperatorID, t.Status, t.AutoResolved,
		t.NeedsClarification, t.ConfidenceWarning, t.SLADeadline, t.IsEscalated, t.CreatedAt, t.UpdatedAt, t.ClosedAt,
	)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "insert ticket", err)
	}

	if in.Prediction != nil {
		p := in.Prediction
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ml_models (id, name, version) VALUES ($1, $1, $1) ON CONFLICT (id) DO NOTHING`, p.ModelID)
		if err != nil {
			return errs.Wrap(errs.Unavailable, "register model", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ai_predictions (id, ticket_id, model_id, predicted_category_id, predicted_priority, predicted_issue_type, confidence, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			p.ID, p.TicketID, p.ModelID, p.PredictedCategoryID, p.PredictedPriority, p.PredictedIssueType, p.Confidence, p.CreatedAt)
		if err != nil {
			return errs.Wrap(errs.Unavailable, "insert prediction", err)
		}
	}

	if in.AutoResponse != nil {
		a := in.AutoResponse
		_, err = tx.ExecContext(ctx,
			`INSERT INTO auto_responses (id, ticket_id, response_text, is_successful, created_at) VALUES ($1,$2,$3,$4,$5)`,
			a.ID, a.TicketID, a.ResponseText, a.IsSuccessful, a.CreatedAt)
		if err != nil {
			return errs.Wrap(errs.Unavailable, "insert auto response", err)
		}
	}

	for _, h := range in.History {
		if err := insertHistory(ctx, tx, h); err != nil {
			return err
		}
	}

	for _, n := range in.Notifications {
		if err := s.insertNotification(ctx, tx, n); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Unavailable, "commit create ticket tx", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, h *models.TicketHistory) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ticket_history (id, ticket_id, actor_user_id, action, old_value, new_value, description, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		h.ID, h.TicketID, h.ActorUserID, h.Action, h.OldValue, h.NewValue, h.Description, h.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "insert history", err)
	}
	return nil
}

func (s *Store) insertNotification(ctx context.Context, tx *sql.Tx, n *models.Notification) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, ticket_id, type, title, message, is_read, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.RecipientID, n.TicketID, n.Type, n.Title, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "insert notification", err)
	}
	if s.onNotify != nil {
		if err := s.onNotify(ctx, tx, n); err != nil {
			return errs.Wrap(errs.Unavailable, "publish notification", err)
		}
	}
	return nil
}

// GetTicket fetches a single ticket by id.
func (s *Store) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return scanTicket(s.db.QueryRowContext(ctx, ticketSelect+" WHERE id = $1", id))
}

// getTicketTx is GetTicket scoped to an open transaction, used by
// UpdateTicket and the escalation sweep to read-then-write consistently.
func getTicketTx(ctx context.Context, tx *sql.Tx, id string) (*models.Ticket, error) {
	return scanTicket(tx.QueryRowContext(ctx, ticketSelect+" WHERE id = $1", id))
}

const ticketSelect = `SELECT id, source, author_user_id, coalesce(subject, ''), body, language, category_id, priority,
	issue_type, ai_confidence, assigned_department_id, assigned_operator_id, status, auto_resolved,
	needs_clarification, confidence_warning, sla_deadline, is_escalated, created_at, updated_at, closed_at
	FROM tickets`

func scanTicket(row *sql.Row) (*models.Ticket, error) {
	var t models.Ticket
	var categoryID, assignedDept, assignedOp, confWarning sql.NullString
	var priority, issueType sql.NullString
	var slaDeadline, closedAt sql.NullTime

	err := row.Scan(&t.ID, &t.Source, &t.AuthorUserID, &t.Subject, &t.Body, &t.Language, &categoryID, &priority,
		&issueType, &t.AIConfidence, &assignedDept, &assignedOp, &t.Status, &t.AutoResolved,
		&t.NeedsClarification, &confWarning, &slaDeadline, &t.IsEscalated, &t.CreatedAt, &t.UpdatedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.New(errs.NotFound, "ticket not found")
		}
		return nil, errs.Wrap(errs.Unavailable, "scan ticket", err)
	}

	if categoryID.Valid {
		t.CategoryID = &categoryID.String
	}
	if priority.Valid {
		p := models.Priority(priority.String)
		t.Priority = &p
	}
	if issueType.Valid {
		it := models.IssueType(issueType.String)
		t.IssueType = &it
	}
	if assignedDept.Valid {
		t.AssignedDepartmentID = &assignedDept.String
	}
	if assignedOp.Valid {
		t.AssignedOperatorID = &assignedOp.String
	}
	if confWarning.Valid {
		t.ConfidenceWarning = &confWarning.String
	}
	if slaDeadline.Valid {
		d := slaDeadline.Time
		t.SLADeadline = &d
	}
	if closedAt.Valid {
		c := closedAt.Time
		t.ClosedAt = &c
	}
	return &t, nil
}

// TicketFilters narrows GET /tickets.
type TicketFilters struct {
	Status       string
	CategoryID   string
	CategoryName string
	DateFrom     *time.Time
	DateTo       *time.Time
	Skip         int
	Limit        int
}

// ListTickets returns tickets matching the given filters, newest first.
func (s *Store) ListTickets(ctx context.Context, f TicketFilters) ([]*models.Ticket, error) {
	query := ticketSelect + " WHERE 1=1"
	var args []any
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if f.Status != "" {
		query += " AND status = " + arg(f.Status)
	}
	if f.CategoryID != "" {
		query += " AND category_id = " + arg(f.CategoryID)
	}
	if f.CategoryName != "" {
		query += " AND category_id IN (SELECT id FROM categories WHERE lower(name) = lower(" + arg(f.CategoryName) + "))"
	}
	if f.DateFrom != nil {
		query += " AND created_at >= " + arg(*f.DateFrom)
	}
	if f.DateTo != nil {
		query += " AND created_at <= " + arg(*f.DateTo)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += " ORDER BY created_at DESC LIMIT " + arg(limit) + " OFFSET " + arg(f.Skip)

	return queryTickets(ctx, s.db, query, args...)
}

// SearchTickets full-text matches the words of q against subject and body
// (the 'simple' configuration) using the GIN index built by
// database.CreateSearchIndexes. Only whole words match; a fragment of a
// word does not.
func (s *Store) SearchTickets(ctx context.Context, q string) ([]*models.Ticket, error) {
	return queryTickets(ctx, s.db,
		ticketSelect+` WHERE to_tsvector('simple', coalesce(subject, '') || ' ' || body) @@ plainto_tsquery('simple', $1)
		 ORDER BY created_at DESC LIMIT 100`, q)
}

// ListOverdue returns open tickets whose sla-deadline has passed.
func (s *Store) ListOverdue(ctx context.Context) ([]*models.Ticket, error) {
	return queryTickets(ctx, s.db,
		ticketSelect+` WHERE sla_deadline IS NOT NULL AND sla_deadline < $1 AND status NOT IN ($2, $3)
		 ORDER BY sla_deadline ASC`, now(), models.StatusClosed, models.StatusAutoResolved)
}

func queryTickets(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, query string, args ...any) ([]*models.Ticket, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "query tickets", err)
	}
	defer rows.Close()

	var out []*models.Ticket
	for rows.Next() {
		t, err := scanTicketRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func scanTicketRows(rows *sql.Rows) (*models.Ticket, error) {
	var t models.Ticket
	var categoryID, assignedDept, assignedOp, confWarning sql.NullString
	var priority, issueType sql.NullString
	var slaDeadline, closedAt sql.NullTime

	err := rows.Scan(&t.ID, &t.Source, &t.AuthorUserID, &t.Subject, &t.Body, &t.Language, &categoryID, &priority,
		&issueType, &t.AIConfidence, &assignedDept, &assignedOp, &t.Status, &t.AutoResolved,
		&t.NeedsClarification, &confWarning, &slaDeadline, &t.IsEscalated, &t.CreatedAt, &t.UpdatedAt, &closedAt)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "scan ticket row", err)
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.String
	}
	if priority.Valid {
		p := models.Priority(priority.String)
		t.Priority = &p
	}
	if issueType.Valid {
		it := models.IssueType(issueType.String)
		t.IssueType = &it
	}
	if assignedDept.Valid {
		t.AssignedDepartmentID = &assignedDept.String
	}
	if assignedOp.Valid {
		t.AssignedOperatorID = &assignedOp.String
	}
	if confWarning.Valid {
		t.ConfidenceWarning = &confWarning.String
	}
	if slaDeadline.Valid {
		d := slaDeadline.Time
		t.SLADeadline = &d
	}
	if closedAt.Valid {
		c := closedAt.Time
		t.ClosedAt = &c
	}
	return &t, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
