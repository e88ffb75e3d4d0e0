package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// CreateFeedback inserts the one-shot CSAT rating for a ticket. A second
// submission for the same ticket is rejected as Conflict rather than
// silently overwriting the first, per the unique index on ticket-id.
func (s *Store) CreateFeedback(ctx context.Context, ticketID string, userID *string, rating int, comment *string) (*models.Feedback, error) {
	f := &models.Feedback{
		ID: NewID(), TicketID: ticketID, UserID: userID, Rating: rating, Comment: comment, CreatedAt: now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, ticket_id, user_id, rating, comment, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.TicketID, f.UserID, f.Rating, f.Comment, f.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, errs.New(errs.Conflict, "feedback already submitted for this ticket")
		}
		return nil, errs.Wrap(errs.Unavailable, "insert feedback", err)
	}
	return f, nil
}

// GetFeedback fetches the feedback row for a ticket, if any.
func (s *Store) GetFeedback(ctx context.Context, ticketID string) (*models.Feedback, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ticket_id, user_id, rating, comment, created_at FROM feedback WHERE ticket_id = $1`, ticketID)
	var f models.Feedback
	var userID, comment sql.NullString
	if err := row.Scan(&f.ID, &f.TicketID, &userID, &f.Rating, &comment, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.New(errs.NotFound, "feedback not found")
		}
		return nil, errs.Wrap(errs.Unavailable, "get feedback", err)
	}
	if userID.Valid {
		f.UserID = &userID.String
	}
	if comment.Valid {
		f.Comment = &comment.String
	}
	return &f, nil
}
