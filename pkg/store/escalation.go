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

// EscalationCandidateIDs returns a snapshot of open, not-yet-escalated
// ticket ids whose sla-deadline falls within window of now. The sweep
// loop re-verifies each one individually before acting, so this snapshot
// read takes no locks.
func (s *Store) EscalationCandidateIDs(ctx context.Context, asOf time.Time, window time.Duration) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM tickets
		 WHERE is_escalated = false
		   AND status NOT IN ($1, $2)
		   AND sla_deadline IS NOT NULL
		   AND sla_deadline > $3
		   AND sla_deadline <= $4`,
		models.StatusClosed, models.StatusAutoResolved, asOf, asOf.Add(window))
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list escalation candidates", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan candidate id", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EscalateTicket opens a short transaction, row-locks the ticket, and
// re-verifies is-escalated=false before promoting its priority one step,
// recomputing sla-deadline from the ticket's original created-at, and
// latching is-escalated irreversibly. If another sweep instance (or a
// concurrent UpdateTicket) already escalated it, this is a no-op and
// escalated=false is returned — safe to call redundantly across loop
// instances or repeated sweeps.
func (s *Store) EscalateTicket(ctx context.Context, id string, asOf time.Time) (escalated bool, ticket *models.Ticket, history *models.TicketHistory, notification *models.Notification, err error) {
	tx, txErr := s.db.BeginTx(ctx, nil)
	if txErr != nil {
		return false, nil, nil, nil, errs.Wrap(errs.Unavailable, "begin escalation tx", txErr)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, ticketSelect+" WHERE id = $1 FOR UPDATE", id)
	t, scanErr := scanTicket(row)
	if scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return false, nil, nil, nil, nil
		}
		return false, nil, nil, nil, scanErr
	}

	if t.IsEscalated || t.Status.IsTerminal() || t.Priority == nil {
		return false, t, nil, nil, tx.Commit()
	}

	oldPriority := *t.Priority
	newPriority := oldPriority.Next()
	deadline := t.CreatedAt.Add(models.SLADuration(newPriority))

	t.Priority = &newPriority
	t.SLADeadline = &deadline
	t.IsEscalated = true
	t.UpdatedAt = asOf

	_, execErr := tx.ExecContext(ctx,
		`UPDATE tickets SET priority=$1, sla_deadline=$2, is_escalated=true, updated_at=$3 WHERE id=$4 AND is_escalated=false`,
		t.Priority, t.SLADeadline, t.UpdatedAt, t.ID)
	if execErr != nil {
		return false, nil, nil, nil, errs.Wrap(errs.Unavailable, "escalate ticket", execErr)
	}

	h := &models.TicketHistory{
		ID: NewID(), TicketID: t.ID, Action: models.HistoryEscalated,
		OldValue: strPtr(string(oldPriority)), NewValue: strPtr(string(newPriority)), CreatedAt: asOf,
	}
	if err := insertHistory(ctx, tx, h); err != nil {
		return false, nil, nil, nil, err
	}

	n := &models.Notification{
		ID: NewID(), RecipientID: t.AuthorUserID, TicketID: &t.ID, Type: models.NotificationTicketUpdated,
		Title: fmt.Sprintf("Ticket #%s escalated", shortID(t.ID)), Message: "Your ticket's priority was escalated due to an approaching deadline.",
		CreatedAt: asOf,
	}
	if err := s.insertNotification(ctx, tx, n); err != nil {
		return false, nil, nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return false, nil, nil, nil, errs.Wrap(errs.Unavailable, "commit escalation tx", err)
	}
	return true, t, h, n, nil
}

func strPtr(s string) *string { return &s }
