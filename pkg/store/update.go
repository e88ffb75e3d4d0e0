package store

import (
	"context"
	"fmt"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// TicketPatch carries the fields UpdateTicket may change. A nil pointer
// means "leave unchanged"; a non-nil pointer (even to a zero value) is an
// explicit write.
type TicketPatch struct {
	Status             *models.Status
	Priority           *models.Priority
	CategoryID         *string
	AssignedOperatorID *string
	AssignedDepartmentID *string
}

// UpdateTicket reads the current row under a row lock, computes a diff
// against patch, and writes the ticket plus one history row per changed
// field in a single transaction. A no-op patch produces no history rows
// and leaves updated-at untouched.
func (s *Store) UpdateTicket(ctx context.Context, id string, patch TicketPatch, actor *models.User) (*models.Ticket, []*models.Notification, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Unavailable, "begin update tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var t models.Ticket
	row := tx.QueryRowContext(ctx, ticketSelect+" WHERE id = $1 FOR UPDATE", id)
	full, err := scanTicket(row)
	if err != nil {
		return nil, nil, err
	}
	t = *full

	if patch.Status != nil && *patch.Status == models.StatusClosed {
		if actor.Role != models.RoleAdmin && actor.ID != t.AuthorUserID {
			return nil, nil, errs.New(errs.Forbidden, "only the author or an admin may close this ticket")
		}
	}

	history, notifications, changed := diffAndHistory(&t, patch, actor)
	if !changed {
		return &t, nil, tx.Commit()
	}

	t.UpdatedAt = now()
	if patch.Status != nil && patch.Status.IsTerminal() {
		closedAt := now()
		t.ClosedAt = &closedAt
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tickets SET status=$1, priority=$2, category_id=$3, assigned_operator_id=$4, assigned_department_id=$5,
			sla_deadline=$6, is_escalated=$7, updated_at=$8, closed_at=$9 WHERE id=$10`,
		t.Status, t.Priority, t.CategoryID, t.AssignedOperatorID, t.AssignedDepartmentID,
		t.SLADeadline, t.IsEscalated, t.UpdatedAt, t.ClosedAt, t.ID)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Unavailable, "update ticket", err)
	}

	for _, h := range history {
		if err := insertHistory(ctx, tx, h); err != nil {
			return nil, nil, err
		}
	}
	for _, n := range notifications {
		if err := s.insertNotification(ctx, tx, n); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, errs.Wrap(errs.Unavailable, "commit update tx", err)
	}
	return &t, notifications, nil
}

// diffAndHistory mutates t in place to reflect patch, and returns one
// history row per changed field (never one with old-value == new-value)
// plus the notifications §4.8 requires for that change.
func diffAndHistory(t *models.Ticket, patch TicketPatch, actor *models.User) ([]*models.TicketHistory, []*models.Notification, bool) {
	var history []*models.TicketHistory
	var notifications []*models.Notification
	changed := false

	mkHistory := func(action models.HistoryAction, oldV, newV string) *models.TicketHistory {
		return &models.TicketHistory{
			ID: NewID(), TicketID: t.ID, ActorUserID: &actor.ID, Action: action,
			OldValue: &oldV, NewValue: &newV, CreatedAt: now(),
		}
	}

	if patch.Status != nil && *patch.Status != t.Status {
		old := string(t.Status)
		action := models.HistoryStatusChanged
		if *patch.Status == models.StatusClosed {
			action = models.HistoryClosed
		}
		history = append(history, mkHistory(action, old, string(*patch.Status)))
		if *patch.Status == models.StatusClosed {
			if actor.ID != t.AuthorUserID {
				notifications = append(notifications, notifyEvent(t, models.NotificationTicketClosed,
					fmt.Sprintf("Ticket #%s closed", shortID(t.ID)), "Your ticket has been closed.", t.AuthorUserID))
			}
		}
		t.Status = *patch.Status
		changed = true
	}

	if patch.Priority != nil && (t.Priority == nil || *t.Priority != *patch.Priority) {
		old := ""
		if t.Priority != nil {
			old = string(*t.Priority)
		}
		history = append(history, mkHistory(models.HistoryPriorityChanged, old, string(*patch.Priority)))
		t.Priority = patch.Priority
		deadline := t.CreatedAt.Add(models.SLADuration(*patch.Priority))
		t.SLADeadline = &deadline
		changed = true
	}

	if patch.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *patch.CategoryID) {
		old := ""
		if t.CategoryID != nil {
			old = *t.CategoryID
		}
		history = append(history, mkHistory(models.HistoryStatusChanged, old, *patch.CategoryID))
		t.CategoryID = patch.CategoryID
		changed = true
	}

	if patch.AssignedOperatorID != nil && (t.AssignedOperatorID == nil || *t.AssignedOperatorID != *patch.AssignedOperatorID) {
		old := ""
		if t.AssignedOperatorID != nil {
			old = *t.AssignedOperatorID
		}
		history = append(history, mkHistory(models.HistoryAssigned, old, *patch.AssignedOperatorID))
		t.AssignedOperatorID = patch.AssignedOperatorID
		notifications = append(notifications, notifyEvent(t, models.NotificationAssigned,
			fmt.Sprintf("Ticket #%s assigned to you", shortID(t.ID)), "A ticket has been assigned to you.", *patch.AssignedOperatorID))
		changed = true
	}

	if patch.AssignedDepartmentID != nil && (t.AssignedDepartmentID == nil || *t.AssignedDepartmentID != *patch.AssignedDepartmentID) {
		old := ""
		if t.AssignedDepartmentID != nil {
			old = *t.AssignedDepartmentID
		}
		history = append(history, mkHistory(models.HistoryAssigned, old, *patch.AssignedDepartmentID))
		t.AssignedDepartmentID = patch.AssignedDepartmentID
		changed = true
	}

	return history, notifications, changed
}

func notifyEvent(t *models.Ticket, typ models.NotificationType, title, message, recipient string) *models.Notification {
	return &models.Notification{
		ID: NewID(), RecipientID: recipient, TicketID: &t.ID, Type: typ,
		Title: title, Message: message, IsRead: false, CreatedAt: now(),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
