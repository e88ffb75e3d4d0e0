package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5knew/deskcore/pkg/config"
	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/store"
	testdb "github.com/5knew/deskcore/test/database"
)

func newTestTicket(t *testing.T, st *store.Store, priority models.Priority, createdAt, deadline time.Time) *models.Ticket {
	t.Helper()
	author, err := st.UpsertAuthorByID(context.Background(), store.NewID(), "", "")
	require.NoError(t, err)

	ticket := &models.Ticket{
		ID:           store.NewID(),
		Source:       models.SourcePortal,
		AuthorUserID: author.ID,
		Subject:      "sweep fixture",
		Body:         "sweep fixture",
		Language:     models.LanguageRU,
		Priority:     &priority,
		AIConfidence: 0.9,
		Status:       models.StatusNew,
		SLADeadline:  &deadline,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	require.NoError(t, st.CreateTicket(context.Background(), store.CreateTicketInput{Ticket: ticket}))
	return ticket
}

func TestRunSweep_EscalatesTicketsWithinWindow(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.DB())
	svc := NewService(config.SLAConfig{EscalationWindow: 12 * time.Hour}, st)

	now := time.Now().UTC()
	due := newTestTicket(t, st, models.PriorityHigh, now.Add(-1*time.Hour), now.Add(1*time.Hour))
	farOut := newTestTicket(t, st, models.PriorityHigh, now, now.Add(48*time.Hour))

	svc.runSweep(context.Background())

	updated, err := st.GetTicket(context.Background(), due.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsEscalated)
	assert.Equal(t, models.PriorityCritical, *updated.Priority)

	untouched, err := st.GetTicket(context.Background(), farOut.ID)
	require.NoError(t, err)
	assert.False(t, untouched.IsEscalated)
}

func TestRunSweep_IsIdempotent(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.DB())
	svc := NewService(config.SLAConfig{EscalationWindow: 12 * time.Hour}, st)

	now := time.Now().UTC()
	ticket := newTestTicket(t, st, models.PriorityLow, now.Add(-1*time.Hour), now.Add(1*time.Hour))

	svc.runSweep(context.Background())
	svc.runSweep(context.Background())

	updated, err := st.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, *updated.Priority)
	assert.True(t, updated.IsEscalated)
}

func TestRunSnapshot_RefreshesDailyStats(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.DB())
	svc := NewService(config.SLAConfig{}, st)

	now := time.Now().UTC()
	newTestTicket(t, st, models.PriorityMedium, now, now.Add(24*time.Hour))

	svc.runSnapshot(context.Background())

	trend, err := st.DailyTrend(context.Background(), now, 1)
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, 1, trend[0].TotalTickets)
}

func TestEvaluate(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(time.Hour)

	assert.Equal(t, StatusUnknown, Evaluate(nil, nil, now, time.Hour))
	assert.Equal(t, StatusOK, Evaluate(&deadline, nil, now, time.Minute))
	assert.Equal(t, StatusWarning, Evaluate(&deadline, nil, now, 2*time.Hour))

	past := now.Add(-time.Hour)
	assert.Equal(t, StatusOverdue, Evaluate(&past, nil, now, time.Hour))

	closedLate := deadline.Add(time.Minute)
	assert.Equal(t, StatusOverdue, Evaluate(&deadline, &closedLate, now, time.Hour))

	closedOnTime := deadline.Add(-time.Minute)
	assert.Equal(t, StatusMet, Evaluate(&deadline, &closedOnTime, now, time.Hour))
}
