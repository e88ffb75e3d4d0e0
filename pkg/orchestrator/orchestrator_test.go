package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5knew/deskcore/pkg/autoreply"
	"github.com/5knew/deskcore/pkg/classifier"
	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/responsebank"
	"github.com/5knew/deskcore/pkg/store"
	testdb "github.com/5knew/deskcore/test/database"
)

func fakeClassifierServer(category, priority, problemType string, confCat, confPri, confProblem float64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"category": category, "priority": priority, "problem_type": problemType,
			"confidence": map[string]float64{"category": confCat, "priority": confPri, "problem_type": confProblem},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func defaultThresholds() autoreply.Thresholds {
	return autoreply.Thresholds{SimilarityRU: 0.70, SimilarityKK: 0.65, VerbatimSimilarity: 0.80}
}

// emptyBank builds a response bank with a single throwaway entry, used by
// tests that route away from the Automated queue and never consult it.
func emptyBank(t *testing.T) *responsebank.Index {
	idx, err := responsebank.Build([]responsebank.ResponseSource{
		{ID: "placeholder", Category: "General", RU: "Спасибо, мы скоро ответим."},
	}, "", "")
	require.NoError(t, err)
	return idx
}

func TestSubmit_HighConfidenceTypical_AutoResolves(t *testing.T) {
	srv := fakeClassifierServer("Billing", "Low", "typical", 0.95, 0.95, 0.95)
	defer srv.Close()

	bank, err := responsebank.Build([]responsebank.ResponseSource{
		{ID: "r1", Category: "Billing", Keywords: []string{"invoice"}, RU: "Ваш счет можно посмотреть в личном кабинете.", KZ: "Шотыңызды жеке кабинетте көре аласыз."},
	}, "", "")
	require.NoError(t, err)

	client := testdb.NewTestClient(t)
	st := store.New(client.DB())
	orch := New(st, classifier.New(srv.URL, 0), bank, defaultThresholds(), "test-model")

	ticket, err := orch.Submit(context.Background(), SubmitRequest{
		Source: models.SourcePortal, AuthorUserID: "user-1", Subject: "invoice question",
		Body: "Ваш счет можно посмотреть в личном кабинете, подскажите пожалуйста по счету",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAutoResolved, ticket.Status)
	assert.False(t, ticket.NeedsClarification)
	assert.NotNil(t, ticket.SLADeadline)
}

func TestSubmit_LowConfidence_NeedsClarification(t *testing.T) {
	srv := fakeClassifierServer("Billing", "Low", "complex", 0.40, 0.40, 0.40)
	defer srv.Close()

	client := testdb.NewTestClient(t)
	st := store.New(client.DB())
	orch := New(st, classifier.New(srv.URL, 0), emptyBank(t), defaultThresholds(), "test-model")

	ticket, err := orch.Submit(context.Background(), SubmitRequest{
		Source: models.SourcePortal, AuthorUserID: "user-2", Subject: "help",
		Body: "something is broken please help",
	})
	require.NoError(t, err)
	assert.True(t, ticket.NeedsClarification)
	assert.NotNil(t, ticket.ConfidenceWarning)
	assert.Equal(t, models.StatusNew, ticket.Status)
}

func TestSubmit_UpstreamDown_DegradesButStillCreates(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.DB())
	orch := New(st, classifier.New("http://127.0.0.1:1", 0), emptyBank(t), defaultThresholds(), "test-model")

	ticket, err := orch.Submit(context.Background(), SubmitRequest{
		Source: models.SourcePortal, AuthorUserID: "user-3", Subject: "down",
		Body: "classifier is unreachable",
	})
	require.NoError(t, err)
	assert.NotNil(t, ticket.ConfidenceWarning)

	history, err := st.ListHistory(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, *history[0].Description, "degraded classification")
}

func TestSubmit_RejectsEmptyBody(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.DB())
	orch := New(st, classifier.New("http://127.0.0.1:1", 0), emptyBank(t), defaultThresholds(), "test-model")

	_, err := orch.Submit(context.Background(), SubmitRequest{Source: models.SourcePortal, AuthorUserID: "user-4"})
	assert.Error(t, err)
}
