package metrics

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
	"github.com/5knew/deskcore/pkg/config"
	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/orchestrator"
	"github.com/5knew/deskcore/pkg/responsebank"
	"github.com/5knew/deskcore/pkg/store"
	testdb "github.com/5knew/deskcore/test/database"
)

func fakeClassifierServer(category, priority, problemType string, conf float64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"category": category, "priority": priority, "problem_type": problemType,
			"confidence": map[string]float64{"category": conf, "priority": conf, "problem_type": conf},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestCompute_CountsAndRates(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.DB())

	bank, err := responsebank.Build([]responsebank.ResponseSource{
		{ID: "r1", Category: "Billing", Keywords: []string{"invoice"}, RU: "Ваш счет доступен в личном кабинете."},
	}, "", "")
	require.NoError(t, err)
	thresholds := autoreply.Thresholds{SimilarityRU: 0.70, SimilarityKK: 0.65, VerbatimSimilarity: 0.80}

	highConf := fakeClassifierServer("Billing", "Low", "typical", 0.95)
	defer highConf.Close()
	lowConf := fakeClassifierServer("Billing", "Low", "complex", 0.40)
	defer lowConf.Close()

	autoOrch := orchestrator.New(st, classifier.New(highConf.URL, 0), bank, thresholds, "test-model")
	_, err = autoOrch.Submit(context.Background(), orchestrator.SubmitRequest{
		Source: models.SourcePortal, AuthorUserID: "user-auto", Subject: "invoice question",
		Body: "Ваш счет доступен в личном кабинете, подскажите пожалуйста по счету",
	})
	require.NoError(t, err)

	manualOrch := orchestrator.New(st, classifier.New(lowConf.URL, 0), bank, thresholds, "test-model")
	_, err = manualOrch.Submit(context.Background(), orchestrator.SubmitRequest{
		Source: models.SourcePortal, AuthorUserID: "user-manual", Subject: "help",
		Body: "something odd is happening and I do not know what",
	})
	require.NoError(t, err)

	agg := New(st, config.MetricsConfig{CSATResponseTimeBonusSeconds: 0.8})
	snap, err := agg.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 1, snap.AutoClosed)
	assert.InDelta(t, 0.5, snap.AutoResolutionRate, 0.001)
	assert.InDelta(t, 0.5, snap.NeedsClarificationRate, 0.001)
	assert.GreaterOrEqual(t, snap.CSAT, 70.0)
	assert.LessOrEqual(t, snap.CSAT, 100.0)
}

func TestCompute_EmptyStoreHasZeroRates(t *testing.T) {
	client := testdb.NewTestClient(t)
	st := store.New(client.DB())

	agg := New(st, config.MetricsConfig{CSATResponseTimeBonusSeconds: 0.8})
	snap, err := agg.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0.0, snap.AutoResolutionRate)
	// base 70 + speed bonus (10 - 10*0.8 = 2), no auto-resolution bonus.
	assert.Equal(t, 72.0, snap.CSAT)
}
