package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5knew/deskcore/pkg/models"
)

func TestClassify_MapsForeignLabels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"category":     "Billing",
			"priority":     "High",
			"problem_type": "Типовой",
			"confidence":   map[string]float64{"category": 0.9, "priority": 0.8, "problem_type": 0.85},
		})
	}))
	defer srv.Close()

	g := New(srv.URL, time.Second)
	res, err := g.Classify(context.Background(), "Invoice question", "When is my bill due?")
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, models.IssueTypeTypical, res.IssueType)
	assert.Equal(t, models.PriorityHigh, res.Priority)
	assert.InDelta(t, 0.85, res.Confidence.IssueType, 0.0001)
}

func TestClassify_UnknownLabelDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"category": "Mystery", "priority": "???", "problem_type": "???",
			"confidence": map[string]float64{"category": 0.3, "priority": 0.3, "problem_type": 0.3},
		})
	}))
	defer srv.Close()

	g := New(srv.URL, time.Second)
	res, err := g.Classify(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, res.Priority)
	assert.Equal(t, models.IssueTypeComplex, res.IssueType)
}

func TestClassify_UpstreamUnreachable_Degrades(t *testing.T) {
	g := New("http://127.0.0.1:1", 50*time.Millisecond)
	res, err := g.Classify(context.Background(), "subject", "body")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, "General", res.Category)
	assert.Equal(t, models.PriorityMedium, res.Priority)
	assert.Equal(t, models.IssueTypeComplex, res.IssueType)
	assert.Equal(t, 0.3, res.Confidence.Min())
}

func TestClassify_EmptyInput(t *testing.T) {
	g := New("http://example.invalid", time.Second)
	_, err := g.Classify(context.Background(), "  ", "")
	assert.Error(t, err)
}
