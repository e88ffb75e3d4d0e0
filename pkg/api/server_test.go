package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5knew/deskcore/pkg/autoreply"
	"github.com/5knew/deskcore/pkg/classifier"
	"github.com/5knew/deskcore/pkg/config"
	"github.com/5knew/deskcore/pkg/metrics"
	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/orchestrator"
	"github.com/5knew/deskcore/pkg/responsebank"
	"github.com/5knew/deskcore/pkg/store"
	testdb "github.com/5knew/deskcore/test/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	client := testdb.NewTestClient(t)
	st := store.New(client.DB())

	bank, err := responsebank.Build([]responsebank.ResponseSource{
		{ID: "placeholder", Category: "General", RU: "Спасибо, мы скоро ответим."},
	}, "", "")
	require.NoError(t, err)

	cls := classifier.New("http://127.0.0.1:1", 0)
	thresholds := autoreply.Thresholds{SimilarityRU: 0.70, SimilarityKK: 0.65, VerbatimSimilarity: 0.80}
	orch := orchestrator.New(st, cls, bank, thresholds, "test-model")
	agg := metrics.New(st, config.MetricsConfig{CSATResponseTimeBonusSeconds: 0.8})

	return NewRouter(NewServer(st, orch, agg)), st
}

func doJSON(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateTicket_ThenGet(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(r, http.MethodPost, "/tickets/create", createTicketRequest{
		Source:       models.SourcePortal,
		AuthorUserID: "user-1",
		Body:         "my internet is down",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var ticket models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))
	assert.NotEmpty(t, ticket.ID)

	rec = doJSON(r, http.MethodGet, "/tickets/"+ticket.ID, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTicket_RejectsMissingBody(t *testing.T) {
	r, _ := newTestServer(t)

	rec := doJSON(r, http.MethodPost, "/tickets/create", createTicketRequest{
		Source:       models.SourcePortal,
		AuthorUserID: "user-1",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTicket_RequiresActorHeader(t *testing.T) {
	r, st := newTestServer(t)

	author, err := st.UpsertAuthorByID(context.Background(), "user-2", "", "")
	require.NoError(t, err)
	ticket := &models.Ticket{
		ID: store.NewID(), Source: models.SourcePortal, AuthorUserID: author.ID,
		Body: "x", Language: models.LanguageRU, AIConfidence: 0.9, Status: models.StatusNew,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreateTicket(context.Background(), store.CreateTicketInput{Ticket: ticket}))

	rec := doJSON(r, http.MethodPut, "/tickets/"+ticket.ID, updateTicketRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	closed := models.StatusClosed
	rec = doJSON(r, http.MethodPut, "/tickets/"+ticket.ID, updateTicketRequest{Status: &closed},
		map[string]string{"X-User-Id": author.ID})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics_EmptyStore(t *testing.T) {
	r, _ := newTestServer(t)
	rec := doJSON(r, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
