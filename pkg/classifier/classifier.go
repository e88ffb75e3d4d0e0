// Package classifier is the C2 gateway to the upstream ML classification
// service: an HTTP/JSON client with a label-mapping adapter and a
// fallback result on timeout or upstream failure.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// Result is the normalized output of Classify. Degraded is true when the
// upstream call failed or timed out and the 0.3-confidence fallback was
// substituted; callers must record this as a history warning but never
// treat it as an error.
type Result struct {
	Category    string
	Priority    models.Priority
	IssueType   models.IssueType
	Confidence  Confidence
	Degraded    bool
	DegradedErr error
}

// Confidence holds the per-axis posterior the upstream model assigned to
// its winning label.
type Confidence struct {
	Category  float64
	Priority  float64
	IssueType float64
}

// Min returns the smallest of the three axis confidences, used by the
// orchestrator's needs-clarification check.
func (c Confidence) Min() float64 {
	m := c.Category
	if c.Priority < m {
		m = c.Priority
	}
	if c.IssueType < m {
		m = c.IssueType
	}
	return m
}

// Gateway calls the classifier's POST /predict endpoint.
type Gateway struct {
	baseURL string
	client  *http.Client
}

// New builds a Gateway with the given request timeout.
func New(baseURL string, timeout time.Duration) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type predictResponse struct {
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	ProblemType string `json:"problem_type"`
	Confidence  struct {
		Category    float64 `json:"category"`
		Priority    float64 `json:"priority"`
		ProblemType float64 `json:"problem_type"`
	} `json:"confidence"`
}

// fallback is the degraded-path result: category General, priority
// Medium, issue-type Complex, all confidences 0.3.
func fallback(cause error) Result {
	return Result{
		Category:   "General",
		Priority:   models.PriorityMedium,
		IssueType:  models.IssueTypeComplex,
		Confidence: Confidence{Category: 0.3, Priority: 0.3, IssueType: 0.3},
		Degraded:   true, DegradedErr: cause,
	}
}

// Classify normalizes subject/body, calls the upstream model, and maps
// its labels into deskcore's canonical enums. It never returns an error
// for upstream unavailability — that is signaled via Result.Degraded —
// but does return InvalidInput when both fields are empty after trim.
func (g *Gateway) Classify(ctx context.Context, subject, body string) (Result, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" && body == "" {
		return Result{}, errs.New(errs.InvalidInput, "classifier: subject and body both empty")
	}

	reqBody, err := json.Marshal(predictRequest{Subject: subject, Body: body})
	if err != nil {
		return fallback(err), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/predict", bytes.NewReader(reqBody))
	if err != nil {
		return fallback(err), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fallback(err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallback(fmt.Errorf("classifier: upstream status %d", resp.StatusCode)), nil
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fallback(err), nil
	}

	return Result{
		Category:  parsed.Category,
		Priority:  mapPriority(parsed.Priority),
		IssueType: mapIssueType(parsed.ProblemType),
		Confidence: Confidence{
			Category:  parsed.Confidence.Category,
			Priority:  parsed.Confidence.Priority,
			IssueType: parsed.Confidence.ProblemType,
		},
	}, nil
}

// mapIssueType adapts the upstream label vocabulary (which includes
// Russian problem-type names) to the canonical IssueType enum. Unknown
// strings fall back to Complex per the spec's narrow typed adapter rule.
func mapIssueType(label string) models.IssueType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "typical", "типовой", "типичный":
		return models.IssueTypeTypical
	case "simple", "простой":
		return models.IssueTypeSimple
	case "complex", "сложный":
		return models.IssueTypeComplex
	default:
		return models.IssueTypeComplex
	}
}

// mapPriority adapts upstream priority labels, defaulting unknown
// strings to Medium.
func mapPriority(label string) models.Priority {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low", "низкий":
		return models.PriorityLow
	case "medium", "средний":
		return models.PriorityMedium
	case "high", "высокий":
		return models.PriorityHigh
	case "critical", "критический":
		return models.PriorityCritical
	default:
		return models.PriorityMedium
	}
}
