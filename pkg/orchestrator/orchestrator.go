// Package orchestrator implements the ingestion pipeline (C6): the single
// entry point that turns a raw ticket submission into a classified,
// routed, possibly auto-resolved ticket, written atomically by pkg/store.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/5knew/deskcore/pkg/autoreply"
	"github.com/5knew/deskcore/pkg/classifier"
	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/responsebank"
	"github.com/5knew/deskcore/pkg/routing"
	"github.com/5knew/deskcore/pkg/store"
)

const lowConfidenceFloor = 0.70

// Orchestrator composes C2-C5 into the single atomic ingestion path.
type Orchestrator struct {
	store        *store.Store
	classifier   *classifier.Gateway
	responseBank *responsebank.Index
	thresholds   autoreply.Thresholds
	modelID      string
}

// New builds an Orchestrator. modelID identifies the classifier model
// version recorded on every AIPrediction row.
func New(st *store.Store, cls *classifier.Gateway, bank *responsebank.Index, th autoreply.Thresholds, modelID string) *Orchestrator {
	return &Orchestrator{store: st, classifier: cls, responseBank: bank, thresholds: th, modelID: modelID}
}

// SubmitRequest carries a raw ticket submission.
type SubmitRequest struct {
	Source       models.Source
	AuthorUserID string
	AuthorEmail  string
	AuthorName   string
	Subject      string
	Body         string
	Language     *models.Language
}

// Submit runs the §4.6 ingestion pipeline and returns the persisted ticket.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*models.Ticket, error) {
	if req.Body == "" {
		return nil, errs.New(errs.InvalidInput, "body is required")
	}
	if req.AuthorUserID == "" {
		return nil, errs.New(errs.InvalidInput, "author is required")
	}

	author, err := o.store.UpsertAuthorByID(ctx, req.AuthorUserID, req.AuthorEmail, req.AuthorName)
	if err != nil {
		return nil, err
	}

	pred, err := o.classifier.Classify(ctx, req.Subject, req.Body)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "classify ticket", err)
	}

	// ai-confidence is the problem-type confidence specifically, not an
	// aggregate across axes; needsClarification still looks at the
	// weakest of the three axes since any one of them being shaky is
	// reason enough to flag the ticket.
	aiConfidence := pred.Confidence.IssueType
	needsClarification := pred.Confidence.Min() < lowConfidenceFloor
	var confidenceWarning *string
	if needsClarification {
		w := lowConfidenceWarning(pred.Confidence)
		confidenceWarning = &w
	}

	decision := routing.Route(routing.Input{
		Category:            pred.Category,
		Priority:            pred.Priority,
		IssueType:           pred.IssueType,
		ConfidenceCategory:  pred.Confidence.Category,
		ConfidencePriority:  pred.Confidence.Priority,
		ConfidenceIssueType: pred.Confidence.IssueType,
	})

	now := time.Now().UTC()
	t := &models.Ticket{
		ID:                 store.NewID(),
		Source:             req.Source,
		AuthorUserID:       author.ID,
		Subject:            req.Subject,
		Body:               req.Body,
		CategoryID:         nil,
		Priority:           &pred.Priority,
		IssueType:          &pred.IssueType,
		AIConfidence:       aiConfidence,
		Status:             models.StatusNew,
		NeedsClarification: needsClarification || decision.NeedsClarification,
		ConfidenceWarning:  confidenceWarning,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.Language != nil {
		t.Language = *req.Language
	} else {
		t.Language = models.LanguageRU
	}

	if cat, err := o.store.FindCategoryByName(ctx, pred.Category); err == nil {
		t.CategoryID = &cat.ID
	} else if !errs.Is(err, errs.NotFound) {
		return nil, err
	}

	var autoResponse *models.AutoResponse
	queue := decision.Queue
	if queue == models.QueueAutomated {
		draft := autoreply.GenerateDraft(o.responseBank, req.Subject+" "+req.Body, pred.Category, &pred.IssueType, &t.Language, o.thresholds)
		if draft.CanAutoReply {
			t.Status = models.StatusAutoResolved
			t.AutoResolved = true
			t.ClosedAt = &now
			autoResponse = &models.AutoResponse{
				ID: store.NewID(), TicketID: t.ID, ResponseText: draft.Text, IsSuccessful: true, CreatedAt: now,
			}
		} else {
			queue = models.QueueGeneralSupport
			t.Status = models.StatusNew
		}
	}

	deptID, err := o.resolveDepartment(ctx, queue)
	if err != nil {
		return nil, err
	}
	t.AssignedDepartmentID = deptID

	if t.Priority != nil {
		deadline := t.CreatedAt.Add(models.SLADuration(*t.Priority))
		t.SLADeadline = &deadline
	}

	historyDesc := "ticket created, routed to " + string(queue)
	if pred.Degraded {
		historyDesc += " (degraded classification: " + pred.DegradedErr.Error() + ")"
		slog.Warn("orchestrator: classifier degraded", "ticket_id", t.ID, "error", pred.DegradedErr)
	}
	history := &models.TicketHistory{
		ID: store.NewID(), TicketID: t.ID, ActorUserID: &author.ID, Action: models.HistoryCreated,
		Description: &historyDesc, CreatedAt: now,
	}

	admins, err := o.store.ListAdmins(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	notifications := make([]*models.Notification, 0, len(admins))
	for _, a := range admins {
		notifications = append(notifications, &models.Notification{
			ID: store.NewID(), RecipientID: a.ID, TicketID: &t.ID, Type: models.NotificationTicketCreated,
			Title:   fmt.Sprintf("New ticket #%s", shortID(t.ID)),
			Message: t.Subject,
			CreatedAt: now,
		})
	}

	aiPrediction := &models.AIPrediction{
		ID: store.NewID(), TicketID: t.ID, ModelID: o.modelID,
		PredictedCategoryID: t.CategoryID, PredictedPriority: &pred.Priority, PredictedIssueType: &pred.IssueType,
		Confidence: aiConfidence, CreatedAt: now,
	}

	if err := o.store.CreateTicket(ctx, store.CreateTicketInput{
		Ticket:        t,
		Prediction:    aiPrediction,
		AutoResponse:  autoResponse,
		History:       []*models.TicketHistory{history},
		Notifications: notifications,
	}); err != nil {
		return nil, err
	}

	return t, nil
}

func (o *Orchestrator) resolveDepartment(ctx context.Context, queue models.Queue) (*string, error) {
	deptName := queueDepartmentName(queue)
	if deptName == "" {
		return nil, nil
	}
	departments, err := o.store.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range departments {
		if d.Name == deptName {
			id := d.ID
			return &id, nil
		}
	}
	return nil, nil
}

func queueDepartmentName(q models.Queue) string {
	switch q {
	case models.QueueBilling:
		return "Billing"
	case models.QueueTechSupport:
		return "TechSupport"
	case models.QueueHR:
		return "HR"
	case models.QueueCustomerService:
		return "CustomerService"
	default:
		return ""
	}
}

func lowConfidenceWarning(c classifier.Confidence) string {
	var fields []string
	if c.Category < lowConfidenceFloor {
		fields = append(fields, fmt.Sprintf("category (%.0f%%)", c.Category*100))
	}
	if c.Priority < lowConfidenceFloor {
		fields = append(fields, fmt.Sprintf("priority (%.0f%%)", c.Priority*100))
	}
	if c.IssueType < lowConfidenceFloor {
		fields = append(fields, fmt.Sprintf("issue-type (%.0f%%)", c.IssueType*100))
	}
	return "low confidence on: " + joinComma(fields)
}

func joinComma(xs []string) string {
	out := ""
	for i, x := range xs {
		if i > 0 {
			out += ", "
		}
		out += x
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
