// Package routing implements the deterministic C4 destination policy: a
// pure function from classifier output to a queue, with no side effects
// and no dependency on the store.
package routing

import (
	"fmt"
	"strings"

	"github.com/5knew/deskcore/pkg/models"
)

const confidenceFloor = 0.70
const typicalConfidenceFloor = 0.75

// Input bundles the classifier axes the policy decides over.
type Input struct {
	Category           string
	Priority           models.Priority
	IssueType          models.IssueType
	ConfidenceCategory float64
	ConfidencePriority float64
	ConfidenceIssueType float64
}

// Decision is the routing outcome: the destination queue, a
// human-readable note, and (rule 1) which axes were low-confidence.
type Decision struct {
	Queue              models.Queue
	Message            string
	NeedsClarification bool
	LowConfidenceAxes  []string
}

// Route applies the six ordered rules of §4.4, first match wins.
func Route(in Input) Decision {
	var low []string
	if in.ConfidenceCategory < confidenceFloor {
		low = append(low, fmt.Sprintf("category (%.0f%%)", in.ConfidenceCategory*100))
	}
	if in.ConfidencePriority < confidenceFloor {
		low = append(low, fmt.Sprintf("priority (%.0f%%)", in.ConfidencePriority*100))
	}
	if in.ConfidenceIssueType < confidenceFloor {
		low = append(low, fmt.Sprintf("issue-type (%.0f%%)", in.ConfidenceIssueType*100))
	}

	// Rule 1: any axis below the confidence floor forces manual review.
	if len(low) > 0 {
		return Decision{
			Queue:              models.QueueManualReview,
			Message:            "low confidence on: " + strings.Join(low, ", "),
			NeedsClarification: true,
			LowConfidenceAxes:  low,
		}
	}

	// Rule 2: typical issues with strong confidence go to automation.
	if in.IssueType == models.IssueTypeTypical && in.ConfidenceIssueType >= typicalConfidenceFloor {
		return Decision{Queue: models.QueueAutomated, Message: "routed to automated reply"}
	}

	// Rule 3: typical issues with weaker confidence still skip manual review.
	if in.IssueType == models.IssueTypeTypical {
		return Decision{Queue: models.QueueGeneralSupport, Message: "typical issue below auto-reply confidence"}
	}

	// Rule 4: high-urgency tickets bypass the category-based queues.
	if in.Priority == models.PriorityHigh || in.Priority == models.PriorityCritical {
		return Decision{Queue: models.QueueHighPriority, Message: "high priority ticket"}
	}

	// Rule 5: route by category substring when confidence is adequate.
	if in.ConfidenceCategory >= confidenceFloor {
		return Decision{Queue: categoryQueue(in.Category), Message: "routed by category"}
	}

	// Rule 6: fallback.
	return Decision{Queue: models.QueueGeneralSupport, Message: "category uncertain"}
}

// categoryQueue maps a free-text category label to a fixed queue via
// substring match, preserving both the English and Russian terms the
// upstream classifier can emit.
func categoryQueue(category string) models.Queue {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "billing"), strings.Contains(c, "платеж"):
		return models.QueueBilling
	case strings.Contains(c, "technical"), strings.Contains(c, "it"), strings.Contains(c, "техническая"):
		return models.QueueTechSupport
	case strings.Contains(c, "hr"), strings.Contains(c, "кадр"):
		return models.QueueHR
	case strings.Contains(c, "customer"), strings.Contains(c, "сервис"), strings.Contains(c, "клиентский"):
		return models.QueueCustomerService
	default:
		return models.QueueGeneralSupport
	}
}
