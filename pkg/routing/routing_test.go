package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/5knew/deskcore/pkg/models"
)

func TestRoute_LowConfidenceForcesManualReview(t *testing.T) {
	d := Route(Input{Category: "Billing", Priority: models.PriorityMedium, IssueType: models.IssueTypeComplex,
		ConfidenceCategory: 0.5, ConfidencePriority: 0.9, ConfidenceIssueType: 0.9})
	assert.Equal(t, models.QueueManualReview, d.Queue)
	assert.True(t, d.NeedsClarification)
	assert.Contains(t, d.LowConfidenceAxes[0], "category")
}

func TestRoute_TypicalHighConfidence_Automated(t *testing.T) {
	d := Route(Input{Category: "Billing", Priority: models.PriorityMedium, IssueType: models.IssueTypeTypical,
		ConfidenceCategory: 0.9, ConfidencePriority: 0.8, ConfidenceIssueType: 0.85})
	assert.Equal(t, models.QueueAutomated, d.Queue)
}

func TestRoute_TypicalLowConfidence_GeneralSupport(t *testing.T) {
	d := Route(Input{Category: "Billing", Priority: models.PriorityMedium, IssueType: models.IssueTypeTypical,
		ConfidenceCategory: 0.9, ConfidencePriority: 0.8, ConfidenceIssueType: 0.72})
	assert.Equal(t, models.QueueGeneralSupport, d.Queue)
}

func TestRoute_HighPriorityBeatsCategory(t *testing.T) {
	d := Route(Input{Category: "Other", Priority: models.PriorityCritical, IssueType: models.IssueTypeComplex,
		ConfidenceCategory: 0.9, ConfidencePriority: 0.9, ConfidenceIssueType: 0.9})
	assert.Equal(t, models.QueueHighPriority, d.Queue)
}

func TestRoute_CategorySubstringRussian(t *testing.T) {
	d := Route(Input{Category: "платеж", Priority: models.PriorityLow, IssueType: models.IssueTypeComplex,
		ConfidenceCategory: 0.9, ConfidencePriority: 0.9, ConfidenceIssueType: 0.9})
	assert.Equal(t, models.QueueBilling, d.Queue)
}

func TestRoute_UnmatchedCategoryFallsBackToGeneralSupport(t *testing.T) {
	d := Route(Input{Category: "Other", Priority: models.PriorityLow, IssueType: models.IssueTypeComplex,
		ConfidenceCategory: 0.70, ConfidencePriority: 0.9, ConfidenceIssueType: 0.9})
	assert.Equal(t, models.QueueGeneralSupport, d.Queue)
}

func TestRoute_BoundaryAtExactly070IsNotLowConfidence(t *testing.T) {
	d := Route(Input{Category: "Other", Priority: models.PriorityLow, IssueType: models.IssueTypeComplex,
		ConfidenceCategory: 0.70, ConfidencePriority: 0.70, ConfidenceIssueType: 0.70})
	assert.False(t, d.NeedsClarification)
}
