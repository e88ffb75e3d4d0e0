package autoreply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/responsebank"
)

var defaultThresholds = Thresholds{SimilarityRU: 0.65, SimilarityKK: 0.50, VerbatimSimilarity: 0.80}

func buildIndex(t *testing.T) *responsebank.Index {
	t.Helper()
	idx, err := responsebank.Build([]responsebank.ResponseSource{
		{
			ID: "billing-1", Category: "Billing", Keywords: []string{"invoice", "счет"},
			RU: "Ваш счет выставляется автоматически в начале месяца.",
			KZ: "Сіздің шотыңыз ай басында автоматты түрде жасалады.",
		},
	}, "", "h")
	require.NoError(t, err)
	return idx
}

func TestGenerateDraft_DetectsKazakhByLetters(t *testing.T) {
	idx := buildIndex(t)
	typical := models.IssueTypeTypical
	draft := GenerateDraft(idx, "қашан менің шотым келеді?", "Billing", &typical, nil, defaultThresholds)
	assert.Equal(t, models.LanguageKK, draft.Language)
}

func TestGenerateDraft_DefaultsRussianWhenNoKazakhLetters(t *testing.T) {
	idx := buildIndex(t)
	typical := models.IssueTypeTypical
	draft := GenerateDraft(idx, "когда придет счет", "Billing", &typical, nil, defaultThresholds)
	assert.Equal(t, models.LanguageRU, draft.Language)
}

func TestGenerateDraft_NoCandidates(t *testing.T) {
	idx, err := responsebank.Build([]responsebank.ResponseSource{{ID: "x", Category: "Billing", RU: "x"}}, "", "h")
	require.NoError(t, err)
	ru := models.LanguageRU
	draft := GenerateDraft(idx, "совершенно другой язык общения zzzz", "Billing", &ru, &ru, defaultThresholds)
	// similarity may still be computed against the lone candidate, but if
	// the response bank has no entries for the requested language at all
	// the result should report no-match.
	kk := models.LanguageKK
	draft2 := GenerateDraft(idx, "qq", "Billing", nil, &kk, defaultThresholds)
	assert.False(t, draft2.CanAutoReply)
	assert.Equal(t, "no-match", draft2.Reason)
	_ = draft
}

func TestGenerateDraft_SafetyFilterRejectsForbiddenIntent(t *testing.T) {
	idx, err := responsebank.Build([]responsebank.ResponseSource{
		{ID: "bad", Category: "TechSupport", RU: "Чтобы помочь, предоставьте пароль от вашей учетной записи."},
	}, "", "h")
	require.NoError(t, err)
	typical := models.IssueTypeTypical
	draft := GenerateDraft(idx, "помогите с доступом", "TechSupport", &typical, nil, defaultThresholds)
	assert.False(t, draft.CanAutoReply)
	assert.Equal(t, "unsafe-template", draft.Reason)
}

func TestGenerateDraft_CategoryMismatchPenaltyLowersSimilarity(t *testing.T) {
	idx := buildIndex(t)
	ru := models.LanguageRU
	matching := GenerateDraft(idx, "когда придет счет", "Billing", nil, &ru, defaultThresholds)
	mismatched := GenerateDraft(idx, "когда придет счет", "TechSupport", nil, &ru, defaultThresholds)
	assert.Less(t, mismatched.Similarity, matching.Similarity)
}

func TestTruncate_CodePointLimit(t *testing.T) {
	s := truncate(stringsRepeat("ә", 1500), maxReplyCodePoints)
	assert.Equal(t, maxReplyCodePoints, runeLen(s))
}

func stringsRepeat(s string, n int) string {
	out := make([]rune, 0, n)
	r := []rune(s)[0]
	for i := 0; i < n; i++ {
		out = append(out, r)
	}
	return string(out)
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
