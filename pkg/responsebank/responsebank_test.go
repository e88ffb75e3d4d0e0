package responsebank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5knew/deskcore/pkg/models"
)

func sample() []ResponseSource {
	return []ResponseSource{
		{
			ID: "billing-1", Category: "Billing", Keywords: []string{"invoice", "счет"},
			RU: "Ваш счет будет выставлен в начале месяца, оплата списывается автоматически.",
			KZ: "Сіздің шотыңыз ай басында жасалады, төлем автоматты түрде алынады.",
		},
		{
			ID: "tech-1", Category: "TechSupport", Keywords: []string{"password", "пароль"},
			RU: "Пожалуйста, сбросьте пароль через страницу восстановления доступа.",
			KZ: "Құпия сөзді қалпына келтіру бетінен ауыстырыңыз.",
		},
	}
}

func TestBuildAndSearch_LanguageFilter(t *testing.T) {
	idx, err := Build(sample(), "", "hash1")
	require.NoError(t, err)

	ru := models.LanguageRU
	results := Search(idx, "когда придет счет на оплату", &ru, "", 3)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, models.LanguageRU, r.Language)
	}
}

func TestSearch_KeywordBoostOrdering(t *testing.T) {
	idx, err := Build(sample(), "", "hash1")
	require.NoError(t, err)

	ru := models.LanguageRU
	results := Search(idx, "не могу войти, забыл пароль от аккаунта", &ru, "", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "tech-1", results[0].ResponseID)
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil, "", "hash1")
	assert.Error(t, err)
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx1, err := Build(sample(), dir, "hash-a")
	require.NoError(t, err)
	require.NotNil(t, idx1)

	idx2, err := Build(nil, dir, "hash-a")
	require.NoError(t, err)
	assert.Len(t, idx2.entries, len(idx1.entries))
}
