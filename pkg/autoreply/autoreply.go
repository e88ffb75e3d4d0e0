// Package autoreply implements the auto-reply engine (C3): language
// detection, response-bank lookup, the confidence-threshold verdict, and
// the safety filter that gates what is ever returned verbatim.
package autoreply

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/responsebank"
)

// kazakhLetters are the Cyrillic letters unique to Kazakh orthography;
// their presence in a query is the language-detection signal.
var kazakhLetters = map[rune]struct{}{
	'ә': {}, 'ғ': {}, 'қ': {}, 'ң': {}, 'ө': {}, 'ұ': {}, 'ү': {}, 'һ': {}, 'і': {},
}

// forbiddenIntent matches templates that would leak unsafe instructions
// if ever echoed back, in either supported language.
var forbiddenIntent = regexp.MustCompile(
	`(?i)(изменить.*базу данных|предостав(ить|ьте).*пароль|modify the database|reveal (the )?password|дерекқорды өзгерту|құпия сөзді (көрсету|беру))`)

const maxReplyCodePoints = 1000

// Thresholds holds the confidence gates used by GenerateDraft; sourced
// from config so the RU/KK similarity floors and the verbatim cutoff
// remain tunable without a code change.
type Thresholds struct {
	SimilarityRU       float64
	SimilarityKK       float64
	VerbatimSimilarity float64
}

// Draft is the result of GenerateDraft.
type Draft struct {
	CanAutoReply bool
	Text         string
	MatchedID    string
	Similarity   float64
	Reason       string
	Language     models.Language
}

// GenerateDraft implements §4.3's algorithm: detect language, ask the
// response bank for candidates (scoped to category when known, so the
// category-mismatch penalty in responsebank.Search can apply), gate on
// the per-language similarity threshold and issue-type, and run the
// safety filter before returning anything close to verbatim.
func GenerateDraft(idx *responsebank.Index, query string, category string, issueType *models.IssueType, language *models.Language, th Thresholds) Draft {
	lang := detectLanguage(query, language)

	threshold := th.SimilarityRU
	if lang == models.LanguageKK {
		threshold = th.SimilarityKK
	}

	candidates := responsebank.Search(idx, query, &lang, category, 3)
	if len(candidates) == 0 {
		return Draft{
			CanAutoReply: false,
			Text:         defaultResponse(lang),
			Similarity:   0.0,
			Reason:       "no-match",
			Language:     lang,
		}
	}

	best := candidates[0]
	canReply := issueType != nil && *issueType == models.IssueTypeTypical && best.Similarity >= threshold

	text := best.Text
	if best.Similarity < th.VerbatimSimilarity {
		text = greeting(lang) + text
	}

	if forbiddenIntent.MatchString(text) {
		return Draft{
			CanAutoReply: false,
			Text:         defaultResponse(lang),
			MatchedID:    best.ResponseID,
			Similarity:   best.Similarity,
			Reason:       "unsafe-template",
			Language:     lang,
		}
	}

	return Draft{
		CanAutoReply: canReply,
		Text:         truncate(text, maxReplyCodePoints),
		MatchedID:    best.ResponseID,
		Similarity:   best.Similarity,
		Language:     lang,
	}
}

func detectLanguage(query string, declared *models.Language) models.Language {
	if declared != nil {
		return *declared
	}
	for _, r := range query {
		if _, ok := kazakhLetters[r]; ok {
			return models.LanguageKK
		}
	}
	return models.LanguageRU
}

func greeting(lang models.Language) string {
	if lang == models.LanguageKK {
		return "Сәлеметсіз бе! "
	}
	return "Здравствуйте! "
}

func defaultResponse(lang models.Language) string {
	if lang == models.LanguageKK {
		return "Өтінішіңіз үшін рахмет, маман сізбен хабарласады."
	}
	return "Спасибо за обращение, с вами свяжется специалист."
}

// truncate limits s to maxCP unicode code points, matching the spec's
// "1000 code points" rule rather than a byte-length cutoff.
func truncate(s string, maxCP int) string {
	if utf8.RuneCountInString(s) <= maxCP {
		return s
	}
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count >= maxCP {
			break
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}
