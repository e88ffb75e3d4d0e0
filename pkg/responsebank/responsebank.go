// Package responsebank loads the bilingual canned-response corpus and
// answers nearest-neighbor lookups over it (component C1).
//
// There is no vector-search or embedding-model library in the examples
// this was grounded on; DESIGN.md documents this package as a
// deliberate standard-library exception. Encoding is a deterministic
// hashed bag-of-words vector, L2-normalized so that cosine similarity
// reduces to a dot product — the same shape the source ml service uses
// with real sentence-transformer embeddings, just with a hand-rolled
// encoder standing in for the model.
package responsebank

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/5knew/deskcore/pkg/models"
)

const vectorDim = 256

// Entry is one loaded response with its embedding.
type entry struct {
	ResponseID string
	Category   string
	Language   models.Language
	Text       string
	Keywords   []string
	Vector     []float64
}

// Index is the immutable, in-memory nearest-neighbor structure built by
// Build. Readers never lock: the index is never mutated after Build
// returns.
type Index struct {
	entries []entry
}

// Result is one ranked Search hit.
type Result struct {
	ResponseID string
	Text       string
	Category   string
	Language   models.Language
	Keywords   []string
	Similarity float64
}

type cachePayload struct {
	ContentHash string
	Entries     []entry
}

// Build produces embeddings for every response in both its RU and KZ
// text, normalizes them, and assembles the flat index. cacheDir (if
// non-empty) is checked first: the cache is reused only when its stored
// content hash matches contentHash, otherwise it is rebuilt and
// atomically rewritten.
func Build(responses []ResponseSource, cacheDir, contentHash string) (*Index, error) {
	if cacheDir != "" {
		if idx, ok := loadCache(cacheDir, contentHash); ok {
			return idx, nil
		}
	}

	if len(responses) == 0 {
		return nil, fmt.Errorf("responsebank: no responses to index")
	}

	var entries []entry
	for _, r := range responses {
		if strings.TrimSpace(r.RU) != "" {
			entries = append(entries, entry{
				ResponseID: r.ID, Category: r.Category, Language: models.LanguageRU,
				Text: r.RU, Keywords: r.Keywords, Vector: encode(r.RU),
			})
		}
		if strings.TrimSpace(r.KZ) != "" {
			entries = append(entries, entry{
				ResponseID: r.ID, Category: r.Category, Language: models.LanguageKK,
				Text: r.KZ, Keywords: r.Keywords, Vector: encode(r.KZ),
			})
		}
	}

	idx := &Index{entries: entries}
	if cacheDir != "" {
		_ = saveCache(cacheDir, contentHash, entries)
	}
	return idx, nil
}

// ResponseSource is the raw shape loaded from the C1 content file.
type ResponseSource struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
	RU       string   `json:"ru"`
	KZ       string   `json:"kz"`
}

// LoadContentFile reads and parses the JSON response-bank content file
// and returns its entries alongside a content hash used for cache
// invalidation. An absent or empty file is an initialization error;
// cmd/deskcore then runs with no index, so auto-reply stays disabled.
func LoadContentFile(path string) ([]ResponseSource, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("responsebank: content file unavailable: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("responsebank: content file is empty")
	}

	var payload struct {
		Responses []ResponseSource `json:"responses"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, "", fmt.Errorf("responsebank: invalid content file: %w", err)
	}
	if len(payload.Responses) == 0 {
		return nil, "", fmt.Errorf("responsebank: content file has no responses")
	}

	sum := sha256.Sum256(data)
	return payload.Responses, fmt.Sprintf("%x", sum), nil
}

// Search encodes the query, retrieves the top k*5 nearest neighbors,
// filters by language when supplied, re-ranks with the keyword boost and
// category-mismatch penalty, then returns the top k.
func Search(idx *Index, queryText string, language *models.Language, category string, k int) []Result {
	if idx == nil || len(idx.entries) == 0 || k <= 0 {
		return nil
	}

	qvec := encode(queryText)
	qLower := strings.ToLower(queryText)

	type scored struct {
		e   entry
		sim float64
	}
	var candidates []scored
	for _, e := range idx.entries {
		if language != nil && e.Language != *language {
			continue
		}
		candidates = append(candidates, scored{e: e, sim: cosine(qvec, e.Vector)})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })

	fanout := k * 5
	if fanout > len(candidates) {
		fanout = len(candidates)
	}
	candidates = candidates[:fanout]

	for i := range candidates {
		c := &candidates[i]
		matches := 0
		for _, kw := range c.e.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(qLower, strings.ToLower(kw)) {
				matches++
			}
		}
		boost := math.Min(float64(matches)*0.05, 0.15)
		c.sim += boost

		if category != "" && !strings.EqualFold(c.e.Category, category) {
			switch c.e.Language {
			case models.LanguageKK:
				c.sim -= 0.05
			default:
				c.sim -= 0.10
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if k > len(candidates) {
		k = len(candidates)
	}

	results := make([]Result, 0, k)
	for _, c := range candidates[:k] {
		results = append(results, Result{
			ResponseID: c.e.ResponseID,
			Text:       c.e.Text,
			Category:   c.e.Category,
			Language:   c.e.Language,
			Keywords:   c.e.Keywords,
			Similarity: c.sim,
		})
	}
	return results
}

// encode turns text into an L2-normalized hashed bag-of-words vector.
func encode(text string) []float64 {
	vec := make([]float64, vectorDim)
	for _, tok := range tokenize(text) {
		h := fnv1a(tok)
		vec[h%vectorDim] += 1.0
	}
	return normalize(vec)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func fnv1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func normalize(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func loadCache(dir, contentHash string) (*Index, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "index.gob"))
	if err != nil {
		return nil, false
	}
	var payload cachePayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, false
	}
	if payload.ContentHash != contentHash {
		return nil, false
	}
	return &Index{entries: payload.Entries}, true
}

// saveCache writes the index atomically: it builds the full file in a
// temp path and renames it into place, so a crash mid-write never leaves
// a corrupt cache for the next startup to load.
func saveCache(dir, contentHash string, entries []entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cachePayload{ContentHash: contentHash, Entries: entries}); err != nil {
		return err
	}
	tmp := filepath.Join(dir, ".index.gob.tmp")
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, "index.gob"))
}
