// Package retrieval implements a small lexical context index: one sparse
// bag-of-words term-frequency vector per document, ranked against a query by
// cosine similarity. The index is built once from a fixed corpus and is
// immutable afterwards, so concurrent searches need no synchronization.
package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/threatbridge/threatbridge/internal/metrics"
)

// tokenRx matches word runs, keeping hyphenated terms together
// ("spear-phishing" is one token).
var tokenRx = regexp.MustCompile(`[\p{L}\p{N}_-]+`)

// SnippetLimit is the maximum snippet length in runes, before the ellipsis.
const SnippetLimit = 260

// DefaultTopK is the result count used when callers pass no explicit limit.
const DefaultTopK = 3

// Document is one corpus entry.
type Document struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// Result is one ranked search hit.
type Result struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index holds the corpus with precomputed vectors and norms.
type Index struct {
	docs    []Document
	vectors []map[string]int
	norms   []float64
}

// New builds an Index. Vectors and norms are computed once here and never
// invalidated.
func New(docs []Document) *Index {
	idx := &Index{
		docs:    make([]Document, 0, len(docs)),
		vectors: make([]map[string]int, 0, len(docs)),
		norms:   make([]float64, 0, len(docs)),
	}
	for _, d := range docs {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			title = "Section"
		}
		content := strings.TrimSpace(d.Content)
		vec := termFrequencies(content)
		idx.docs = append(idx.docs, Document{Title: title, Content: content})
		idx.vectors = append(idx.vectors, vec)
		idx.norms = append(idx.norms, norm(vec))
	}
	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int { return len(idx.docs) }

// Search ranks documents by cosine similarity to the query, most similar
// first, truncated to topK (a non-positive topK yields exactly one result).
// Only strictly positive scores qualify; when nothing matches a non-empty
// corpus, the first document is returned with score zero so callers always
// get at least one context passage. Ties keep insertion order.
func (idx *Index) Search(query string, topK int) []Result {
	if len(idx.docs) == 0 {
		return nil
	}
	metrics.RetrievalSearches.Inc()

	qvec := termFrequencies(query)
	qnorm := norm(qvec)

	var scored []Result
	for i, d := range idx.docs {
		sim := cosine(qvec, qnorm, idx.vectors[i], idx.norms[i])
		if sim > 0 {
			scored = append(scored, Result{
				Title:   d.Title,
				Content: d.Content,
				Snippet: snippet(d.Content, SnippetLimit),
				Score:   sim,
			})
		}
	}
	if len(scored) == 0 {
		d := idx.docs[0]
		scored = append(scored, Result{
			Title:   d.Title,
			Content: d.Content,
			Snippet: snippet(d.Content, SnippetLimit),
			Score:   0.0,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK <= 0 {
		topK = 1
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// termFrequencies tokenizes text into lower-cased word/hyphen runs and
// counts them.
func termFrequencies(text string) map[string]int {
	if text == "" {
		return nil
	}
	vec := make(map[string]int)
	for _, tok := range tokenRx.FindAllString(text, -1) {
		vec[strings.ToLower(tok)]++
	}
	return vec
}

// norm returns a vector's Euclidean norm, substituting 1.0 for all-zero
// vectors so cosine similarity stays well-defined on empty content.
func norm(vec map[string]int) float64 {
	sum := 0.0
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return 1.0
	}
	return math.Sqrt(sum)
}

// cosine computes the similarity of two term-frequency vectors over their
// shared terms only. Empty or disjoint vectors score zero.
func cosine(a map[string]int, normA float64, b map[string]int, normB float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	dot := 0.0
	for tok, av := range a {
		if bv, ok := b[tok]; ok {
			dot += float64(av) * float64(bv)
		}
	}
	if dot == 0 {
		return 0.0
	}
	return dot / (normA * normB)
}

// snippet truncates content to limit runes at the nearest preceding word
// boundary, appending an ellipsis when anything was cut.
func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
