package retrieval

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() []Document {
	return []Document{
		{Title: "Brute force", Content: "password spraying and credential stuffing against ssh"},
		{Title: "Phishing", Content: "spear-phishing attachment with macro documents"},
		{Title: "Ransomware", Content: "data encrypted for impact after shadow copy deletion"},
	}
}

func TestSearchRanksByOverlap(t *testing.T) {
	idx := New(testDocs())

	results := idx.Search("password spraying against ssh", 3)
	require.NotEmpty(t, results)
	assert.Equal(t, "Brute force", results[0].Title)
	assert.Greater(t, results[0].Score, 0.0)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchSelfSimilarity(t *testing.T) {
	docs := testDocs()
	idx := New(docs)

	results := idx.Search(docs[1].Content, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "Phishing", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearchFallbackResult(t *testing.T) {
	idx := New([]Document{{Title: "Only", Content: "completely unrelated words"}})

	results := idx.Search("zzz qqq xxx", 3)
	require.Len(t, results, 1)
	assert.Equal(t, "Only", results[0].Title)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := New(nil)
	assert.Nil(t, idx.Search("anything", 3))
	assert.Equal(t, 0, idx.Len())
}

func TestSearchTopKTruncation(t *testing.T) {
	idx := New(testDocs())

	all := idx.Search("and", 10)
	assert.LessOrEqual(t, len(all), 10)

	one := idx.Search("and", 1)
	assert.Len(t, one, 1)

	// Non-positive topK yields exactly one result.
	zero := idx.Search("and", 0)
	assert.Len(t, zero, 1)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	idx := New([]Document{
		{Title: "first", Content: "alpha beta"},
		{Title: "second", Content: "alpha beta"},
	})
	results := idx.Search("alpha beta", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Title)
	assert.Equal(t, "second", results[1].Title)
}

func TestSearchEmptyContentDocument(t *testing.T) {
	idx := New([]Document{{Title: "", Content: ""}})
	results := idx.Search("query", 3)
	require.Len(t, results, 1)
	assert.Equal(t, "Section", results[0].Title)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestSnippetTruncation(t *testing.T) {
	long := strings.Repeat("word ", 100) // 500 chars
	idx := New([]Document{{Title: "Long", Content: long}})

	results := idx.Search("word", 1)
	require.Len(t, results, 1)
	snip := results[0].Snippet

	assert.True(t, strings.HasSuffix(snip, "…"))
	body := strings.TrimSuffix(snip, "…")
	assert.LessOrEqual(t, utf8.RuneCountInString(body), SnippetLimit)
	// Truncation never splits a word.
	assert.False(t, strings.HasSuffix(body, "wor"))
	for _, part := range strings.Fields(body) {
		assert.Equal(t, "word", part)
	}
}

func TestSnippetShortContentUntouched(t *testing.T) {
	idx := New([]Document{{Title: "Short", Content: "short content"}})
	results := idx.Search("short", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "short content", results[0].Snippet)
}

func TestTokenizeHyphenRuns(t *testing.T) {
	vec := termFrequencies("Spear-Phishing spear-phishing SPEAR-PHISHING")
	assert.Equal(t, map[string]int{"spear-phishing": 3}, vec)
}

func TestNormEmptyVector(t *testing.T) {
	assert.Equal(t, 1.0, norm(nil))
	assert.Equal(t, 1.0, norm(map[string]int{}))
}

func TestLoadCorpusYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	content := `
documents:
  - title: "Doc one"
    content: "first passage"
  - title: "Doc two"
    content: "second passage"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	docs, err := LoadCorpusYAML(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Doc one", docs[0].Title)

	_, err = LoadCorpusYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultCorpusIndexes(t *testing.T) {
	idx := New(DefaultCorpus())
	require.Greater(t, idx.Len(), 0)

	results := idx.Search("password spraying brute force ssh", 3)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Title, "Brute Force")
}