package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus() []Document {
	return []Document{
		{Kind: RefFile, Locator: "internal/export/csv.go", Content: "csv export writer"},
		{Kind: RefFile, Locator: "internal/export/json.go", Content: "json export writer"},
		{Kind: RefIssue, Locator: "issue#12", Content: "CSV export drops the header row\nreported by onboarding"},
		{Kind: RefOutput, Locator: "output:spec:12", Content: "spec for csv export"},
		{Kind: RefFile, Locator: "internal/auth/token.go", Content: "token rotation"},
	}
}

func TestKeywordRetriever_Retrieve(t *testing.T) {
	r := NewKeywordRetriever(testCorpus()...)

	refs, err := r.Retrieve(context.Background(), "csv export", 10)
	require.NoError(t, err)
	require.Len(t, refs, 4)

	// Full matches first, then partial, ties broken on locator.
	assert.Equal(t, "internal/export/csv.go", refs[0].Locator)
	assert.Equal(t, "issue#12", refs[1].Locator)
	assert.Equal(t, "output:spec:12", refs[2].Locator)
	assert.Equal(t, "internal/export/json.go", refs[3].Locator)
	assert.InDelta(t, 0.5, refs[3].Score, 1e-9)
	assert.InDelta(t, 1.0, refs[0].Score, 1e-9)
	assert.Equal(t, "CSV export drops the header row", refs[1].Summary)
}

func TestKeywordRetriever_CaseInsensitive(t *testing.T) {
	r := NewKeywordRetriever(testCorpus()...)
	refs, err := r.Retrieve(context.Background(), "TOKEN Rotation", 10)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "internal/auth/token.go", refs[0].Locator)
}

func TestKeywordRetriever_RespectsBound(t *testing.T) {
	r := NewKeywordRetriever(testCorpus()...)
	refs, err := r.Retrieve(context.Background(), "export", 2)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestKeywordRetriever_EmptyQuery(t *testing.T) {
	r := NewKeywordRetriever(testCorpus()...)
	for _, q := range []string{"", "   ", "-- --"} {
		_, err := r.Retrieve(context.Background(), q, 5)
		assert.ErrorIs(t, err, ErrEmptyQuery, "query %q", q)
	}
}

func TestKeywordRetriever_Deterministic(t *testing.T) {
	r := NewKeywordRetriever(testCorpus()...)
	first, err := r.Retrieve(context.Background(), "export writer", 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Retrieve(context.Background(), "export writer", 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestKeywordRetriever_Index(t *testing.T) {
	r := NewKeywordRetriever()
	refs, err := r.Retrieve(context.Background(), "csv", 5)
	require.NoError(t, err)
	assert.Empty(t, refs)

	r.Index(Document{Kind: RefFile, Locator: "a.go", Content: "csv parsing"})
	refs, err = r.Retrieve(context.Background(), "csv", 5)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestSummarize_TruncatesLongFirstLine(t *testing.T) {
	long := strings.Repeat("x", 300)
	assert.Len(t, summarize(long), 140)
	assert.Equal(t, "first", summarize("  first\nsecond line"))
}
