package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedding is a deterministic stand-in for a real embedding model: each
// of a fixed vocabulary of terms maps to one dimension.
func hashEmbedding() chromem.EmbeddingFunc {
	vocab := []string{"csv", "export", "auth", "token", "header"}
	return func(_ context.Context, text string) ([]float32, error) {
		lower := strings.ToLower(text)
		vec := make([]float32, len(vocab))
		for i, term := range vocab {
			if strings.Contains(lower, term) {
				vec[i] = 1
			}
		}
		// chromem normalizes on its side; a zero vector still needs one
		// non-zero component to be a valid embedding.
		vec = append(vec, 0.1)
		return vec, nil
	}
}

func TestVectorRetriever_Retrieve(t *testing.T) {
	r, err := NewVectorRetriever(hashEmbedding())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.Index(ctx,
		Document{Kind: RefFile, Locator: "internal/export/csv.go", Content: "csv export header handling"},
		Document{Kind: RefFile, Locator: "internal/auth/token.go", Content: "auth token rotation"},
	))

	refs, err := r.Retrieve(ctx, "csv export", 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "internal/export/csv.go", refs[0].Locator)
	assert.Equal(t, RefFile, refs[0].Kind)
	assert.Positive(t, refs[0].Score)
}

func TestVectorRetriever_EmptyCollection(t *testing.T) {
	r, err := NewVectorRetriever(hashEmbedding())
	require.NoError(t, err)

	refs, err := r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestVectorRetriever_BoundCappedAtCorpusSize(t *testing.T) {
	r, err := NewVectorRetriever(hashEmbedding())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, r.Index(ctx,
		Document{Kind: RefFile, Locator: "a.go", Content: "csv"},
		Document{Kind: RefFile, Locator: "b.go", Content: "export"},
	))

	// Asking for more results than documents must not error.
	refs, err := r.Retrieve(ctx, "csv export", 10)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestPersistentVectorRetriever_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	r, err := NewPersistentVectorRetriever(dir, hashEmbedding())
	require.NoError(t, err)
	assert.Zero(t, r.Len())
	require.NoError(t, r.Index(ctx,
		Document{Kind: RefFile, Locator: "internal/export/csv.go", Content: "csv export header handling"},
	))
	assert.Equal(t, 1, r.Len())

	// A second open over the same directory sees the indexed corpus.
	reopened, err := NewPersistentVectorRetriever(dir, hashEmbedding())
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())

	refs, err := reopened.Retrieve(ctx, "csv export", 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "internal/export/csv.go", refs[0].Locator)
}

func TestVectorRetriever_EmptyQuery(t *testing.T) {
	r, err := NewVectorRetriever(hashEmbedding())
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}
