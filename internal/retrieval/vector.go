package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
)

const vectorCollection = "workflowd-references"

// VectorRetriever retrieves references by embedding similarity using an
// embedded chromem-go collection. The embedding function is pluggable; any
// deterministic chromem.EmbeddingFunc keeps retrieval deterministic for a
// fixed corpus.
type VectorRetriever struct {
	collection *chromem.Collection
}

// NewVectorRetriever creates a retriever backed by an in-memory collection.
func NewVectorRetriever(embed chromem.EmbeddingFunc) (*VectorRetriever, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection(vectorCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	return &VectorRetriever{collection: collection}, nil
}

// NewPersistentVectorRetriever creates a retriever whose collection
// persists under dir across restarts.
func NewPersistentVectorRetriever(dir string, embed chromem.EmbeddingFunc) (*VectorRetriever, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening persistent DB: %w", err)
	}
	collection, err := db.GetOrCreateCollection(vectorCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	return &VectorRetriever{collection: collection}, nil
}

// Len reports the number of indexed documents.
func (r *VectorRetriever) Len() int {
	return r.collection.Count()
}

// Index embeds and stores documents.
func (r *VectorRetriever) Index(ctx context.Context, docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:      doc.Locator,
			Content: doc.Content,
			Metadata: map[string]string{
				"kind":    string(doc.Kind),
				"locator": doc.Locator,
			},
		}
	}
	if err := r.collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Retrieve implements Retriever.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, maxResults int) ([]Reference, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	// chromem requires nResults <= document count.
	count := r.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if maxResults <= 0 || maxResults > count {
		maxResults = count
	}

	results, err := r.collection.Query(ctx, query, maxResults, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	refs := make([]Reference, 0, len(results))
	for _, res := range results {
		kind := RefKind(res.Metadata["kind"])
		if kind == "" {
			kind = RefOutput
		}
		refs = append(refs, Reference{
			Kind:    kind,
			Locator: res.Metadata["locator"],
			Summary: summarize(res.Content),
			Score:   float64(res.Similarity),
		})
	}
	return refs, nil
}
