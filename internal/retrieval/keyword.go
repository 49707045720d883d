package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// KeywordRetriever scores indexed documents by query-token overlap. It needs
// no external service and is the default retriever. Ties break on locator so
// results are stable for a fixed corpus.
type KeywordRetriever struct {
	mu   sync.RWMutex
	docs []Document
}

// NewKeywordRetriever creates a retriever over the given initial corpus.
func NewKeywordRetriever(docs ...Document) *KeywordRetriever {
	return &KeywordRetriever{docs: docs}
}

// Index adds documents to the corpus.
func (r *KeywordRetriever) Index(docs ...Document) {
	r.mu.Lock()
	r.docs = append(r.docs, docs...)
	r.mu.Unlock()
}

// Retrieve implements Retriever.
func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, maxResults int) ([]Reference, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var refs []Reference
	for _, doc := range r.docs {
		score := overlap(terms, tokenize(doc.Locator+" "+doc.Content))
		if score == 0 {
			continue
		}
		refs = append(refs, Reference{
			Kind:    doc.Kind,
			Locator: doc.Locator,
			Summary: summarize(doc.Content),
			Score:   score,
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Score != refs[j].Score {
			return refs[i].Score > refs[j].Score
		}
		return refs[i].Locator < refs[j].Locator
	})
	if maxResults > 0 && len(refs) > maxResults {
		refs = refs[:maxResults]
	}
	return refs, nil
}

// overlap returns the fraction of query terms found in the document terms.
func overlap(query, doc []string) float64 {
	set := make(map[string]struct{}, len(doc))
	for _, t := range doc {
		set[t] = struct{}{}
	}
	hits := 0
	for _, t := range query {
		if _, ok := set[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

const maxSummaryLen = 140

func summarize(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	if len(content) > maxSummaryLen {
		content = content[:maxSummaryLen]
	}
	return content
}
