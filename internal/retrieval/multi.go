package retrieval

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/logging"
)

// MultiRetriever fans a query out to several sources, dedupes by locator
// keeping the best score, and returns the merged top results. A failing
// source is logged and skipped rather than failing the whole lookup.
type MultiRetriever struct {
	sources []Retriever
	logger  *logging.Logger
}

// NewMultiRetriever composes sources in priority order.
func NewMultiRetriever(logger *logging.Logger, sources ...Retriever) (*MultiRetriever, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MultiRetriever{sources: sources, logger: logger}, nil
}

// Retrieve implements Retriever.
func (m *MultiRetriever) Retrieve(ctx context.Context, query string, maxResults int) ([]Reference, error) {
	best := make(map[string]Reference)
	for _, src := range m.sources {
		refs, err := src.Retrieve(ctx, query, maxResults)
		if err != nil {
			m.logger.Warn(ctx, "retrieval source failed", zap.Error(err))
			continue
		}
		for _, ref := range refs {
			if prev, ok := best[ref.Locator]; !ok || ref.Score > prev.Score {
				best[ref.Locator] = ref
			}
		}
	}

	merged := make([]Reference, 0, len(best))
	for _, ref := range best {
		merged = append(merged, ref)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Locator < merged[j].Locator
	})
	if maxResults > 0 && len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged, nil
}
