package relevance

import (
	"context"

	"github.com/prevalidate/researchd/internal/domain"
)

// Classifier decides topical relevance of one item against a hypothesis.
type Classifier interface {
	ClassifyRelevance(ctx context.Context, item domain.Item, hyp domain.Hypothesis) (domain.Relevance, error)
}

// QualityFilter is the local structural gate run before any classification.
type QualityFilter interface {
	Filter(items []domain.Item) domain.FilterResult
}

// DomainFilter is the classification-backed topical gate.
type DomainFilter interface {
	Filter(ctx context.Context, items []domain.Item, hyp domain.Hypothesis) (domain.FilterResult, []Verdict)
}
