package coverage

import (
	"context"

	"github.com/prevalidate/researchd/internal/domain"
	"github.com/prevalidate/researchd/internal/usecase/relevance"
)

// Sampler fetches a small live sample of items from the most promising
// communities for a hypothesis.
type Sampler interface {
	SampleItems(ctx context.Context, hyp domain.Hypothesis, keywords domain.KeywordSet, limit int) ([]domain.Item, error)
}

// SampleCache persists scored estimates so repeated coverage checks over
// identical input report identical numbers instead of re-sampling noise.
type SampleCache interface {
	Get(ctx context.Context, key string) (domain.QualitySample, error)
	Put(ctx context.Context, key string, sample domain.QualitySample) error
}

// Filter runs the same post-filtering sequence the full pipeline uses.
type Filter interface {
	FilterPosts(ctx context.Context, posts []domain.Item, hyp domain.Hypothesis, onProgress relevance.Progress) relevance.Result
}
