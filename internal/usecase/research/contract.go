package research

import (
	"context"

	"github.com/prevalidate/researchd/internal/domain"
	"github.com/prevalidate/researchd/internal/usecase/relevance"
)

// Source discovers communities and fetches raw items. Partial or degraded
// availability is reported through SourceHealth, not errors — empty results
// are a health state.
type Source interface {
	DiscoverCommunities(ctx context.Context, hyp domain.Hypothesis, keywords domain.KeywordSet, limit int) ([]domain.Community, error)
	FetchPosts(ctx context.Context, community string, keywords []string, limit, sinceDays int) ([]domain.Item, domain.SourceHealth, error)
	FetchComments(ctx context.Context, postID string, limit int) ([]domain.Item, error)
	FetchAppMentions(ctx context.Context, app domain.AppMetadata, limit int) ([]domain.Item, domain.SourceHealth, error)
}

// KeywordExtractor derives a structured keyword set from a hypothesis.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, hyp domain.Hypothesis) (domain.KeywordSet, error)
}

// Filterer runs the staged relevance filter.
type Filterer interface {
	FilterPosts(ctx context.Context, posts []domain.Item, hyp domain.Hypothesis, onProgress relevance.Progress) relevance.Result
	FilterComments(ctx context.Context, comments []domain.Item, hyp domain.Hypothesis, onProgress relevance.Progress) relevance.Result
}

// ResultStore persists module results and job status. The pipeline never
// assumes a specific storage engine behind it.
type ResultStore interface {
	SaveModuleResult(ctx context.Context, jobID, module string, result any) error
	UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus, source domain.ErrorSource, errMsg string) error
}
