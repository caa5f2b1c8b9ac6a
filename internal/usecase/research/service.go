// Package research owns end-to-end pipeline sequencing: keyword extraction,
// community discovery, data fetch, relevance filtering, and persistence of
// the run output, with bounded adaptive expansion when yield is too low.
package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/prevalidate/researchd/internal/domain"
	"github.com/prevalidate/researchd/internal/metrics"
	"github.com/prevalidate/researchd/internal/usecase/relevance"
)

// ModuleResearch names the persisted module result of a pipeline run.
const ModuleResearch = "research"

// Comment fetching is capped so one run cannot fan out over every post.
const (
	maxCommentedPosts   = 10
	perPostCommentLimit = 20
)

// Service sequences the research pipeline over a run context.
type Service struct {
	source    Source
	extractor KeywordExtractor
	filter    Filterer
	store     ResultStore
	log       *zap.Logger
}

// New creates a pipeline orchestrator.
func New(source Source, extractor KeywordExtractor, filter Filterer, store ResultStore, log *zap.Logger) *Service {
	return &Service{source: source, extractor: extractor, filter: filter, store: store, log: log}
}

// RunResult is the in-memory output of one completed run.
type RunResult struct {
	Keywords    domain.KeywordSet
	Communities []domain.Community
	Posts       relevance.Result
	Comments    relevance.Result
	Expansions  []domain.ExpansionAttempt
}

// ModuleResult is the persisted payload saved under ModuleResearch.
type ModuleResult struct {
	Mode           string                    `json:"mode"`
	Hypothesis     string                    `json:"hypothesis"`
	Keywords       domain.KeywordSet         `json:"keywords"`
	Communities    []domain.Community        `json:"communities"`
	Posts          []domain.Item             `json:"posts"`
	CoreItems      []domain.Item             `json:"core_items"`
	RelatedItems   []domain.Item             `json:"related_items"`
	Comments       []domain.Item             `json:"comments"`
	PostMetrics    domain.FilterMetrics      `json:"post_metrics"`
	CommentMetrics domain.FilterMetrics      `json:"comment_metrics"`
	Decisions      []domain.Decision         `json:"decisions"`
	Expansions     []domain.ExpansionAttempt `json:"expansion_attempts"`
}

type fetched struct {
	posts    []domain.Item
	comments []domain.Item
}

// Run executes the pipeline for one job. Steps run strictly sequentially:
// keywords feed discovery, discovered communities feed fetching, fetched
// items feed filtering. A persistence failure marks the job failed with the
// database source tag and stops before any downstream step.
func (s *Service) Run(ctx context.Context, rc *Context, onProgress relevance.Progress) (RunResult, error) {
	if strings.TrimSpace(rc.Hypothesis().Raw) == "" && rc.Mode().IsHypothesis() {
		return RunResult{}, s.failRun(ctx, rc, fmt.Errorf("empty hypothesis: %w", domain.ErrInvalidHypothesis))
	}

	if err := s.store.UpdateJobStatus(ctx, rc.JobID(), domain.JobProcessing, domain.SourceNone, ""); err != nil {
		return RunResult{}, s.failRunAs(ctx, rc, domain.SourceDatabase, fmt.Errorf("mark job processing: %w", err))
	}

	var result RunResult

	// Keyword extraction. App-Gap runs key off the app itself.
	rc.SetStage(StageKeywordExtraction)
	kw, skipped, err := s.keywordStep().Run(ctx, s.log, rc, rc.Hypothesis())
	if err != nil {
		return RunResult{}, s.failRun(ctx, rc, err)
	}
	if skipped {
		app, _ := rc.Mode().App()
		kw = keywordsForApp(app)
	}
	rc.SetKeywords(kw)
	result.Keywords = kw

	// Community discovery, skippable on user override or App-Gap mode.
	rc.SetStage(StageCommunityDiscovery)
	comms, skipped, err := s.discoveryStep().Run(ctx, s.log, rc, kw)
	if err != nil {
		return RunResult{}, s.failRun(ctx, rc, err)
	}
	if skipped {
		comms = namedCommunities(rc.Config().Communities)
	}
	rc.SetCommunities(comms)
	result.Communities = comms

	rc.SetStage(StageDataFetch)
	raw, _, err := s.fetchStep().Run(ctx, s.log, rc, comms)
	if err != nil {
		return RunResult{}, s.failRun(ctx, rc, err)
	}
	rc.AddPostsFound(len(raw.posts))

	rc.SetStage(StageFiltering)
	rc.SetPostsAnalyzed(len(raw.posts))
	result.Posts = s.filter.FilterPosts(ctx, raw.posts, rc.Hypothesis(), onProgress)
	result.Comments = s.filter.FilterComments(ctx, raw.comments, rc.Hypothesis(), onProgress)

	s.expand(ctx, rc, &result, onProgress)
	result.Expansions = rc.Expansions()

	if err := s.store.SaveModuleResult(ctx, rc.JobID(), ModuleResearch, moduleResult(rc, result)); err != nil {
		return RunResult{}, s.failRunAs(ctx, rc, domain.SourceDatabase, fmt.Errorf("save research result: %w", err))
	}

	rc.Complete()
	if err := s.store.UpdateJobStatus(ctx, rc.JobID(), domain.JobCompleted, domain.SourceNone, ""); err != nil {
		s.log.Error("job completed but status update failed",
			zap.String("job_id", rc.JobID()), zap.Error(err))
	}
	metrics.PipelineRunsTotal.WithLabelValues(rc.Mode().String(), string(domain.JobCompleted)).Inc()

	s.log.Info("research run complete",
		zap.String("job_id", rc.JobID()),
		zap.String("mode", rc.Mode().String()),
		zap.Int("signals", len(result.Posts.Items)),
		zap.Int("expansion_attempts", len(result.Expansions)))

	return result, nil
}

func (s *Service) keywordStep() Step[domain.Hypothesis, domain.KeywordSet] {
	return Step[domain.Hypothesis, domain.KeywordSet]{
		Name: "keyword_extraction",
		Skip: func(rc *Context) bool { return rc.Mode().IsAppGap() },
		SkipReason: func(*Context) string {
			return "app-gap runs derive keywords from app metadata"
		},
		Execute: func(ctx context.Context, rc *Context, hyp domain.Hypothesis) (domain.KeywordSet, error) {
			kw, err := s.extractor.ExtractKeywords(ctx, hyp)
			if err != nil {
				// Extraction is an optimization, not a required input:
				// fall back to hypothesis terms instead of failing the run.
				s.log.Warn("keyword extraction failed, falling back to hypothesis terms",
					zap.String("job_id", rc.JobID()), zap.Error(err))
				return fallbackKeywords(hyp), nil
			}
			if kw.IsEmpty() {
				return fallbackKeywords(hyp), nil
			}
			return kw, nil
		},
	}
}

func (s *Service) discoveryStep() Step[domain.KeywordSet, []domain.Community] {
	return Step[domain.KeywordSet, []domain.Community]{
		Name: "community_discovery",
		Skip: func(rc *Context) bool {
			return len(rc.Config().Communities) > 0 || rc.Mode().IsAppGap()
		},
		SkipReason: func(rc *Context) string {
			if rc.Mode().IsAppGap() {
				return "app reviews do not need community discovery"
			}
			return "caller supplied an explicit community set"
		},
		Execute: func(ctx context.Context, rc *Context, kw domain.KeywordSet) ([]domain.Community, error) {
			comms, err := s.source.DiscoverCommunities(ctx, rc.Hypothesis(), kw, rc.Config().MaxCommunities)
			if err != nil {
				return nil, fmt.Errorf("discover communities: %w", err)
			}
			return comms, nil
		},
	}
}

func (s *Service) fetchStep() Step[[]domain.Community, fetched] {
	return Step[[]domain.Community, fetched]{
		Name: "data_fetch",
		Execute: func(ctx context.Context, rc *Context, comms []domain.Community) (fetched, error) {
			if app, ok := rc.Mode().App(); ok {
				return s.fetchAppMentions(ctx, rc, app)
			}
			return s.fetchCommunities(ctx, rc, comms)
		},
	}
}

func (s *Service) fetchAppMentions(ctx context.Context, rc *Context, app domain.AppMetadata) (fetched, error) {
	limit := rc.Config().MaxCommunities * rc.Config().PerCommunityLimit
	items, health, err := s.source.FetchAppMentions(ctx, app, limit)
	if err != nil {
		return fetched{}, fmt.Errorf("fetch app mentions: %w", err)
	}
	if health != domain.SourceFresh {
		s.log.Warn("app mention source degraded",
			zap.String("job_id", rc.JobID()),
			zap.String("health", string(health)))
	}
	return fetched{posts: items}, nil
}

// fetchCommunities pulls posts community by community. A single failing
// community degrades the run instead of aborting it; only a total fetch
// blackout is fatal.
func (s *Service) fetchCommunities(ctx context.Context, rc *Context, comms []domain.Community) (fetched, error) {
	cfg := rc.Config()
	keywords := rc.Keywords().All()

	var out fetched
	seen := map[string]bool{}
	failures := 0

	for _, comm := range comms {
		items, health, err := s.source.FetchPosts(ctx, comm.Name, keywords, cfg.PerCommunityLimit, cfg.TimeRangeDays)
		if err != nil {
			failures++
			s.log.Warn("community fetch failed, continuing with remaining communities",
				zap.String("job_id", rc.JobID()),
				zap.String("community", comm.Name),
				zap.Error(err))
			continue
		}
		if health != domain.SourceFresh {
			s.log.Info("community fetch degraded",
				zap.String("community", comm.Name),
				zap.String("health", string(health)))
		}
		for _, item := range items {
			if !seen[item.ID] {
				seen[item.ID] = true
				out.posts = append(out.posts, item)
			}
		}
	}

	if len(comms) > 0 && failures == len(comms) {
		return fetched{}, fmt.Errorf("all %d communities failed: %w", failures, domain.ErrSourceUnavailable)
	}

	for i, post := range out.posts {
		if i == maxCommentedPosts {
			break
		}
		comments, err := s.source.FetchComments(ctx, post.ID, perPostCommentLimit)
		if err != nil {
			s.log.Warn("comment fetch failed",
				zap.String("post_id", post.ID), zap.Error(err))
			continue
		}
		out.comments = append(out.comments, comments...)
	}

	return out, nil
}

// expand runs the bounded low-yield recovery loop: while the retry policy
// allows another attempt and the signal count is below the yield target,
// broaden to one additional community and record the attempt's telemetry.
func (s *Service) expand(ctx context.Context, rc *Context, result *RunResult, onProgress relevance.Progress) {
	if rc.Mode().IsAppGap() || len(rc.Config().Communities) > 0 {
		return
	}

	policy := rc.Config().Retry
	for !policy.Satisfied(len(result.Posts.Items)) && policy.Allowed(len(rc.Expansions())) {
		comm, ok := s.nextCommunity(ctx, rc)
		if !ok {
			s.log.Info("no further communities available for expansion",
				zap.String("job_id", rc.JobID()))
			return
		}

		cfg := rc.Config()
		items, _, err := s.source.FetchPosts(ctx, comm.Name, rc.Keywords().All(), cfg.PerCommunityLimit, cfg.TimeRangeDays)
		if err != nil {
			s.log.Warn("expansion fetch failed",
				zap.String("community", comm.Name), zap.Error(err))
			rc.RecordExpansion(domain.ExpansionAttempt{
				Kind: domain.ExpansionCommunities, Value: comm.Name, Success: false,
			})
			continue
		}

		rc.AddPostsFound(len(items))
		extra := s.filter.FilterPosts(ctx, items, rc.Hypothesis(), onProgress)
		gained := len(extra.Items)

		rc.AddCommunity(comm)
		result.Communities = append(result.Communities, comm)
		result.Posts = mergeResults(result.Posts, extra)
		rc.RecordExpansion(domain.ExpansionAttempt{
			Kind:          domain.ExpansionCommunities,
			Value:         comm.Name,
			Success:       gained > 0,
			SignalsGained: gained,
		})

		s.log.Info("expansion attempt finished",
			zap.String("job_id", rc.JobID()),
			zap.String("community", comm.Name),
			zap.Int("signals_gained", gained))
	}
}

// nextCommunity re-runs discovery one slot wider and returns the first
// community not already queued.
func (s *Service) nextCommunity(ctx context.Context, rc *Context) (domain.Community, bool) {
	used := map[string]bool{}
	for _, c := range rc.Communities() {
		used[c.Name] = true
	}

	comms, err := s.source.DiscoverCommunities(ctx, rc.Hypothesis(), rc.Keywords(), len(used)+1)
	if err != nil {
		s.log.Warn("expansion discovery failed", zap.Error(err))
		return domain.Community{}, false
	}
	for _, c := range comms {
		if !used[c.Name] {
			return c, true
		}
	}
	return domain.Community{}, false
}

// failRun classifies the error, marks the context failed exactly once, and
// persists the failed status. The original error is returned for the caller.
func (s *Service) failRun(ctx context.Context, rc *Context, err error) error {
	return s.failRunAs(ctx, rc, domain.ClassifyErrorSource(err), err)
}

// failRunAs is failRun with an explicit source tag, for failures whose origin
// the caller knows better than error inspection can (persistence writes).
func (s *Service) failRunAs(ctx context.Context, rc *Context, source domain.ErrorSource, err error) error {
	rc.Fail(source, err.Error())

	if uerr := s.store.UpdateJobStatus(ctx, rc.JobID(), domain.JobFailed, source, err.Error()); uerr != nil {
		s.log.Error("failed to persist failed job status",
			zap.String("job_id", rc.JobID()), zap.Error(uerr))
	}
	metrics.PipelineRunsTotal.WithLabelValues(rc.Mode().String(), string(domain.JobFailed)).Inc()

	s.log.Error("research run failed",
		zap.String("job_id", rc.JobID()),
		zap.String("source", string(source)),
		zap.Error(err))
	return fmt.Errorf("%w: %v", domain.ErrRunFailed, err)
}

func moduleResult(rc *Context, r RunResult) ModuleResult {
	return ModuleResult{
		Mode:           rc.Mode().String(),
		Hypothesis:     rc.Hypothesis().Raw,
		Keywords:       r.Keywords,
		Communities:    r.Communities,
		Posts:          r.Posts.Items,
		CoreItems:      r.Posts.CoreItems,
		RelatedItems:   r.Posts.RelatedItems,
		Comments:       r.Comments.Items,
		PostMetrics:    r.Posts.Metrics,
		CommentMetrics: r.Comments.Metrics,
		Decisions:      r.Posts.Decisions,
		Expansions:     r.Expansions,
	}
}

// mergeResults folds an expansion batch into the main result. Stage counters
// add; the rate is recomputed over the combined totals so it stays in [0,100].
func mergeResults(a, b relevance.Result) relevance.Result {
	m := domain.NewFilterMetrics(a.Metrics.Before+b.Metrics.Before, a.Metrics.After+b.Metrics.After)
	m.Stage1Filtered = a.Metrics.Stage1Filtered + b.Metrics.Stage1Filtered
	m.Stage2Filtered = a.Metrics.Stage2Filtered + b.Metrics.Stage2Filtered
	m.Stage3Filtered = a.Metrics.Stage3Filtered + b.Metrics.Stage3Filtered
	m.CoreCount = a.Metrics.CoreCount + b.Metrics.CoreCount
	m.RelatedCount = a.Metrics.RelatedCount + b.Metrics.RelatedCount
	m.HighSimilarity = a.Metrics.HighSimilarity + b.Metrics.HighSimilarity
	m.MedSimilarity = a.Metrics.MedSimilarity + b.Metrics.MedSimilarity
	m.TitleOnlyPosts = a.Metrics.TitleOnlyPosts + b.Metrics.TitleOnlyPosts
	m.NarrowProblem = a.Metrics.NarrowProblem || b.Metrics.NarrowProblem

	return relevance.Result{
		Items:        append(a.Items, b.Items...),
		CoreItems:    append(a.CoreItems, b.CoreItems...),
		RelatedItems: append(a.RelatedItems, b.RelatedItems...),
		Metrics:      m,
		Decisions:    append(a.Decisions, b.Decisions...),
	}
}

// fallbackKeywords derives a crude keyword set from the hypothesis text when
// extraction is unavailable.
func fallbackKeywords(hyp domain.Hypothesis) domain.KeywordSet {
	var primary []string
	for _, w := range strings.Fields(strings.ToLower(hyp.Summary())) {
		w = strings.Trim(w, ".,;:!?()\"'")
		if len(w) > 3 {
			primary = append(primary, w)
		}
		if len(primary) == 6 {
			break
		}
	}
	return domain.KeywordSet{Primary: primary, Exclude: hyp.ExcludeTopics()}
}

func keywordsForApp(app domain.AppMetadata) domain.KeywordSet {
	kw := domain.KeywordSet{Primary: []string{app.Name}}
	if app.Category != "" {
		kw.Secondary = append(kw.Secondary, app.Category)
	}
	return kw
}

func namedCommunities(names []string) []domain.Community {
	out := make([]domain.Community, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Community{Name: n})
	}
	return out
}
