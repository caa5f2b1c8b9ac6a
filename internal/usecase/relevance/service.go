// Package relevance sequences the filtering gates and computes the aggregate
// metrics reported to the user. Posts flow quality → exclude → domain;
// comments stop after the quality gate because they lack the independent
// context needed for reliable topical classification and inherit relevance
// from their parent post downstream.
package relevance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prevalidate/researchd/internal/domain"
	"github.com/prevalidate/researchd/internal/metrics"
)

// narrowProblemBelowPct flags a run where too few genuinely classified items
// match the stated problem, suggesting the hypothesis is narrower than the
// conversation it targets.
const narrowProblemBelowPct = 20.0

// Progress receives human-readable stage-completion messages so long-running
// filtering can be surfaced to a UI without polling internal state.
type Progress func(msg string)

// notify invokes the observer best-effort. A panicking observer must never
// take the filter run down with it.
func notify(p Progress, msg string) {
	if p == nil {
		return
	}
	defer func() { _ = recover() }()
	p(msg)
}

// Result is the full output of one relevance-filter run.
type Result struct {
	Items        []domain.Item
	CoreItems    []domain.Item
	RelatedItems []domain.Item
	Metrics      domain.FilterMetrics
	Decisions    []domain.Decision
}

// Service orchestrates the filter stages.
type Service struct {
	quality QualityFilter
	domain  DomainFilter
	log     *zap.Logger
}

// New creates a relevance filter orchestrator.
func New(quality QualityFilter, domainGate DomainFilter, log *zap.Logger) *Service {
	return &Service{quality: quality, domain: domainGate, log: log}
}

// FilterPosts runs the full three-stage sequence on posts and tiers the
// survivors by classifier confidence. The decisions list concatenates stage
// decision lists in execution order: quality first, then domain.
func (s *Service) FilterPosts(
	ctx context.Context, posts []domain.Item, hyp domain.Hypothesis, onProgress Progress,
) Result {
	before := len(posts)

	qres := s.quality.Filter(posts)
	notify(onProgress, fmt.Sprintf("Stage 3: Quality gate removed %d of %d posts", len(qres.Filtered), before))

	candidates := ApplyExcludes(qres.Passed, hyp.ExcludeTopics())
	excludeFiltered := len(qres.Passed) - len(candidates)
	if excludeFiltered > 0 {
		notify(onProgress, fmt.Sprintf("Stage 2: Exclude pre-filter removed %d posts", excludeFiltered))
	}

	dres, verdicts := s.domain.Filter(ctx, candidates, hyp)
	notify(onProgress, fmt.Sprintf("Stage 1: Domain relevance kept %d of %d posts", len(dres.Passed), len(candidates)))

	res := Result{
		Items:        dres.Passed,
		CoreItems:    make([]domain.Item, 0, len(dres.Passed)),
		RelatedItems: make([]domain.Item, 0),
		Decisions:    append(qres.Decisions, dres.Decisions...),
	}

	var high, med, titleOnly, genuine, problemMatches int
	for i, item := range dres.Passed {
		v := verdicts[i]
		if domain.TierFor(v.Relevance.Confidence) == domain.TierCore {
			res.CoreItems = append(res.CoreItems, item)
		} else {
			res.RelatedItems = append(res.RelatedItems, item)
		}
		switch {
		case v.Relevance.Confidence >= domain.HighSimilarity:
			high++
		case v.Relevance.Confidence >= domain.MedSimilarity:
			med++
		}
		if item.IsTitleOnly() {
			titleOnly++
		}
		if !v.Fallback {
			genuine++
			if v.Relevance.ProblemMatch {
				problemMatches++
			}
		}
	}

	m := domain.NewFilterMetrics(before, len(dres.Passed))
	m.Stage1Filtered = len(dres.Filtered)
	m.Stage2Filtered = excludeFiltered
	m.Stage3Filtered = len(qres.Filtered)
	m.CoreCount = len(res.CoreItems)
	m.RelatedCount = len(res.RelatedItems)
	m.HighSimilarity = high
	m.MedSimilarity = med
	m.TitleOnlyPosts = titleOnly
	m.NarrowProblem = genuine > 0 && float64(problemMatches)/float64(genuine)*100 < narrowProblemBelowPct
	res.Metrics = m

	s.recordDecisions(res.Decisions)
	s.log.Info("post filtering complete",
		zap.Int("before", m.Before),
		zap.Int("after", m.After),
		zap.Float64("filter_rate", m.FilterRate),
		zap.Int("core", m.CoreCount),
		zap.Int("related", m.RelatedCount))

	return res
}

// FilterComments runs the quality gate only. The domain stage is skipped by
// design, so its positional counter is always zero for comments.
func (s *Service) FilterComments(
	_ context.Context, comments []domain.Item, _ domain.Hypothesis, onProgress Progress,
) Result {
	before := len(comments)

	qres := s.quality.Filter(comments)
	notify(onProgress, fmt.Sprintf("Stage 3: Quality gate removed %d of %d comments", len(qres.Filtered), before))

	m := domain.NewFilterMetrics(before, len(qres.Passed))
	m.Stage3Filtered = len(qres.Filtered)

	res := Result{
		Items:        qres.Passed,
		CoreItems:    make([]domain.Item, 0),
		RelatedItems: make([]domain.Item, 0),
		Metrics:      m,
		Decisions:    qres.Decisions,
	}

	s.recordDecisions(res.Decisions)
	s.log.Info("comment filtering complete",
		zap.Int("before", m.Before),
		zap.Int("after", m.After),
		zap.Float64("filter_rate", m.FilterRate))

	return res
}

func (s *Service) recordDecisions(decisions []domain.Decision) {
	for _, d := range decisions {
		outcome := "reject"
		if d.Passed {
			outcome = "pass"
		}
		metrics.FilterDecisionsTotal.WithLabelValues(string(d.Stage), outcome).Inc()
	}
}
