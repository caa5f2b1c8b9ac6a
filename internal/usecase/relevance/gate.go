package relevance

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/prevalidate/researchd/internal/domain"
)

// DefaultWorkers bounds the classification fan-out per batch.
const DefaultWorkers = 8

// Verdict pairs a kept item's classification with whether it came from the
// fail-open fallback rather than a genuine classifier response.
type Verdict struct {
	Relevance domain.Relevance
	Fallback  bool
}

// Gate is the topical-relevance filter. It classifies each item against the
// hypothesis via the external classification capability; a per-item failure
// never aborts the batch — the item is kept at the related tier instead, so a
// transient provider error cannot silently discard valid signal.
type Gate struct {
	classifier Classifier
	log        *zap.Logger
	workers    int
}

// NewGate creates a domain gate.
func NewGate(classifier Classifier, log *zap.Logger) *Gate {
	return &Gate{classifier: classifier, log: log, workers: DefaultWorkers}
}

// WithWorkers configures the classification fan-out bound.
func (g *Gate) WithWorkers(n int) *Gate {
	if n > 0 {
		g.workers = n
	}
	return g
}

// Filter classifies items concurrently and partitions them. Decisions are
// recorded for every evaluated item, pass or reject, in input order. The
// returned verdicts align index-for-index with the Passed slice.
func (g *Gate) Filter(ctx context.Context, items []domain.Item, hyp domain.Hypothesis) (domain.FilterResult, []Verdict) {
	res := domain.FilterResult{
		Passed:    make([]domain.Item, 0, len(items)),
		Filtered:  make([]domain.Item, 0),
		Decisions: make([]domain.Decision, 0, len(items)),
	}
	if len(items) == 0 {
		return res, nil
	}

	verdicts := g.classify(ctx, items, hyp)

	kept := make([]Verdict, 0, len(items))
	for i, item := range items {
		v := verdicts[i]
		switch {
		case !v.Relevance.Relevant:
			res.Filtered = append(res.Filtered, item)
			res.Decisions = append(res.Decisions, domain.NewRejection(item, domain.StageDomain, domain.ReasonOffTopic))
		case !v.Fallback && !v.Relevance.ProblemMatch && v.Relevance.Confidence < domain.MedSimilarity:
			// Relevant to the space but a weak, non-problem-matching signal.
			res.Filtered = append(res.Filtered, item)
			res.Decisions = append(res.Decisions, domain.NewRejection(item, domain.StageProblem, domain.ReasonNoProblem))
		default:
			res.Passed = append(res.Passed, item)
			res.Decisions = append(res.Decisions, domain.NewPass(item, domain.StageDomain))
			kept = append(kept, v)
		}
	}
	return res, kept
}

// classify fans classification calls out over a bounded worker pool. Results
// are written index-addressed so recombination is deterministic regardless of
// arrival order.
func (g *Gate) classify(ctx context.Context, items []domain.Item, hyp domain.Hypothesis) []Verdict {
	out := make([]Verdict, len(items))
	sem := make(chan struct{}, g.workers)

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			rel, err := g.classifier.ClassifyRelevance(ctx, items[i], hyp)
			if err != nil {
				g.log.Warn("classification failed, keeping item at related tier",
					zap.String("item_id", items[i].ID),
					zap.Error(err))
				out[i] = Verdict{Relevance: domain.FallbackRelevance("classification unavailable"), Fallback: true}
				return
			}
			out[i] = Verdict{Relevance: rel}
		}(i)
	}
	wg.Wait()

	return out
}
