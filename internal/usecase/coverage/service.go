// Package coverage implements the pre-flight quality estimate: fetch a small
// live sample, push it through the same gates the full pipeline uses, and
// forecast expected relevance before the user commits credits.
package coverage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/prevalidate/researchd/internal/domain"
)

// DefaultSampleLimit is how many items one coverage check fetches.
const DefaultSampleLimit = 30

// maxListedItems caps the per-bucket item lists shown to the user.
const maxListedItems = 5

// Service computes coverage estimates.
type Service struct {
	sampler     Sampler
	cache       SampleCache
	filter      Filter
	log         *zap.Logger
	sampleLimit int
}

// New creates a coverage estimator.
func New(sampler Sampler, cache SampleCache, filter Filter, log *zap.Logger) *Service {
	return &Service{
		sampler:     sampler,
		cache:       cache,
		filter:      filter,
		log:         log,
		sampleLimit: DefaultSampleLimit,
	}
}

// WithSampleLimit configures the sample fetch size.
func (s *Service) WithSampleLimit(n int) *Service {
	if n > 0 {
		s.sampleLimit = n
	}
	return s
}

// Estimate fetches a sample and scores it. A repeated call with identical
// input returns the cached estimate unchanged, so refinement iterations by the
// same user never fluctuate purely from re-sampling noise. Returns
// domain.ErrSampleTooSmall when fewer than domain.MinSampleSize items are
// available; no prediction is made on statistically meaningless samples.
func (s *Service) Estimate(
	ctx context.Context, hyp domain.Hypothesis, keywords domain.KeywordSet,
) (domain.QualitySample, error) {
	key := sampleKey(hyp, keywords)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		s.log.Debug("coverage estimate served from cache", zap.String("key", key))
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("sample cache read failed", zap.Error(err))
	}

	items, err := s.sampler.SampleItems(ctx, hyp, keywords, s.sampleLimit)
	if err != nil {
		return domain.QualitySample{}, fmt.Errorf("fetch sample: %w", err)
	}

	sample, err := s.EstimateFromSample(ctx, hyp, items)
	if err != nil {
		return domain.QualitySample{}, err
	}

	if err := s.cache.Put(ctx, key, sample); err != nil {
		s.log.Warn("sample cache write failed", zap.Error(err))
	}
	return sample, nil
}

// EstimateFromSample scores a caller-supplied sample set without fetching.
func (s *Service) EstimateFromSample(
	ctx context.Context, hyp domain.Hypothesis, items []domain.Item,
) (domain.QualitySample, error) {
	if len(items) < domain.MinSampleSize {
		return domain.QualitySample{}, fmt.Errorf(
			"sample of %d below minimum %d: %w", len(items), domain.MinSampleSize, domain.ErrSampleTooSmall,
		)
	}

	var removed int
	for _, item := range items {
		if item.IsRemoved() {
			removed++
		}
	}

	res := s.filter.FilterPosts(ctx, items, hyp, nil)

	predicted := float64(res.Metrics.After) / float64(res.Metrics.Before) * 100
	sample := domain.QualitySample{
		PredictedRelevance: predicted,
		Confidence:         domain.ConfidenceFor(len(items)),
		Warning:            domain.WarningFor(predicted),
		SampleSize:         len(items),
		RemovedRate:        float64(removed) / float64(len(items)) * 100,
		Relevant:           make([]domain.SampleItem, 0, maxListedItems),
		FilteredOut:        make([]domain.SampleItem, 0, maxListedItems),
	}

	for _, item := range res.Items {
		if len(sample.Relevant) == maxListedItems {
			break
		}
		sample.Relevant = append(sample.Relevant, domain.SampleItem{
			ItemID: item.ID, Title: item.Title, Community: item.Community,
		})
	}

	reasonCounts := map[string]int{}
	for _, d := range res.Decisions {
		if d.Passed {
			continue
		}
		reasonCounts[string(d.Reason)]++
		if len(sample.FilteredOut) < maxListedItems {
			sample.FilteredOut = append(sample.FilteredOut, domain.SampleItem{
				ItemID: d.ItemID, Title: d.Title, Community: d.Community, Reason: string(d.Reason),
			})
		}
	}
	sample.FilteredTopics = sortedTopics(reasonCounts)

	if sample.Warning != domain.WarningNone {
		sample.Suggestion = suggestionFor(sample.Warning)
		sample.Broadening = broadeningFor(hyp, res.Metrics.NarrowProblem)
	}

	s.log.Info("coverage estimate computed",
		zap.Float64("predicted_relevance", sample.PredictedRelevance),
		zap.String("warning", string(sample.Warning)),
		zap.Int("sample_size", sample.SampleSize))

	return sample, nil
}

// sampleKey hashes every input that affects scoring, so two bit-identical
// requests map to the same cache entry.
func sampleKey(hyp domain.Hypothesis, keywords domain.KeywordSet) string {
	h := sha256.New()
	h.Write([]byte(hyp.Raw))
	h.Write([]byte{0})
	h.Write([]byte(hyp.Summary()))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(keywords.All(), ",")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(keywords.Exclude, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

func sortedTopics(counts map[string]int) []domain.TopicCount {
	out := make([]domain.TopicCount, 0, len(counts))
	for topic, n := range counts {
		out = append(out, domain.TopicCount{Topic: topic, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

func suggestionFor(w domain.QualityWarning) string {
	if w == domain.WarningStrong {
		return "Very few sampled posts match this hypothesis. Consider broadening the problem statement or removing qualifiers before running full research."
	}
	return "A below-average share of sampled posts matches this hypothesis. Broadening the audience or problem phrasing may improve coverage."
}

// broadeningFor proposes concrete phrases to drop. Secondary qualifiers and a
// geography restriction are the usual culprits when coverage is thin.
func broadeningFor(hyp domain.Hypothesis, narrowProblem bool) []domain.BroadeningSuggestion {
	var out []domain.BroadeningSuggestion

	if hyp.Structured != nil {
		if hyp.Structured.Geography != "" {
			out = append(out, domain.BroadeningSuggestion{
				DropPhrase: hyp.Structured.Geography,
				Rationale:  "geographic restriction sharply limits the pool of matching discussions",
			})
		}
		if narrowProblem && hyp.Structured.Solution != "" {
			out = append(out, domain.BroadeningSuggestion{
				DropPhrase: hyp.Structured.Solution,
				Rationale:  "searching for the problem without the proposed solution surfaces more first-hand pain",
			})
		}
	}
	return out
}
