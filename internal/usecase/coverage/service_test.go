package coverage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/prevalidate/researchd/internal/domain"
	"github.com/prevalidate/researchd/internal/usecase/relevance"
)

type mockSampler struct {
	items []domain.Item
	calls int
}

func (m *mockSampler) SampleItems(
	_ context.Context, _ domain.Hypothesis, _ domain.KeywordSet, _ int,
) ([]domain.Item, error) {
	m.calls++
	return m.items, nil
}

type mockCache struct {
	entries map[string]domain.QualitySample
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]domain.QualitySample{}}
}

func (m *mockCache) Get(_ context.Context, key string) (domain.QualitySample, error) {
	s, ok := m.entries[key]
	if !ok {
		return domain.QualitySample{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *mockCache) Put(_ context.Context, key string, sample domain.QualitySample) error {
	m.entries[key] = sample
	return nil
}

type mockFilter struct {
	keepEvery int // keep every n-th item, filter the rest as off_topic
}

func (m *mockFilter) FilterPosts(
	_ context.Context, posts []domain.Item, _ domain.Hypothesis, _ relevance.Progress,
) relevance.Result {
	res := relevance.Result{}
	for i, p := range posts {
		if m.keepEvery > 0 && i%m.keepEvery == 0 {
			res.Items = append(res.Items, p)
			continue
		}
		res.Decisions = append(res.Decisions, domain.NewRejection(p, domain.StageDomain, domain.ReasonOffTopic))
	}
	res.Metrics = domain.NewFilterMetrics(len(posts), len(res.Items))
	return res
}

func sampleItems(n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			ID:        fmt.Sprintf("s%d", i),
			Kind:      domain.KindPost,
			Title:     fmt.Sprintf("sample post %d", i),
			Community: "r/freelance",
			Body:      "a sampled body long enough to be representative of live content",
		}
	}
	return items
}

func TestEstimate_CachedRepeatIsBitIdentical(t *testing.T) {
	sampler := &mockSampler{items: sampleItems(12)}
	svc := New(sampler, newMockCache(), &mockFilter{keepEvery: 2}, zap.NewNop())

	hyp := domain.Hypothesis{Raw: "freelancers chase unpaid invoices"}
	kw := domain.KeywordSet{Primary: []string{"invoice"}}

	first, err := svc.Estimate(context.Background(), hyp, kw)
	if err != nil {
		t.Fatalf("first estimate: %v", err)
	}
	second, err := svc.Estimate(context.Background(), hyp, kw)
	if err != nil {
		t.Fatalf("second estimate: %v", err)
	}

	if sampler.calls != 1 {
		t.Errorf("sampler calls = %d, want 1 (second check must reuse the cache)", sampler.calls)
	}
	if first.PredictedRelevance != second.PredictedRelevance {
		t.Errorf("predicted relevance fluctuated: %v vs %v", first.PredictedRelevance, second.PredictedRelevance)
	}
	if first.SampleSize != 12 || second.SampleSize != 12 {
		t.Errorf("sample sizes = %d/%d, want 12/12", first.SampleSize, second.SampleSize)
	}
}

func TestEstimate_DifferentInputMissesCache(t *testing.T) {
	sampler := &mockSampler{items: sampleItems(12)}
	svc := New(sampler, newMockCache(), &mockFilter{keepEvery: 2}, zap.NewNop())

	if _, err := svc.Estimate(context.Background(), domain.Hypothesis{Raw: "a"}, domain.KeywordSet{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Estimate(context.Background(), domain.Hypothesis{Raw: "b"}, domain.KeywordSet{}); err != nil {
		t.Fatal(err)
	}
	if sampler.calls != 2 {
		t.Errorf("sampler calls = %d, want 2 for distinct hypotheses", sampler.calls)
	}
}

func TestEstimateFromSample_BelowFloorSkipsPrediction(t *testing.T) {
	svc := New(&mockSampler{}, newMockCache(), &mockFilter{keepEvery: 1}, zap.NewNop())

	_, err := svc.EstimateFromSample(context.Background(), domain.Hypothesis{Raw: "h"}, sampleItems(domain.MinSampleSize-1))
	if !errors.Is(err, domain.ErrSampleTooSmall) {
		t.Fatalf("err = %v, want ErrSampleTooSmall", err)
	}
}

func TestEstimateFromSample_Scoring(t *testing.T) {
	// keepEvery=2 over 20 items keeps 10: 50% predicted relevance, no warning.
	svc := New(&mockSampler{}, newMockCache(), &mockFilter{keepEvery: 2}, zap.NewNop())

	items := sampleItems(20)
	items[0].Body = "[removed]"

	sample, err := svc.EstimateFromSample(context.Background(), domain.Hypothesis{Raw: "h"}, items)
	if err != nil {
		t.Fatal(err)
	}

	if sample.PredictedRelevance != 50 {
		t.Errorf("predictedRelevance = %v, want 50", sample.PredictedRelevance)
	}
	if sample.Warning != domain.WarningNone {
		t.Errorf("warning = %s, want none", sample.Warning)
	}
	if sample.Confidence != domain.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium for a 20-item sample", sample.Confidence)
	}
	if sample.RemovedRate != 5 {
		t.Errorf("removedRate = %v, want 5", sample.RemovedRate)
	}
	if len(sample.Relevant) != 5 {
		t.Errorf("relevant list capped at %d, got %d", maxListedItems, len(sample.Relevant))
	}
	if len(sample.FilteredTopics) != 1 || sample.FilteredTopics[0].Topic != string(domain.ReasonOffTopic) {
		t.Errorf("filteredTopics = %v", sample.FilteredTopics)
	}
	if sample.Suggestion != "" {
		t.Errorf("no suggestion expected without a warning, got %q", sample.Suggestion)
	}
}

func TestEstimateFromSample_StrongWarningAndBroadening(t *testing.T) {
	// keepEvery=20 over 20 items keeps 1: 5% predicted relevance.
	svc := New(&mockSampler{}, newMockCache(), &mockFilter{keepEvery: 20}, zap.NewNop())

	hyp := domain.Hypothesis{
		Raw: "h",
		Structured: &domain.StructuredHypothesis{
			Problem:   "late invoices",
			Geography: "Germany",
		},
	}
	sample, err := svc.EstimateFromSample(context.Background(), hyp, sampleItems(20))
	if err != nil {
		t.Fatal(err)
	}

	if sample.Warning != domain.WarningStrong {
		t.Errorf("warning = %s, want strong_warning at 5%%", sample.Warning)
	}
	if sample.Suggestion == "" {
		t.Error("expected a suggestion alongside a warning")
	}
	if len(sample.Broadening) == 0 || sample.Broadening[0].DropPhrase != "Germany" {
		t.Errorf("broadening = %v, want geography drop suggestion", sample.Broadening)
	}
}
