package domain

import (
	"context"
	"sync"
)

type classificationUsageKey struct{}

// ClassificationUsage collects token usage for a single run or request.
// The caller puts a mutable pointer into the context before invoking a
// service; the classifier transport writes after each call; the caller reads
// it back for reporting. Safe for concurrent writers: the relevance gate
// classifies items from multiple workers.
type ClassificationUsage struct {
	mu          sync.Mutex
	totalTokens int
	calls       int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ClassificationUsage) {
	u := &ClassificationUsage{}
	return context.WithValue(ctx, classificationUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector. Returns nil if not set;
// AddTokens on a nil collector is a no-op.
func UsageFromContext(ctx context.Context) *ClassificationUsage {
	u, _ := ctx.Value(classificationUsageKey{}).(*ClassificationUsage)
	return u
}

// AddTokens records consumed tokens for one classification call.
func (u *ClassificationUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.totalTokens += n
	u.calls++
	u.mu.Unlock()
}

// TotalTokens reports the tokens consumed so far.
func (u *ClassificationUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totalTokens
}

// Calls reports the number of classification calls so far.
func (u *ClassificationUsage) Calls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}
