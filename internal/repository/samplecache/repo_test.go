package samplecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prevalidate/researchd/internal/db"
	"github.com/prevalidate/researchd/internal/domain"
)

type fakeStore struct {
	kv   map[string][]byte
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{kv: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.kv[key] = value
	f.ttls[key] = ttl
	return nil
}

func TestRepo_RoundTrip(t *testing.T) {
	store := newFakeStore()
	repo := New(store, 24*time.Hour)
	ctx := context.Background()

	in := domain.QualitySample{
		PredictedRelevance: 42.5,
		Confidence:         domain.ConfidenceMedium,
		Warning:            domain.WarningNone,
		SampleSize:         20,
	}
	if err := repo.Put(ctx, "abc123", in); err != nil {
		t.Fatal(err)
	}

	if ttl := store.ttls[keyPrefix+"abc123"]; ttl != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h", ttl)
	}

	out, err := repo.Get(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if out.PredictedRelevance != in.PredictedRelevance || out.SampleSize != in.SampleSize {
		t.Errorf("roundtrip mismatch: %+v vs %+v", out, in)
	}
}

func TestRepo_MissAndCorruptEntry(t *testing.T) {
	store := newFakeStore()
	repo := New(store, time.Hour)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("miss err = %v, want ErrNotFound", err)
	}

	store.kv[keyPrefix+"bad"] = []byte("{not json")
	if _, err := repo.Get(ctx, "bad"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("corrupt entry err = %v, want ErrNotFound (treated as miss)", err)
	}
}
