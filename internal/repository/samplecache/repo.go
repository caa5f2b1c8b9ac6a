// Package samplecache persists scored coverage estimates with a TTL so
// repeated checks over identical input report identical numbers.
package samplecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prevalidate/researchd/internal/db"
	"github.com/prevalidate/researchd/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "sample:"

// store is the consumer interface for sample caching (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo caches quality samples keyed by the caller's input hash.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a sample cache with the given entry lifetime.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

// Get returns the cached sample, or domain.ErrNotFound on a miss. A corrupt
// entry is also a miss; the caller recomputes and overwrites it.
func (r *Repo) Get(ctx context.Context, key string) (domain.QualitySample, error) {
	data, err := r.store.Get(ctx, keyPrefix+key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.QualitySample{}, fmt.Errorf("sample %s: %w", key, domain.ErrNotFound)
		}
		return domain.QualitySample{}, fmt.Errorf("get sample %s: %w", key, err)
	}

	var sample domain.QualitySample
	if err := json.Unmarshal(data, &sample); err != nil {
		return domain.QualitySample{}, fmt.Errorf("corrupt sample %s: %w", key, domain.ErrNotFound)
	}
	return sample, nil
}

// Put stores the sample under the key with the configured TTL.
func (r *Repo) Put(ctx context.Context, key string, sample domain.QualitySample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample %s: %w", key, err)
	}
	if err := r.store.SetWithTTL(ctx, keyPrefix+key, data, r.ttl); err != nil {
		return fmt.Errorf("cache sample %s: %w", key, err)
	}
	return nil
}
