package domain

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "researchd:"

// Community is one candidate community returned by discovery, ranked by the
// source.
type Community struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
	Description string `json:"description,omitempty"`
}

// SourceHealth reports partial or degraded item-source availability. Empty
// results are a health state, not an error.
type SourceHealth string

// Source health states.
const (
	SourceFresh      SourceHealth = "fresh"
	SourceStaleCache SourceHealth = "stale_cache"
	SourceEmpty      SourceHealth = "zero_results"
)
