package domain

// Relevance is the classification verdict for one item against a hypothesis,
// as returned by the text-classification capability.
type Relevance struct {
	Relevant     bool    `json:"relevant"`
	ProblemMatch bool    `json:"problem_match"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// Tier is the retention weight of a relevant item.
type Tier string

// Relevance tiers. Both are kept; downstream analysis weights them
// differently.
const (
	TierCore    Tier = "core"
	TierRelated Tier = "related"
)

// Confidence cut points for tiering and similarity buckets.
const (
	CoreConfidence = 0.70
	HighSimilarity = 0.80
	MedSimilarity  = 0.50
)

// TierFor maps classifier confidence onto a retention tier.
func TierFor(confidence float64) Tier {
	if confidence >= CoreConfidence {
		return TierCore
	}
	return TierRelated
}

// FallbackRelevance is the conservative decision applied when a single
// classification call fails or returns an unparsable payload. The domain gate
// fails open: the item is kept, but only at the related tier, so a transient
// provider error never silently discards valid signal.
func FallbackRelevance(reason string) Relevance {
	return Relevance{
		Relevant:   true,
		Confidence: MedSimilarity - 0.01,
		Reason:     reason,
	}
}
