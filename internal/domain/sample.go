package domain

// ConfidenceLevel grades how much a predicted relevance figure can be
// trusted.
type ConfidenceLevel string

// Prediction confidence levels.
const (
	ConfidenceVeryLow ConfidenceLevel = "very_low"
	ConfidenceLow     ConfidenceLevel = "low"
	ConfidenceMedium  ConfidenceLevel = "medium"
	ConfidenceHigh    ConfidenceLevel = "high"
)

// QualityWarning is the user-facing warning level attached to a coverage
// estimate.
type QualityWarning string

// Quality warning levels.
const (
	WarningNone    QualityWarning = "none"
	WarningCaution QualityWarning = "caution"
	WarningStrong  QualityWarning = "strong_warning"
)

// Coverage policy constants. Tunable thresholds, not derived invariants.
const (
	// MinSampleSize is the floor below which no prediction is made at all.
	MinSampleSize = 10
	// StrongWarningBelowPct triggers a strong warning when predicted
	// relevance falls under it.
	StrongWarningBelowPct = 8.0
	// CautionBelowPct bounds the caution band (StrongWarningBelowPct up to
	// but excluding this value).
	CautionBelowPct = 20.0
)

// WarningFor maps a predicted relevance percentage onto a warning level.
func WarningFor(predictedPct float64) QualityWarning {
	switch {
	case predictedPct < StrongWarningBelowPct:
		return WarningStrong
	case predictedPct < CautionBelowPct:
		return WarningCaution
	default:
		return WarningNone
	}
}

// ConfidenceFor grades a prediction by its sample size. Small samples are
// never trusted above medium.
func ConfidenceFor(sampleSize int) ConfidenceLevel {
	switch {
	case sampleSize < MinSampleSize:
		return ConfidenceVeryLow
	case sampleSize < 20:
		return ConfidenceLow
	case sampleSize < 50:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// SampleItem is one sampled item with the filter outcome shown to the user.
type SampleItem struct {
	ItemID    string `json:"item_id"`
	Title     string `json:"title,omitempty"`
	Community string `json:"community"`
	Reason    string `json:"reason,omitempty"`
}

// TopicCount is one row of the filtered-topic frequency table.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// BroadeningSuggestion proposes dropping a phrase to widen a too-narrow
// hypothesis.
type BroadeningSuggestion struct {
	DropPhrase string `json:"drop_phrase"`
	Rationale  string `json:"rationale"`
}

// QualitySample is the pre-flight forecast computed from a small live sample
// before the user commits to a full run.
type QualitySample struct {
	PredictedRelevance float64                `json:"predicted_relevance"`
	Confidence         ConfidenceLevel        `json:"confidence"`
	Warning            QualityWarning         `json:"quality_warning"`
	SampleSize         int                    `json:"sample_size"`
	RemovedRate        float64                `json:"removed_rate"`
	Relevant           []SampleItem           `json:"relevant_items"`
	FilteredOut        []SampleItem           `json:"filtered_items"`
	FilteredTopics     []TopicCount           `json:"filtered_topics"`
	Suggestion         string                 `json:"suggestion,omitempty"`
	Broadening         []BroadeningSuggestion `json:"broadening,omitempty"`
}
