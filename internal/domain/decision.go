package domain

// Stage identifies which filter stage produced a decision.
type Stage string

// Filter stages.
const (
	StageQuality Stage = "quality"
	StageDomain  Stage = "domain"
	StageProblem Stage = "problem"
)

// Reason is the machine-readable cause recorded on a rejection.
type Reason string

// Rejection reason codes.
const (
	ReasonRemovedDeleted Reason = "removed_deleted"
	ReasonTooShort       Reason = "too_short"
	ReasonNonEnglish     Reason = "non_english"
	ReasonSpam           Reason = "spam"
	ReasonOffTopic       Reason = "off_topic"
	ReasonNoProblem      Reason = "no_problem_signal"
)

// PreviewLength is the exact number of characters kept of a truncated body
// preview on a decision record.
const PreviewLength = 200

// Decision is the audit record of one filtering outcome for one item at one
// stage. An item that fails an earlier stage never reaches a later one, so at
// most one decision per stage exists per item.
type Decision struct {
	ItemID      string `json:"item_id"`
	Title       string `json:"title,omitempty"`
	Community   string `json:"community"`
	Passed      bool   `json:"passed"`
	Stage       Stage  `json:"stage"`
	Reason      Reason `json:"reason,omitempty"`
	BodyPreview string `json:"body_preview,omitempty"`
}

// NewRejection builds a reject decision with a truncated body preview.
func NewRejection(item Item, stage Stage, reason Reason) Decision {
	return Decision{
		ItemID:      item.ID,
		Title:       item.Title,
		Community:   item.Community,
		Passed:      false,
		Stage:       stage,
		Reason:      reason,
		BodyPreview: Preview(item.Body),
	}
}

// NewPass builds a pass decision for stages that audit every evaluated item.
func NewPass(item Item, stage Stage) Decision {
	return Decision{
		ItemID:    item.ID,
		Title:     item.Title,
		Community: item.Community,
		Passed:    true,
		Stage:     stage,
	}
}

// Preview truncates a body to exactly PreviewLength characters. Shorter
// bodies are returned unchanged.
func Preview(body string) string {
	runes := []rune(body)
	if len(runes) <= PreviewLength {
		return body
	}
	return string(runes[:PreviewLength])
}

// FilterResult is the output of one gate invocation.
// Invariant: len(Passed)+len(Filtered) == len(input).
type FilterResult struct {
	Passed    []Item
	Filtered  []Item
	Decisions []Decision
}

// FilterMetrics aggregates a full relevance-filter run.
//
// The StageNFiltered fields are positional, not stage-name-matched, because
// stage applicability differs between posts and comments: Stage1Filtered is
// the domain gate, Stage2Filtered the exclude pre-filter, Stage3Filtered the
// quality gate. Comments skip the domain gate, so their Stage1Filtered is
// always zero.
type FilterMetrics struct {
	Before         int     `json:"before"`
	After          int     `json:"after"`
	FilteredOut    int     `json:"filtered_out"`
	FilterRate     float64 `json:"filter_rate"`
	CoreCount      int     `json:"core_count"`
	RelatedCount   int     `json:"related_count"`
	Stage1Filtered int     `json:"stage1_filtered"`
	Stage2Filtered int     `json:"stage2_filtered"`
	Stage3Filtered int     `json:"stage3_filtered"`
	HighSimilarity int     `json:"high_similarity"`
	MedSimilarity  int     `json:"medium_similarity"`
	TitleOnlyPosts int     `json:"title_only_posts"`
	NarrowProblem  bool    `json:"narrow_problem"`
}

// NewFilterMetrics computes the before/after counts and the filter rate.
// A zero denominator resolves to a 0% rate, never NaN.
func NewFilterMetrics(before, after int) FilterMetrics {
	m := FilterMetrics{Before: before, After: after, FilteredOut: before - after}
	if before > 0 {
		m.FilterRate = float64(before-after) / float64(before) * 100
	}
	return m
}
