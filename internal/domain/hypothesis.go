package domain

import "strings"

// StructuredHypothesis is the optional decomposition of a raw hypothesis.
type StructuredHypothesis struct {
	Audience        string   `json:"audience,omitempty"`
	Problem         string   `json:"problem,omitempty"`
	ProblemLanguage string   `json:"problem_language,omitempty"`
	Solution        string   `json:"solution,omitempty"`
	ExcludeTopics   []string `json:"exclude_topics,omitempty"`
	Geography       string   `json:"geography,omitempty"`
}

// Hypothesis is the user's stated problem/audience pairing under validation.
type Hypothesis struct {
	Raw        string                `json:"raw"`
	Structured *StructuredHypothesis `json:"structured,omitempty"`
}

// ExcludeTopics returns the caller-supplied off-topic terms, or nil when the
// hypothesis has no structured form.
func (h Hypothesis) ExcludeTopics() []string {
	if h.Structured == nil {
		return nil
	}
	return h.Structured.ExcludeTopics
}

// Summary is the text handed to the classification capability: the structured
// problem statement when present, otherwise the raw hypothesis.
func (h Hypothesis) Summary() string {
	if h.Structured != nil && h.Structured.Problem != "" {
		var b strings.Builder
		b.WriteString(h.Structured.Problem)
		if h.Structured.Audience != "" {
			b.WriteString(" (audience: ")
			b.WriteString(h.Structured.Audience)
			b.WriteString(")")
		}
		return b.String()
	}
	return h.Raw
}

// KeywordSet is the small structured keyword set extracted from a hypothesis.
type KeywordSet struct {
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
	Exclude   []string `json:"exclude"`
}

// IsEmpty reports whether no keywords were extracted at all.
func (k KeywordSet) IsEmpty() bool {
	return len(k.Primary) == 0 && len(k.Secondary) == 0 && len(k.Exclude) == 0
}

// All returns primary then secondary keywords in extraction order.
func (k KeywordSet) All() []string {
	out := make([]string, 0, len(k.Primary)+len(k.Secondary))
	out = append(out, k.Primary...)
	return append(out, k.Secondary...)
}

// AppMetadata anchors an App-Gap run on an existing app.
type AppMetadata struct {
	AppID    string `json:"app_id"`
	Name     string `json:"name"`
	Store    string `json:"store"`
	Category string `json:"category,omitempty"`
}

type modeKind int

const (
	modeHypothesis modeKind = iota
	modeAppGap
)

// Mode is the run mode, fixed once at context creation. App metadata is only
// reachable through App(), which reports whether the run is App-Gap — there
// is no way to read app fields out of a hypothesis run.
type Mode struct {
	kind modeKind
	app  AppMetadata
}

// HypothesisMode is a free-text hypothesis run.
func HypothesisMode() Mode { return Mode{kind: modeHypothesis} }

// AppGapMode is a run anchored on an existing app's reviews.
func AppGapMode(app AppMetadata) Mode { return Mode{kind: modeAppGap, app: app} }

// DetectMode derives the run mode from the presence of app metadata.
func DetectMode(app *AppMetadata) Mode {
	if app != nil && app.AppID != "" {
		return AppGapMode(*app)
	}
	return HypothesisMode()
}

// IsAppGap reports an App-Gap run. Every mode-sensitive branch must route
// through this predicate or IsHypothesis, never through field inspection.
func (m Mode) IsAppGap() bool { return m.kind == modeAppGap }

// IsHypothesis reports a free-text hypothesis run.
func (m Mode) IsHypothesis() bool { return m.kind == modeHypothesis }

// App returns the app metadata and whether the run is App-Gap.
func (m Mode) App() (AppMetadata, bool) {
	if m.kind != modeAppGap {
		return AppMetadata{}, false
	}
	return m.app, true
}

func (m Mode) String() string {
	if m.kind == modeAppGap {
		return "app-gap"
	}
	return "hypothesis"
}
