// Package quality implements the structural admissibility gate. It is cheap
// and purely local: no call ever leaves the process, so a failure here is a
// bug, not transient unavailability.
package quality

import (
	"regexp"
	"unicode"

	"github.com/prevalidate/researchd/internal/domain"
)

// Default minimum text lengths, in characters.
const (
	DefaultMinPostChars    = 50
	DefaultMinCommentChars = 30
)

// AccentRatioBound is the accented-character fraction above which text is
// treated as non-English. The bound is exclusive: exactly 30% passes, only a
// strictly greater ratio rejects. Known limitation: non-Latin scripts
// (Cyrillic, CJK) are not reliably detected by this heuristic.
const AccentRatioBound = 0.30

// spamPatterns match promotional language, self-promotion, and solicitation.
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}% off\b`),
	regexp.MustCompile(`(?i)\b(discount code|promo code|coupon code)\b`),
	regexp.MustCompile(`(?i)\bfree trial\b`),
	regexp.MustCompile(`(?i)\blimited[- ]time offer\b`),
	regexp.MustCompile(`(?i)\bbuy now\b`),
	regexp.MustCompile(`(?i)subscribe to my channel`),
	regexp.MustCompile(`(?i)\bfollow me on\b`),
	regexp.MustCompile(`(?i)\bdm me\b`),
	regexp.MustCompile(`(?i)\blink in (my )?bio\b`),
}

// Gate filters items on structural quality before any external call runs.
type Gate struct {
	minPostChars    int
	minCommentChars int
}

// New creates a quality gate with default length thresholds.
func New() *Gate {
	return &Gate{minPostChars: DefaultMinPostChars, minCommentChars: DefaultMinCommentChars}
}

// WithThresholds overrides the minimum lengths. Non-positive values keep the
// defaults.
func (g *Gate) WithThresholds(minPost, minComment int) *Gate {
	if minPost > 0 {
		g.minPostChars = minPost
	}
	if minComment > 0 {
		g.minCommentChars = minComment
	}
	return g
}

// Filter partitions items into passed and filtered, recording one rejection
// decision per filtered item. Checks run in strict priority order and the
// first match wins: removed/deleted, too-short, non-English, spam.
func (g *Gate) Filter(items []domain.Item) domain.FilterResult {
	res := domain.FilterResult{
		Passed:    make([]domain.Item, 0, len(items)),
		Filtered:  make([]domain.Item, 0),
		Decisions: make([]domain.Decision, 0),
	}

	for _, item := range items {
		if reason, rejected := g.check(item); rejected {
			res.Filtered = append(res.Filtered, item)
			res.Decisions = append(res.Decisions, domain.NewRejection(item, domain.StageQuality, reason))
			continue
		}
		res.Passed = append(res.Passed, item)
	}

	return res
}

func (g *Gate) check(item domain.Item) (domain.Reason, bool) {
	if item.IsRemoved() {
		return domain.ReasonRemovedDeleted, true
	}

	minLen := g.minPostChars
	if item.Kind == domain.KindComment {
		minLen = g.minCommentChars
	}
	if item.TextLength() < minLen {
		return domain.ReasonTooShort, true
	}

	if accentRatio(item.Text()) > AccentRatioBound {
		return domain.ReasonNonEnglish, true
	}

	if isSpam(item.Text()) {
		return domain.ReasonSpam, true
	}

	return "", false
}

// accentRatio is the fraction of alphabetic characters that are Latin
// accented letters. Zero when the text has no letters at all.
func accentRatio(text string) float64 {
	var letters, accented int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r >= 0x00C0 && r <= 0x024F {
			accented++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(accented) / float64(letters)
}

func isSpam(text string) bool {
	for _, re := range spamPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
