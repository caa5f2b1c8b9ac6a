package quality

import (
	"strings"
	"testing"

	"github.com/prevalidate/researchd/internal/domain"
)

func post(id, title, body string) domain.Item {
	return domain.Item{ID: id, Kind: domain.KindPost, Title: title, Body: body, Community: "r/test"}
}

func comment(id, body string) domain.Item {
	return domain.Item{ID: id, Kind: domain.KindComment, Body: body, Community: "r/test"}
}

func TestFilter_PriorityOrder_RemovedWinsOverTooShort(t *testing.T) {
	// "[removed]" is also trivially short; the first matching check must win.
	res := New().Filter([]domain.Item{post("p1", "", "[removed]")})

	if len(res.Filtered) != 1 {
		t.Fatalf("expected 1 filtered, got %d", len(res.Filtered))
	}
	if res.Decisions[0].Reason != domain.ReasonRemovedDeleted {
		t.Errorf("reason = %q, want %q", res.Decisions[0].Reason, domain.ReasonRemovedDeleted)
	}
}

func TestFilter_PartitionCompleteness(t *testing.T) {
	items := []domain.Item{
		post("p1", "a real title", strings.Repeat("content ", 10)),
		post("p2", "", "[deleted]"),
		comment("c1", "too short"),
		comment("c2", strings.Repeat("long enough comment body ", 3)),
	}
	res := New().Filter(items)

	if len(res.Passed)+len(res.Filtered) != len(items) {
		t.Errorf("partition incomplete: %d + %d != %d", len(res.Passed), len(res.Filtered), len(items))
	}
	if len(res.Decisions) != len(res.Filtered) {
		t.Errorf("decisions = %d, filtered = %d; want equal", len(res.Decisions), len(res.Filtered))
	}
}

func TestFilter_LengthBoundary_Posts(t *testing.T) {
	exact := post("exact", "", strings.Repeat("a", DefaultMinPostChars))
	short := post("short", "", strings.Repeat("a", DefaultMinPostChars-1))

	res := New().Filter([]domain.Item{exact, short})

	if len(res.Passed) != 1 || res.Passed[0].ID != "exact" {
		t.Fatalf("expected only the exact-length post to pass, passed=%v", res.Passed)
	}
	if res.Decisions[0].Reason != domain.ReasonTooShort {
		t.Errorf("reason = %q, want too_short", res.Decisions[0].Reason)
	}
}

func TestFilter_LengthBoundary_TitleCountsForPosts(t *testing.T) {
	// 25-char title + 25-char body meets the 50-char combined threshold.
	item := post("p", strings.Repeat("t", 25), strings.Repeat("b", 25))
	res := New().Filter([]domain.Item{item})
	if len(res.Passed) != 1 {
		t.Error("combined title+body at threshold should pass")
	}
}

func TestFilter_LengthBoundary_Comments(t *testing.T) {
	exact := comment("exact", strings.Repeat("a", DefaultMinCommentChars))
	short := comment("short", strings.Repeat("a", DefaultMinCommentChars-1))

	res := New().Filter([]domain.Item{exact, short})

	if len(res.Passed) != 1 || res.Passed[0].ID != "exact" {
		t.Fatalf("expected only the exact-length comment to pass")
	}
}

func TestFilter_CustomThresholds(t *testing.T) {
	g := New().WithThresholds(10, 5)
	res := g.Filter([]domain.Item{
		post("p", "", strings.Repeat("a", 10)),
		comment("c", strings.Repeat("a", 4)),
	})
	if len(res.Passed) != 1 || res.Passed[0].ID != "p" {
		t.Errorf("custom thresholds not applied: passed=%v", res.Passed)
	}
}

func TestFilter_NonEnglishBoundary(t *testing.T) {
	// 100 letters each; the bound is exclusive at exactly 30%.
	cases := []struct {
		name     string
		accented int
		wantPass bool
	}{
		{"29pct", 29, true},
		{"30pct", 30, true},
		{"31pct", 31, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := strings.Repeat("é", tc.accented) + strings.Repeat("a", 100-tc.accented)
			res := New().Filter([]domain.Item{post("p", "", body)})
			passed := len(res.Passed) == 1
			if passed != tc.wantPass {
				t.Errorf("accented=%d: passed=%v, want %v", tc.accented, passed, tc.wantPass)
			}
			if !tc.wantPass && res.Decisions[0].Reason != domain.ReasonNonEnglish {
				t.Errorf("reason = %q, want non_english", res.Decisions[0].Reason)
			}
		})
	}
}

func TestFilter_ShortTextRejectedAsTooShortNotNonEnglish(t *testing.T) {
	// Heavily accented but below the length threshold: too_short wins by order.
	res := New().Filter([]domain.Item{post("p", "", "ééééé")})
	if res.Decisions[0].Reason != domain.ReasonTooShort {
		t.Errorf("reason = %q, want too_short", res.Decisions[0].Reason)
	}
}

func TestFilter_Spam(t *testing.T) {
	spammy := []string{
		"Huge sale this week, 50% off everything, " + strings.Repeat("go ", 10),
		"I made a tool for this, subscribe to my channel for updates and tips!",
		"Struggling with invoices? DM me and I will sort you out, seriously just ask",
		"Get your free trial today, no credit card needed, cancel anytime you like",
	}
	for _, body := range spammy {
		res := New().Filter([]domain.Item{post("p", "", body)})
		if len(res.Filtered) != 1 {
			t.Errorf("expected spam rejection for %q", body)
			continue
		}
		if res.Decisions[0].Reason != domain.ReasonSpam {
			t.Errorf("reason = %q for %q, want spam", res.Decisions[0].Reason, body)
		}
	}
}

func TestFilter_CleanPostPasses(t *testing.T) {
	body := "I spend every Sunday night chasing unpaid invoices from clients and it is exhausting."
	res := New().Filter([]domain.Item{post("p", "Invoicing pain", body)})
	if len(res.Passed) != 1 {
		t.Fatalf("clean post should pass, decisions=%v", res.Decisions)
	}
	if len(res.Decisions) != 0 {
		t.Errorf("pass should not record a decision, got %v", res.Decisions)
	}
}

func TestFilter_PreviewTruncated(t *testing.T) {
	long := "[removed]"
	_ = long
	body := strings.Repeat("spam spam ", 60) + "dm me"
	res := New().Filter([]domain.Item{post("p", "", body)})
	if len(res.Decisions) != 1 {
		t.Fatalf("expected one decision")
	}
	if got := len([]rune(res.Decisions[0].BodyPreview)); got != domain.PreviewLength {
		t.Errorf("preview length = %d, want %d", got, domain.PreviewLength)
	}
}
