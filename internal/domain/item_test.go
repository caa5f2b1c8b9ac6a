package domain

import (
	"strings"
	"testing"
)

func TestIsRemoved_Sentinels(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{"[removed]", true},
		{"[deleted]", true},
		{"[unavailable]", true},
		{"[REMOVED]", true},
		{"  [Deleted]  ", true},
		{"removed", false},
		{"[removed] by mods", false},
		{"", false},
		{"normal body text", false},
	}
	for _, tc := range cases {
		item := Item{Kind: KindPost, Body: tc.body}
		if got := item.IsRemoved(); got != tc.want {
			t.Errorf("IsRemoved(%q) = %v, want %v", tc.body, got, tc.want)
		}
	}
}

func TestTextLength_PostCombinesTitleAndBody(t *testing.T) {
	post := Item{Kind: KindPost, Title: "12345", Body: "67890"}
	if got := post.TextLength(); got != 10 {
		t.Errorf("post TextLength = %d, want 10", got)
	}
	comment := Item{Kind: KindComment, Title: "ignored", Body: "67890"}
	if got := comment.TextLength(); got != 5 {
		t.Errorf("comment TextLength = %d, want 5", got)
	}
}

func TestText_MissingBodyIsEmptyNotPanic(t *testing.T) {
	post := Item{Kind: KindPost, Title: "only a title"}
	if got := post.Text(); got != "only a title" {
		t.Errorf("Text = %q", got)
	}
	empty := Item{Kind: KindPost}
	if got := empty.Text(); got != "" {
		t.Errorf("Text on empty item = %q, want empty", got)
	}
}

func TestIsTitleOnly(t *testing.T) {
	if !(Item{Kind: KindPost, Title: "t"}).IsTitleOnly() {
		t.Error("post with title and no body should be title-only")
	}
	if (Item{Kind: KindPost, Title: "t", Body: "b"}).IsTitleOnly() {
		t.Error("post with body is not title-only")
	}
	if (Item{Kind: KindComment, Body: ""}).IsTitleOnly() {
		t.Error("comments are never title-only")
	}
}

func TestPreview_TruncatesToExactly200(t *testing.T) {
	long := strings.Repeat("a", 500)
	if got := Preview(long); len([]rune(got)) != PreviewLength {
		t.Errorf("preview length = %d, want %d", len([]rune(got)), PreviewLength)
	}
	short := "short body"
	if got := Preview(short); got != short {
		t.Errorf("short preview = %q, want unchanged", got)
	}
	exact := strings.Repeat("b", PreviewLength)
	if got := Preview(exact); got != exact {
		t.Error("exact-length body should be unchanged")
	}
}

func TestNewFilterMetrics_ZeroDenominator(t *testing.T) {
	m := NewFilterMetrics(0, 0)
	if m.FilterRate != 0 {
		t.Errorf("filter rate on empty input = %f, want 0", m.FilterRate)
	}
}

func TestNewFilterMetrics_Rate(t *testing.T) {
	m := NewFilterMetrics(4, 1)
	if m.FilterRate != 75 {
		t.Errorf("filter rate = %f, want 75", m.FilterRate)
	}
	if m.FilteredOut != 3 {
		t.Errorf("filtered out = %d, want 3", m.FilteredOut)
	}
	if m.After > m.Before {
		t.Error("after must not exceed before")
	}
}
