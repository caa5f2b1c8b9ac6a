package openai

import (
	"testing"
)

func TestParseRelevance_StrictJSON(t *testing.T) {
	rel, err := parseRelevance(`{"relevant": true, "problem_match": true, "confidence": 0.85, "reason": "first-hand pain"}`)
	if err != nil {
		t.Fatal(err)
	}
	if !rel.Relevant || !rel.ProblemMatch || rel.Confidence != 0.85 {
		t.Errorf("relevance = %+v", rel)
	}
}

func TestParseRelevance_ToleratesFencesAndProse(t *testing.T) {
	cases := []string{
		"```json\n{\"relevant\": false, \"confidence\": 0.2, \"reason\": \"off topic\"}\n```",
		"Here is my verdict: {\"relevant\": false, \"confidence\": 0.2, \"reason\": \"off topic\"} Hope that helps!",
	}
	for _, content := range cases {
		rel, err := parseRelevance(content)
		if err != nil {
			t.Errorf("parse %q: %v", content, err)
			continue
		}
		if rel.Relevant || rel.Confidence != 0.2 {
			t.Errorf("relevance = %+v for %q", rel, content)
		}
	}
}

func TestParseRelevance_Malformed(t *testing.T) {
	cases := []string{
		"",
		"I cannot answer that.",
		`{"relevant": "maybe"}`,
		`{"relevant": true, "confidence": 1.5}`,
		`{"relevant": true, "confidence": -0.1}`,
	}
	for _, content := range cases {
		if _, err := parseRelevance(content); err == nil {
			t.Errorf("expected parse error for %q", content)
		}
	}
}

func TestParseKeywords(t *testing.T) {
	kw, err := parseKeywords(`{"primary": ["late invoices", "unpaid clients"], "secondary": ["freelance billing"], "exclude": ["crypto"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(kw.Primary) != 2 || len(kw.Secondary) != 1 || len(kw.Exclude) != 1 {
		t.Errorf("keywords = %+v", kw)
	}
}

func TestParseKeywords_EmptySetIsError(t *testing.T) {
	if _, err := parseKeywords(`{"primary": [], "secondary": [], "exclude": []}`); err == nil {
		t.Error("an all-empty keyword set must be rejected")
	}
}

func TestExtractJSON(t *testing.T) {
	got, err := extractJSON("noise {\"a\": {\"b\": 1}} trailing")
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"a": {"b": 1}}` {
		t.Errorf("extracted %q", got)
	}

	if _, err := extractJSON("no braces here"); err == nil {
		t.Error("expected error without a JSON object")
	}
}
