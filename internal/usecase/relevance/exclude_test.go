package relevance

import (
	"testing"

	"github.com/prevalidate/researchd/internal/domain"
)

func TestApplyExcludes_EmptyListIsIdentity(t *testing.T) {
	items := []domain.Item{
		{ID: "a", Kind: domain.KindPost, Title: "crypto tax tooling", Body: "some body"},
	}

	got := ApplyExcludes(items, nil)
	if len(got) != 1 {
		t.Fatalf("empty exclude list must return input unchanged, got %d items", len(got))
	}

	got = ApplyExcludes(items, []string{"  ", ""})
	if len(got) != 1 {
		t.Fatalf("blank-only exclude terms must be ignored, got %d items", len(got))
	}
}

func TestApplyExcludes_CaseInsensitiveTitleAndBody(t *testing.T) {
	items := []domain.Item{
		{ID: "title-hit", Kind: domain.KindPost, Title: "Best CRYPTO wallets", Body: "irrelevant"},
		{ID: "body-hit", Kind: domain.KindPost, Title: "question", Body: "mostly about crypto trading"},
		{ID: "clean", Kind: domain.KindPost, Title: "invoice chasing", Body: "clients pay late"},
	}

	got := ApplyExcludes(items, []string{"Crypto"})
	if len(got) != 1 || got[0].ID != "clean" {
		t.Fatalf("expected only the clean item to survive, got %v", got)
	}
}

func TestApplyExcludes_PreservesOrder(t *testing.T) {
	items := []domain.Item{
		{ID: "1", Body: "aaa"},
		{ID: "2", Body: "drop me"},
		{ID: "3", Body: "bbb"},
		{ID: "4", Body: "ccc"},
	}

	got := ApplyExcludes(items, []string{"drop"})
	want := []string{"1", "3", "4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}
