package relevance

import (
	"strings"

	"github.com/prevalidate/researchd/internal/domain"
)

// ApplyExcludes drops items whose title+body contains any exclude term,
// case-insensitively, before the expensive classification stage runs. This is
// a best-effort cost-reduction pass, not an audited stage, so it records no
// decisions. An empty exclude list returns the input unchanged.
func ApplyExcludes(items []domain.Item, excludes []string) []domain.Item {
	if len(excludes) == 0 {
		return items
	}

	terms := make([]string, 0, len(excludes))
	for _, e := range excludes {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			terms = append(terms, e)
		}
	}
	if len(terms) == 0 {
		return items
	}

	kept := make([]domain.Item, 0, len(items))
	for _, item := range items {
		text := strings.ToLower(item.Text())
		hit := false
		for _, t := range terms {
			if strings.Contains(text, t) {
				hit = true
				break
			}
		}
		if !hit {
			kept = append(kept, item)
		}
	}
	return kept
}
