package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Cluster is a downstream pain-cluster record handed back from analysis.
// Every field may be absent on a malformed record; accessors apply defaults
// so a single bad record never aborts a batch.
type Cluster struct {
	Label    string         `json:"label,omitempty"`
	Sources  map[string]int `json:"sources,omitempty"`
	Cohesion *float64       `json:"cohesion,omitempty"`
	Tier     string         `json:"tier,omitempty"`
	Quotes   []string       `json:"quotes,omitempty"`
}

// SourcesLine renders the per-community source counts, or "unknown" when the
// sources map is missing or empty.
func (c Cluster) SourcesLine() string {
	if len(c.Sources) == 0 {
		return "Sources: unknown"
	}
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s (%d)", name, c.Sources[name])
	}
	return "Sources: " + strings.Join(parts, ", ")
}

// CohesionLine renders the cohesion score with its tier label. A missing
// score defaults to 0.00 and a missing tier to "moderate".
func (c Cluster) CohesionLine() string {
	score := 0.0
	if c.Cohesion != nil {
		score = *c.Cohesion
	}
	tier := c.Tier
	if tier == "" {
		tier = "moderate"
	}
	return fmt.Sprintf("Cohesion: %.2f (%s)", score, tier)
}

// QuoteLines renders each representative quote as a bullet line. A record
// without quotes yields no lines.
func (c Cluster) QuoteLines() []string {
	lines := make([]string, 0, len(c.Quotes))
	for _, q := range c.Quotes {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %q", q))
	}
	return lines
}
