package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var priceAmountRE = regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)`)

var yearlyMarkers = []string{"/year", "/yr", "per year", "annually", "annual", "/annum"}

// MonthlyPrice extracts a normalized monthly price from a free-text pricing
// string scraped from a competitor page. A dollar range averages to its
// midpoint; annual prices convert to monthly. Returns ok=false when no
// parsable dollar amount exists ("Contact us", "Free", empty).
func MonthlyPrice(s string) (float64, bool) {
	matches := priceAmountRE.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, false
	}

	var sum float64
	var count int
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0, false
	}
	price := sum / float64(count)

	lower := strings.ToLower(s)
	for _, marker := range yearlyMarkers {
		if strings.Contains(lower, marker) {
			return price / 12, true
		}
	}
	return price, true
}
