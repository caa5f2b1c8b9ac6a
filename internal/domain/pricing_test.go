package domain

import (
	"math"
	"testing"
)

func TestMonthlyPrice(t *testing.T) {
	cases := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"$9-$49/month", 29, true},
		{"$348/year", 29, true},
		{"Contact us", 0, false},
		{"$29/month", 29, true},
		{"$19.99 per month", 19.99, true},
		{"$120 annually", 10, true},
		{"Free", 0, false},
		{"", 0, false},
		{"from $10 to $30/mo", 20, true},
	}
	for _, tc := range cases {
		got, ok := MonthlyPrice(tc.in)
		if ok != tc.wantOK {
			t.Errorf("MonthlyPrice(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			continue
		}
		if ok && math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("MonthlyPrice(%q) = %f, want %f", tc.in, got, tc.want)
		}
	}
}
