package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	ref := time.Date(2025, time.March, 20, 15, 30, 0, 0, time.UTC)
	today := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		text     string
		expected time.Time
	}{
		{name: "empty", text: "", expected: today},
		{name: "whitespace only", text: "   \n", expected: today},
		{name: "days ago", text: "3 days ago", expected: today.AddDate(0, 0, -3)},
		{name: "posted prefix", text: "Posted 1 day ago", expected: today.AddDate(0, 0, -1)},
		{name: "weeks", text: "2 weeks ago", expected: today.AddDate(0, 0, -14)},
		{name: "months use thirty days", text: "2 months ago", expected: today.AddDate(0, 0, -60)},
		{name: "hours same day", text: "5 hours ago", expected: today},
		{name: "hours cross midnight", text: "16 hours ago", expected: today.AddDate(0, 0, -1)},
		{name: "only first match counts", text: "3 days ago, updated 1 week ago", expected: today.AddDate(0, 0, -3)},
		{name: "iso date", text: "2024-01-15", expected: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)},
		{name: "iso datetime", text: "2024-01-15T10:20:30Z", expected: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)},
		{name: "iso datetime with space", text: "2024-02-01 08:00:00", expected: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{name: "not a date", text: "not a date", expected: today},
		{name: "unit without number", text: "days ago", expected: today},
		{name: "embedded iso is not parsed", text: "posted on 2024-01-15", expected: today},
		{name: "hours beyond duration range", text: "9999999999 hours ago", expected: today},
		{name: "days before year one", text: "posted 100000000 days ago", expected: today},
		{name: "months before year one", text: "5000000 months ago", expected: today},
		{name: "weeks before year one", text: "600000 weeks ago", expected: today},
		{name: "number too large to parse", text: "99999999999999999999 days ago", expected: today},
		{name: "far but valid", text: "700000 days ago", expected: today.AddDate(0, 0, -700000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.text, ref))
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	ref := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	first := Resolve("4 weeks ago", ref)
	second := Resolve("4 weeks ago", ref)
	assert.Equal(t, first, second)
	assert.Equal(t, time.Date(2024, time.December, 4, 0, 0, 0, 0, time.UTC), first)
}

func TestDay(t *testing.T) {
	in := time.Date(2025, time.June, 7, 23, 59, 59, 999, time.UTC)
	assert.Equal(t, time.Date(2025, time.June, 7, 0, 0, 0, 0, time.UTC), Day(in))
}
