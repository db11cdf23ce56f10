package dates

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthDays approximates a month; posting dates do not need calendar precision.
const monthDays = 30

const (
	maxHours    = math.MaxInt64 / int64(time.Hour)
	maxSpanDays = 10000 * 366
)

var (
	relativeRegex = regexp.MustCompile(`(\d+)\s+(hours|hour|days|day|weeks|week|months|month)\b`)

	isoLayouts = []string{
		"2006-01-02",
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
)

// Resolve turns a free-text posting date ("posted 3 days ago", "2024-01-15") into a calendar date
// relative to ref. Anything it cannot understand resolves to ref's own date.
func Resolve(text string, ref time.Time) time.Time {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Day(ref)
	}

	//Case 1: "<n> <unit>" anywhere in the text, first match only
	if m := relativeRegex.FindStringSubmatch(text); m != nil {
		qty, err := strconv.Atoi(m[1])
		if err == nil {
			if t, ok := shift(ref, qty, m[2]); ok {
				return Day(t)
			}
			return Day(ref)
		}
	}

	//Case 2: whole text is an ISO date or datetime
	if t, ok := parseISO(text); ok {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ref.Location())
	}

	//default
	return Day(ref)
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// shift moves ref back by qty units. ok is false when the result falls outside years 1..9999.
func shift(ref time.Time, qty int, unit string) (time.Time, bool) {
	switch strings.TrimSuffix(unit, "s") {
	case "hour":
		if int64(qty) > maxHours {
			return ref, false
		}
		t := ref.Add(-time.Duration(qty) * time.Hour)
		return t, inRange(t)
	case "day":
		return shiftDays(ref, qty, 1)
	case "week":
		return shiftDays(ref, qty, 7)
	case "month":
		return shiftDays(ref, qty, monthDays)
	}
	return ref, true
}

func shiftDays(ref time.Time, qty, perUnit int) (time.Time, bool) {
	if qty > maxSpanDays/perUnit {
		return ref, false
	}
	t := ref.AddDate(0, 0, -perUnit*qty)
	return t, inRange(t)
}

func inRange(t time.Time) bool {
	return t.Year() >= 1 && t.Year() <= 9999
}

func parseISO(text string) (time.Time, bool) {
	//layouts expect upper-case T and Z
	text = strings.ToUpper(text)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
