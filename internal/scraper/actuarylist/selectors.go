package actuarylist

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Site markup hooks. Each list is tried in order.
const (
	jobsContainerSelector = "css=#jobs-list"
	jobLinkSelector       = "css=a[href*='/actuarial-jobs/']"
	contentMarkerSelector = "xpath=//h1 | //main"
	bodySelector          = "css=body"

	revealScript = "window.scrollTo(0, document.body.scrollHeight);"
)

var (
	titleSelectors = []string{
		"xpath=//h1",
		"xpath=//h1[contains(@class,'job') or contains(@class,'title')]",
		"css=h1.job-title",
	}

	companySelectors = []string{
		"css=a[href*='/actuarial-employers/']",
		"xpath=//p[contains(@class,'company')]",
		"xpath=//div[contains(@class,'company')]",
		"xpath=//span[contains(@class,'company')]",
		"xpath=//p[contains(@class,'text-gray-600')]",
	}

	locationSelectors = []string{
		"xpath=//span[contains(@class,'location')]",
		"xpath=//p[contains(@class,'location')]",
		"xpath=//li[contains(@class,'location')]",
		"xpath=//div[contains(@class,'location')]",
		"xpath=//p[contains(text(),'Location')]/following-sibling::*",
	}

	smallTextSelector = "css=small, .muted, .text-gray-600"

	postedSelector = "xpath=//*[contains(translate(text(),'POSTED','posted'),'posted') or contains(@class,'date') or name()='time']"

	tagSelector = "xpath=//a[contains(@href,'/tags') or contains(@class,'tag') or contains(@class,'pill') or contains(@class,'badge')]/span" +
		" | //span[contains(@class,'tag') or contains(@class,'badge') or contains(@class,'pill')]"
)

var (
	isoDateRegex     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	relativeKeywords = []string{"ago", "hours", "days", "weeks", "months"}
)

// normalizeText lower-cases and strips combining accents so "Remote" and "Rémote" compare equal.
func normalizeText(str string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, str)
	if err != nil {
		result = str
	}
	return strings.ToLower(result)
}

func looksLikeLocation(text string) bool {
	return strings.Contains(text, ",") || strings.TrimSpace(normalizeText(text)) == "remote"
}

func looksLikePostingDate(text string) bool {
	lower := normalizeText(text)
	if strings.Contains(lower, "posted") || isoDateRegex.MatchString(text) {
		return true
	}
	for _, k := range relativeKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
