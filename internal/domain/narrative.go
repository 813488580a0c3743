package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Explicit band statements, checked in order. "moderate" is accepted as
	// a synonym for medium.
	narrativeBandRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(high|medium|moderate|low)\s+severity\b`),
		regexp.MustCompile(`(?i)\bclassified\s+as\s+(high|medium|moderate|low)\b`),
		regexp.MustCompile(`(?i)\boverall\s+severity\s*[:=\-]?\s*(high|medium|moderate|low)\b`),
		regexp.MustCompile(`(?i)\bseverity\s*(?:band|level|rating)?\s*[:=\-]\s*(high|medium|moderate|low)\b`),
	}

	// Explicit numeric statements: "7/10", "7 out of 10", "severity score: 7".
	narrativeScoreRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{1,2})\s*/\s*10\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2})\s+out\s+of\s+10\b`),
		regexp.MustCompile(`(?i)\bseverity(?:\s+score)?\s*(?:of|is|[:=\-])\s*(\d{1,2})\b`),
	}
)

// ParseNarrative scans free analysis text for an explicitly stated severity
// band and numeric score. Either result may be absent: the zero band is ""
// and the zero score is 0. Scores are clamped to [1,10].
func ParseNarrative(text string) (SeverityBand, int) {
	if strings.TrimSpace(text) == "" {
		return "", 0
	}

	var band SeverityBand
	for _, re := range narrativeBandRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		switch strings.ToLower(m[1]) {
		case "high":
			band = BandHigh
		case "medium", "moderate":
			band = BandMedium
		case "low":
			band = BandLow
		}
		break
	}

	score := 0
	for _, re := range narrativeScoreRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n < 1 {
			n = 1
		}
		if n > 10 {
			n = 10
		}
		score = n
		break
	}

	return band, score
}
