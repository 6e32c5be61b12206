// Package aggregate implements the candidate aggregators of spec §4.4:
// MajorityVote, BestOfN, and Weighted. Grounded on the teacher's
// orchestration combineWithCritique/extractQualityScore normalization
// idiom (other_examples' aixgo reflection orchestrator), generalized from
// a single quality score to full answer-text normalization.
package aggregate

import (
	"regexp"
	"strings"

	"github.com/calibrateai/accuracy/accuracytype"
)

var (
	terminalMarkerRe = regexp.MustCompile(`(?is)(?:^|\n\s*\n)\s*(Answer|Therefore|Thus|So|The answer is|Result):\s*(.+)\z`)
	quotedValueRe    = regexp.MustCompile(`"([^"]*)"`)
	punctTrimRe      = regexp.MustCompile(`^[\s.,!?;:'"()\[\]{}]+|[\s.,!?;:'"()\[\]{}]+$`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// NormalizeAnswer canonicalizes a candidate's raw text for vote comparison,
// per spec §4.4:
//  1. a quoted value anywhere in the text overrides any other extraction;
//  2. otherwise, text after a terminal marker ("Answer:", "Therefore:", ...)
//     preceded by a blank line is used;
//  3. otherwise, the last non-empty line is used;
//  4. lowercase, collapse internal whitespace, strip surrounding
//     punctuation.
func NormalizeAnswer(raw string) string {
	extracted := raw

	if m := quotedValueRe.FindStringSubmatch(raw); m != nil {
		extracted = m[1]
	} else if m := terminalMarkerRe.FindStringSubmatch(raw); m != nil {
		extracted = m[2]
	} else {
		extracted = lastNonEmptyLine(raw)
	}

	lower := strings.ToLower(extracted)
	collapsed := whitespaceRe.ReplaceAllString(strings.TrimSpace(lower), " ")
	return punctTrimRe.ReplaceAllString(collapsed, "")
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return s
}

// Distribution tallies normalized-answer vote counts across candidates.
func Distribution(candidates []*accuracytype.Candidate) map[string]int {
	dist := make(map[string]int, len(candidates))
	for _, c := range candidates {
		key := NormalizeAnswer(c.Content)
		dist[key]++
	}
	return dist
}

// modeFirstSeen returns the normalized answer with the highest vote count,
// breaking ties by first occurrence in candidates.
func modeFirstSeen(candidates []*accuracytype.Candidate) (winner string, votes, total int) {
	counts := map[string]int{}
	order := []string{}
	for _, c := range candidates {
		key := NormalizeAnswer(c.Content)
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}
	total = len(candidates)
	best := ""
	bestCount := -1
	for _, key := range order {
		if counts[key] > bestCount {
			best = key
			bestCount = counts[key]
		}
	}
	return best, bestCount, total
}
