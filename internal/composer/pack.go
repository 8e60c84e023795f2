package composer

import "strings"

// Sentence budgets, counted in runes. Mode 1 emits one message up to
// singleBudget; modes 2 and 3 emit short sentences up to perSentenceBudget
// each, bounded by multiTotalBudget across the whole reply.
const (
	singleBudget      = 35
	perSentenceBudget = 18
	multiTotalBudget  = 36
)

var sentenceTerminators = map[rune]bool{'。': true, '！': true, '？': true, '!': true, '?': true}

// fillerSuffixes are stripped before comparing sentences for dedupe, so
// "抱抱～" and "抱抱啦" count as the same line.
var fillerSuffixes = map[rune]bool{'～': true, '啦': true, '嘛': true, '喔': true, '耶': true}

// splitSentences cuts raw completion text into sentence candidates on
// terminal punctuation and newlines. Terminators stay attached.
func splitSentences(text string) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		s := strings.TrimSpace(string(cur))
		if s != "" {
			out = append(out, s)
		}
		cur = cur[:0]
	}
	for _, r := range text {
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		cur = append(cur, r)
		if sentenceTerminators[r] {
			flush()
		}
	}
	flush()
	return out
}

// packSingle picks the first candidate within the single-message budget,
// degrading to the first candidate, then to the default line.
func packSingle(candidates []string, defaultLine string) string {
	for _, c := range candidates {
		if len([]rune(c)) <= singleBudget {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return defaultLine
}

// packMulti keeps up to mode sentences that fit the per-sentence budget,
// then drops from the tail until the combined length fits the total
// budget. May return nothing; the caller substitutes a short fallback.
func packMulti(candidates []string, mode int) []string {
	var picked []string
	for _, c := range candidates {
		if len([]rune(c)) <= perSentenceBudget {
			picked = append(picked, c)
			if len(picked) == mode {
				break
			}
		}
	}
	for len(picked) > 0 && totalRunes(picked) > multiTotalBudget {
		picked = picked[:len(picked)-1]
	}
	return picked
}

func totalRunes(ss []string) int {
	n := 0
	for _, s := range ss {
		n += len([]rune(s))
	}
	return n
}

// normalizeSentence strips trailing filler suffixes and terminal
// punctuation for dedupe comparison.
func normalizeSentence(s string) string {
	runes := []rune(strings.TrimSpace(s))
	for len(runes) > 0 {
		last := runes[len(runes)-1]
		if fillerSuffixes[last] || sentenceTerminators[last] {
			runes = runes[:len(runes)-1]
			continue
		}
		break
	}
	return string(runes)
}
