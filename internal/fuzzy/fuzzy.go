// Package fuzzy implements weighted string similarity for keyword search.
//
// All scores are in [0,1]. WRatio picks the best of several strategies
// (full ratio, best-window partial ratio, sorted-token and token-set
// comparisons) and down-weights the partial and token strategies so that a
// plain full match always wins ties.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// partialLengthRatio is the length ratio at which partial matching kicks in
	partialLengthRatio = 1.5
	// longLengthRatio is the length ratio beyond which partial scores shrink further
	longLengthRatio = 8.0

	partialScale     = 0.9
	longPartialScale = 0.6
	unbaseScale      = 0.95
)

// Process lowercases s, replaces every non-alphanumeric rune with a space
// and trims the result.
func Process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.TrimSpace(mapped)
}

// Ratio is the normalized indel similarity 1 - indel/(len(a)+len(b)), where
// indel counts the insertions and deletions turning a into b.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	indel := total - 2*lcsLength(ra, rb)
	return 1 - float64(indel)/float64(total)
}

// lcsLength is the length of the longest common subsequence of a and b.
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for _, ca := range a {
		for j, cb := range b {
			switch {
			case ca == cb:
				cur[j+1] = prev[j] + 1
			case prev[j+1] >= cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// PartialRatio is the best Ratio of the shorter string against every
// equal-length window of the longer one.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if len(short) == len(long) {
		return Ratio(a, b)
	}

	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 1 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's remainder.
func TokenSetRatio(a, b string) float64 {
	return tokenSet(a, b, Ratio)
}

// WRatio is the weighted best-of score used for keyword search.
// Inputs are run through Process first; empty input scores 0.
func WRatio(a, b string) float64 {
	p1, p2 := Process(a), Process(b)
	if p1 == "" || p2 == "" {
		return 0
	}

	base := Ratio(p1, p2)

	l1, l2 := float64(len([]rune(p1))), float64(len([]rune(p2)))
	lenRatio := l1 / l2
	if l2 > l1 {
		lenRatio = l2 / l1
	}

	if lenRatio < partialLengthRatio {
		tsor := TokenSortRatio(p1, p2) * unbaseScale
		tser := TokenSetRatio(p1, p2) * unbaseScale
		return max(base, tsor, tser)
	}

	scale := partialScale
	if lenRatio >= longLengthRatio {
		scale = longPartialScale
	}
	partial := PartialRatio(p1, p2) * scale
	ptsor := PartialRatio(sortedTokens(p1), sortedTokens(p2)) * unbaseScale * scale
	ptser := tokenSet(p1, p2, PartialRatio) * unbaseScale * scale
	return max(base, partial, ptsor, ptser)
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(a, b string, score func(string, string) float64) float64 {
	setA := tokenSetOf(a)
	setB := tokenSetOf(b)

	var inter, diffA, diffB []string
	for t := range setA {
		if setB[t] {
			inter = append(inter, t)
		} else {
			diffA = append(diffA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			diffB = append(diffB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(diffA)
	sort.Strings(diffB)

	sect := strings.Join(inter, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(diffA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(diffB, " "))

	best := score(combinedA, combinedB)
	if sect != "" {
		best = max(best, score(sect, combinedA), score(sect, combinedB))
	}
	return best
}

func tokenSetOf(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}
