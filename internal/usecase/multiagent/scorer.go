package multiagent

import "strings"

// occurrenceBonus is added per non-overlapping occurrence of a matched keyword.
const occurrenceBonus = 0.1

// Score rates how strongly query matches keywords, in [0, 1].
//
// Matching is case-insensitive substring containment with no tokenisation, so
// "book" also matches inside "bookstore". The base score is the share of
// keywords that match; each occurrence of a matched keyword adds 0.1.
func Score(query string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	q := strings.ToLower(query)

	var matched, occurrences int
	for _, kw := range keywords {
		k := strings.ToLower(kw)
		if k == "" {
			continue
		}
		if n := strings.Count(q, k); n > 0 {
			matched++
			occurrences += n
		}
	}
	if matched == 0 {
		return 0
	}

	score := float64(matched)/float64(len(keywords)) + float64(occurrences)*occurrenceBonus
	if score > 1 {
		return 1
	}
	return score
}
