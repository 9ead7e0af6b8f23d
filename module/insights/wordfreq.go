package insights

import (
	"sort"
	"strings"
)

// WordFrequency is one entry in a round's word cloud.
type WordFrequency struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

const maxWordFrequencies = 60

// stopWords mixes general English stop words with terms so generic in
// this domain that counting them tells admins nothing.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "your", "all", "any",
		"can", "had", "has", "have", "her", "his", "him", "was", "were", "one",
		"our", "out", "she", "they", "them", "their", "this", "that", "these",
		"those", "with", "from", "what", "when", "where", "which", "who", "why",
		"how", "been", "being", "will", "would", "could", "should", "there",
		"here", "about", "into", "over", "under", "just", "very", "really",
		"some", "more", "most", "much", "many", "also", "than", "then", "its",
		"it's", "i'm", "i've", "don't", "doesn't", "didn't", "can't", "won't",
		"we're", "we've", "they're", "get", "got", "like", "think", "know",
		"feel", "want", "need", "make", "made", "good", "well", "things",
		"thing", "going", "does", "did", "too", "because", "yes", "yeah",
		"management", "company", "board", "hoa", "survey", "question",
		"community", "association", "property", "members", "member",
	} {
		stopWords[w] = struct{}{}
	}
}

// tokenize lowercases, strips everything outside [a-z '-], and splits on
// whitespace. Tokens of length <= 2 and stop words are dropped.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || r == '\'' || r == '-' || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if len(f) <= 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// ComputeWordFrequencies counts token occurrences across the given texts
// and keeps the top 60 by count descending. Ties keep first-seen order.
func ComputeWordFrequencies(texts []string) []WordFrequency {
	counts := map[string]int{}
	var order []string
	for _, text := range texts {
		for _, tok := range tokenize(text) {
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	freqs := make([]WordFrequency, 0, len(order))
	for _, w := range order {
		freqs = append(freqs, WordFrequency{Word: w, Count: counts[w]})
	}
	// Stable sort preserves encounter order within equal counts.
	sort.SliceStable(freqs, func(i, j int) bool { return freqs[i].Count > freqs[j].Count })
	if len(freqs) > maxWordFrequencies {
		freqs = freqs[:maxWordFrequencies]
	}
	return freqs
}
