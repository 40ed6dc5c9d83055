// Package topics provides bag-of-words topic extraction for conversation text.
//
// Extraction is pure and deterministic: no stemming, no frequency ranking,
// no I/O. Tokens keep their first-seen order, which is what the recent-topic
// lists in the memory manager rely on.
package topics

import (
	"strings"
	"unicode"
)

// DefaultMaxTopics is the number of topics Extract returns at most.
const DefaultMaxTopics = 5

// minTokenLen is the minimum rune length for a token to qualify as a topic.
const minTokenLen = 4

// stopWords are common English words that never qualify as topics.
// Tokens shorter than minTokenLen are dropped before this set is consulted,
// so only longer function words need to appear here.
var stopWords = map[string]struct{}{
	"about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"because": {}, "been": {}, "before": {}, "being": {}, "below": {},
	"between": {}, "both": {}, "could": {}, "does": {}, "doing": {},
	"down": {}, "during": {}, "each": {}, "from": {}, "further": {},
	"have": {}, "having": {}, "here": {}, "into": {}, "itself": {},
	"just": {}, "more": {}, "most": {}, "once": {}, "only": {},
	"other": {}, "over": {}, "please": {}, "same": {}, "should": {},
	"show": {}, "some": {}, "such": {}, "than": {}, "that": {},
	"thats": {}, "their": {}, "them": {}, "then": {}, "there": {},
	"these": {}, "they": {}, "this": {}, "those": {}, "through": {},
	"under": {}, "until": {}, "very": {}, "want": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"whom": {}, "will": {}, "with": {}, "would": {}, "your": {},
	"yours": {},
}

// Extract returns up to DefaultMaxTopics candidate topic words from text.
//
// The input is lowercased, stripped of everything that is not a word or
// space character, and split on whitespace. Stop words and tokens shorter
// than four runes are dropped, duplicates are removed preserving first-seen
// order, and the result is capped.
//
// Empty or punctuation-only input yields nil.
func Extract(text string) []string {
	return ExtractN(text, DefaultMaxTopics)
}

// ExtractN is Extract with a caller-chosen cap on the number of topics.
// A non-positive max yields nil.
func ExtractN(text string, max int) []string {
	if max <= 0 {
		return nil
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return r
		default:
			return -1
		}
	}, text)

	var result []string
	seen := make(map[string]struct{})
	for _, token := range strings.Fields(cleaned) {
		if len([]rune(token)) < minTokenLen {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
		if len(result) == max {
			break
		}
	}

	return result
}

// Merge folds incoming topics into an existing most-recent-first topic list.
//
// Incoming topics take the front of the list in their extraction order,
// duplicates already present move up rather than repeating, and the result
// is capped at max entries. The returned slice is always freshly allocated.
func Merge(existing, incoming []string, max int) []string {
	if max <= 0 {
		return nil
	}

	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, t := range incoming {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range existing {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}

	if len(merged) > max {
		merged = merged[:max]
	}
	return merged
}
