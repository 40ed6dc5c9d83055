package session

import (
	"fmt"
	"math/rand"
)

// fallbackQuestions are offered when no recent topics are known.
var fallbackQuestions = []string{
	"What alarms are currently active in my region?",
	"Show me the latest incidents on the core network",
	"How do I escalate a critical fault?",
}

// questionTemplates produce one topic-specific suggestion each. One of
// them is chosen uniformly at random per topic.
var questionTemplates = []string{
	"Tell me more about %s",
	"Are there open incidents related to %s?",
	"What is the usual fix for %s issues?",
	"Show recent history for %s",
}

// maxSuggestedTopics bounds how many recent topics produce a suggestion.
const maxSuggestedTopics = 3

// suggestQuestions builds follow-up question suggestions from recent
// topics. With no topics it returns the fixed fallback list; otherwise
// one randomly templated question per topic, up to three topics.
func suggestQuestions(recentTopics []string, rng *rand.Rand) []string {
	if len(recentTopics) == 0 {
		out := make([]string, len(fallbackQuestions))
		copy(out, fallbackQuestions)
		return out
	}

	n := len(recentTopics)
	if n > maxSuggestedTopics {
		n = maxSuggestedTopics
	}

	out := make([]string, 0, n)
	for _, topic := range recentTopics[:n] {
		tmpl := questionTemplates[rng.Intn(len(questionTemplates))]
		out = append(out, fmt.Sprintf(tmpl, topic))
	}
	return out
}
