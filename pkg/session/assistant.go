package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/netopshub/nocmem-go/pkg/core"
	"github.com/netopshub/nocmem-go/pkg/llm"
)

const intentPrompt = `You classify messages from a telecom network operator.
Does the following message ask to create, open, or report a new incident or fault ticket?
Answer with exactly one word: yes or no.

Message: %s`

const answerSystemPrompt = `You are an assistant for telecom network operations engineers.
Answer concisely and technically. Use the context about the operator when it is relevant.`

// Assistant answers operator questions and classifies their intent,
// grounding its replies in the operator's stored memory.
type Assistant struct {
	provider llm.Provider
	memory   *core.Manager
}

// NewAssistant creates an Assistant over an LLM provider and a memory manager.
func NewAssistant(provider llm.Provider, memory *core.Manager) *Assistant {
	return &Assistant{
		provider: provider,
		memory:   memory,
	}
}

// WantsIncident reports whether the message asks to open a new
// incident, using a constrained yes/no classification prompt.
func (a *Assistant) WantsIncident(ctx context.Context, text string) (bool, error) {
	reply, err := a.provider.Generate(ctx, fmt.Sprintf(intentPrompt, text),
		llm.WithTemperature(0),
		llm.WithMaxTokens(5),
	)
	if err != nil {
		return false, fmt.Errorf("WantsIncident: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(reply))
	return strings.HasPrefix(answer, "yes"), nil
}

// Answer generates a reply to the operator's message, assembling
// context from contextual memory and long-term items related to the
// given topics.
//
// Memory lookups are best-effort: a failed lookup shrinks the context
// but does not fail the answer. Returned long-term items are reinforced.
func (a *Assistant) Answer(ctx context.Context, userID, text string, recentTopics []string) (string, error) {
	var contextParts []string

	if profile, err := a.memory.GetContextualMemory(ctx, userID); err == nil && profile != nil {
		if profile.Role != "" {
			contextParts = append(contextParts, "Operator role: "+profile.Role)
		}
		if profile.WorkContext.CurrentIncident != "" {
			contextParts = append(contextParts, "Current incident: "+profile.WorkContext.CurrentIncident)
		}
		if profile.Preferences.CommunicationStyle != "" {
			contextParts = append(contextParts, "Preferred style: "+profile.Preferences.CommunicationStyle)
		}
	}

	seen := make(map[int64]bool)
	for _, topic := range recentTopics {
		items, err := a.memory.GetRelatedMemories(ctx, userID, topic)
		if err != nil {
			continue
		}
		for _, item := range items {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			contextParts = append(contextParts, "Known: "+item.Content)
			_, _ = a.memory.ReinforceMemory(ctx, item.ID)
		}
	}

	system := answerSystemPrompt
	if len(contextParts) > 0 {
		system += "\n\nContext:\n" + strings.Join(contextParts, "\n")
	}

	reply, err := a.provider.GenerateWithMessages(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	})
	if err != nil {
		return "", fmt.Errorf("Answer: %w", err)
	}

	return reply, nil
}
