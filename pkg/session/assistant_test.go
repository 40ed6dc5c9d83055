package session_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netopshub/nocmem-go/pkg/core"
	"github.com/netopshub/nocmem-go/pkg/session"
	sqliteStore "github.com/netopshub/nocmem-go/pkg/storage/sqlite"
)

func setupAssistantTest(t *testing.T, provider *fakeProvider) (*session.Assistant, *core.Manager) {
	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "test_assistant.db"),
	})
	require.NoError(t, err)

	mgr, err := core.NewManagerWithStore(&core.Config{
		Store: core.StoreConfig{Provider: "sqlite"},
	}, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	return session.NewAssistant(provider, mgr), mgr
}

func TestWantsIncident_ParsesYes(t *testing.T) {
	cases := []struct {
		reply string
		want  bool
	}{
		{"yes", true},
		{"Yes.", true},
		{"YES", true},
		{"no", false},
		{"No, this is a question", false},
		{"unsure", false},
	}

	for _, tc := range cases {
		provider := &fakeProvider{generateReply: tc.reply}
		assistant, _ := setupAssistantTest(t, provider)

		got, err := assistant.WantsIncident(context.Background(), "open a ticket for the fiber cut")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "reply %q", tc.reply)
	}
}

func TestWantsIncident_PromptContainsMessage(t *testing.T) {
	provider := &fakeProvider{generateReply: "yes"}
	assistant, _ := setupAssistantTest(t, provider)

	_, err := assistant.WantsIncident(context.Background(), "please open an incident for site N-42")
	require.NoError(t, err)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "site N-42")
}

func TestAnswer_AssemblesMemoryContext(t *testing.T) {
	provider := &fakeProvider{chatReply: "Check the optical budget on segment N-42."}
	assistant, mgr := setupAssistantTest(t, provider)
	ctx := context.Background()

	role := "NOC engineer"
	_, err := mgr.UpdateContextualMemory(ctx, "op-1", core.ContextUpdate{
		Role:        &role,
		WorkContext: &core.WorkContext{CurrentIncident: "INC-2044"},
	})
	require.NoError(t, err)

	item, err := mgr.AddLongTermMemory(ctx, "op-1", "Segment N-42 has a history of optical faults",
		core.WithTags([]string{"fiber"}))
	require.NoError(t, err)

	reply, err := assistant.Answer(ctx, "op-1", "What should I check first?", []string{"fiber"})
	require.NoError(t, err)
	assert.Equal(t, "Check the optical budget on segment N-42.", reply)

	require.Len(t, provider.chatMessages, 1)
	msgs := provider.chatMessages[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "NOC engineer")
	assert.Contains(t, msgs[0].Content, "INC-2044")
	assert.Contains(t, msgs[0].Content, "Segment N-42 has a history of optical faults")
	assert.Equal(t, "What should I check first?", msgs[1].Content)

	// Recalled item was reinforced.
	reinforced, err := mgr.ReinforceMemory(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reinforced.UsageCount)
}

func TestAnswer_NoMemoryStillAnswers(t *testing.T) {
	provider := &fakeProvider{chatReply: "Generic advice."}
	assistant, _ := setupAssistantTest(t, provider)

	reply, err := assistant.Answer(context.Background(), "unknown-user", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Generic advice.", reply)
}
