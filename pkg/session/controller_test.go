package session_test

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netopshub/nocmem-go/pkg/core"
	"github.com/netopshub/nocmem-go/pkg/llm"
	"github.com/netopshub/nocmem-go/pkg/session"
	sqliteStore "github.com/netopshub/nocmem-go/pkg/storage/sqlite"
)

// fakeProvider is an in-memory llm.Provider for tests.
type fakeProvider struct {
	generateReply string
	chatReply     string

	prompts      []string
	chatMessages [][]llm.Message
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.generateReply, nil
}

func (f *fakeProvider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	f.chatMessages = append(f.chatMessages, messages)
	return f.chatReply, nil
}

func (f *fakeProvider) Close() error { return nil }

func setupSessionTest(t *testing.T, opts ...session.ControllerOption) (*session.Controller, *core.Manager) {
	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "test_session.db"),
	})
	require.NoError(t, err)

	mgr, err := core.NewManagerWithStore(&core.Config{
		Store: core.StoreConfig{Provider: "sqlite"},
	}, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	opts = append([]session.ControllerOption{
		session.WithUserID("test-operator"),
		session.WithRand(rand.New(rand.NewSource(1))),
	}, opts...)

	return session.NewController(mgr, opts...), mgr
}

func TestController_StartOpensEpisode(t *testing.T) {
	ctrl, mgr := setupSessionTest(t)
	ctx := context.Background()

	require.NoError(t, ctrl.Start(ctx))
	assert.Equal(t, session.StateActive, ctrl.State())

	eps, err := mgr.GetRecentEpisodes(ctx, "test-operator")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "Session started", eps[0].Summary)
	assert.Nil(t, eps[0].EndTime)
}

func TestController_StartLoadsExistingBuffer(t *testing.T) {
	ctrl, mgr := setupSessionTest(t)
	ctx := context.Background()

	_, err := mgr.AddToShortTermMemory(ctx, "test-operator", core.Message{
		Role:    core.RoleUser,
		Content: "earlier question about routers",
	})
	require.NoError(t, err)

	require.NoError(t, ctrl.Start(ctx))

	msgs := ctrl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "earlier question about routers", msgs[0].Content)
}

func TestController_AddMessageMirrorsToShortTerm(t *testing.T) {
	ctrl, mgr := setupSessionTest(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx))

	ctrl.AddMessage("fiber alarm triggered", core.RoleUser)
	assert.Len(t, ctrl.Messages(), 1) // visible immediately

	ctrl.Wait()

	rec, err := mgr.GetShortTermMemory(ctx, "test-operator")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.Messages, 1)
	assert.Equal(t, "fiber alarm triggered", rec.Messages[0].Content)
}

func TestController_AddMessageBeforeStartIsIgnored(t *testing.T) {
	ctrl, _ := setupSessionTest(t)

	ctrl.AddMessage("too early", core.RoleUser)
	ctrl.Wait()
	assert.Empty(t, ctrl.Messages())
}

func TestController_AssistantMessageRefreshesTopics(t *testing.T) {
	ctrl, _ := setupSessionTest(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx))

	ctrl.AddMessage("degradation on the backbone fiber", core.RoleAssistant)
	ctrl.Wait()

	suggestions := ctrl.SuggestedQuestions()
	require.Len(t, suggestions, 3)
	joined := strings.Join(suggestions, " ")
	assert.Contains(t, joined, "degradation")
}

func TestController_SuggestedQuestionsFallback(t *testing.T) {
	ctrl, _ := setupSessionTest(t)
	require.NoError(t, ctrl.Start(context.Background()))

	suggestions := ctrl.SuggestedQuestions()
	require.Len(t, suggestions, 3)
	assert.Contains(t, suggestions[0], "alarms")
}

func TestController_StartNewEpisodeRotates(t *testing.T) {
	ctrl, mgr := setupSessionTest(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx))

	ctrl.AddMessage("first conversation reply", core.RoleAssistant)
	ctrl.Wait()

	require.NoError(t, ctrl.StartNewEpisode(ctx, map[string]interface{}{"reason": "new topic"}))

	// Visible list cleared.
	assert.Empty(t, ctrl.Messages())

	// Old episode closed, new one open.
	eps, err := mgr.GetRecentEpisodes(ctx, "test-operator")
	require.NoError(t, err)
	require.Len(t, eps, 2)
	open, closed := 0, 0
	for _, ep := range eps {
		if ep.EndTime == nil {
			open++
		} else {
			closed++
		}
	}
	assert.Equal(t, 1, open)
	assert.Equal(t, 1, closed)

	// Buffer consolidated into long-term memory.
	items, err := mgr.GetLongTermMemories(ctx, "test-operator")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "first conversation reply", items[0].Content)
}

func TestController_CloseEndsEpisodeIdempotently(t *testing.T) {
	ctrl, mgr := setupSessionTest(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx))

	require.NoError(t, ctrl.Close(ctx))
	assert.Equal(t, session.StateEnded, ctrl.State())

	eps, err := mgr.GetRecentEpisodes(ctx, "test-operator")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	require.NotNil(t, eps[0].EndTime)
	assert.Equal(t, "Session ended on close", eps[0].Summary)

	firstEnd := *eps[0].EndTime

	// Second close is a no-op.
	require.NoError(t, ctrl.Close(ctx))
	eps, err = mgr.GetRecentEpisodes(ctx, "test-operator")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, firstEnd, *eps[0].EndTime)
}

func TestController_AskRunsFullTurn(t *testing.T) {
	provider := &fakeProvider{
		generateReply: "no",
		chatReply:     "The uplink alarms look like a transient spike.",
	}

	// The assistant shares the controller's manager.
	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "test_ask.db"),
	})
	require.NoError(t, err)
	mgr, err := core.NewManagerWithStore(&core.Config{
		Store: core.StoreConfig{Provider: "sqlite"},
	}, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	ctrl := session.NewController(mgr,
		session.WithUserID("test-operator"),
		session.WithRand(rand.New(rand.NewSource(1))),
		session.WithAssistant(session.NewAssistant(provider, mgr)),
	)

	ctx := context.Background()
	require.NoError(t, ctrl.Start(ctx))

	reply, wantsIncident, err := ctrl.Ask(ctx, "Should I worry about the uplink alarms?")
	require.NoError(t, err)
	assert.Equal(t, "The uplink alarms look like a transient spike.", reply)
	assert.False(t, wantsIncident)

	ctrl.Wait()
	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)

	// Intent classifier saw the question.
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "uplink alarms")
}

func TestController_AskWithoutAssistant(t *testing.T) {
	ctrl, _ := setupSessionTest(t)
	require.NoError(t, ctrl.Start(context.Background()))

	_, _, err := ctrl.Ask(context.Background(), "anything")
	require.Error(t, err)
}

func TestResolveUserID_PersistsAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity", "user_id")

	first, err := session.ResolveUserID(path)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := session.ResolveUserID(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, strings.TrimSpace(string(data)))
}
