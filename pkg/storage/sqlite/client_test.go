package sqlite_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netopshub/nocmem-go/pkg/storage"
	sqliteStore "github.com/netopshub/nocmem-go/pkg/storage/sqlite"
)

func setupSQLiteTest(t *testing.T) (storage.RecordStore, func()) {
	testDBPath := filepath.Join(t.TempDir(), "test_nocmem.db")

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: testDBPath,
	})
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		_ = store.Close()
		_ = os.Remove(testDBPath)
	}

	return store, cleanup
}

func TestSQLiteClient_ShortTermRoundTrip(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()

	// Absent user returns nil without error.
	got, err := store.GetShortTerm(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, got)

	rec := &storage.ShortTermMemory{
		UserID:    "op-1",
		SessionID: "sess-1",
		Messages: []storage.Message{
			{Role: "user", Content: "fiber alarm on ring", Timestamp: time.Now().UTC()},
		},
		RecentTopics: []string{"fiber", "alarm"},
		LastUpdated:  time.Now().UTC(),
	}
	require.NoError(t, store.PutShortTerm(ctx, rec))

	got, err = store.GetShortTerm(ctx, "op-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess-1", got.SessionID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "fiber alarm on ring", got.Messages[0].Content)
	assert.Equal(t, []string{"fiber", "alarm"}, got.RecentTopics)
}

func TestSQLiteClient_ShortTermUpsert(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()

	rec := &storage.ShortTermMemory{UserID: "op-1", SessionID: "sess-1", LastUpdated: time.Now()}
	require.NoError(t, store.PutShortTerm(ctx, rec))

	rec.SessionID = "sess-2"
	rec.RecentTopics = []string{"router"}
	require.NoError(t, store.PutShortTerm(ctx, rec))

	got, err := store.GetShortTerm(ctx, "op-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess-2", got.SessionID)
	assert.Equal(t, []string{"router"}, got.RecentTopics)
}

func TestSQLiteClient_InsertLongTermItemsIgnoresDuplicates(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()

	items := []*storage.LongTermMemoryItem{
		{ID: 1, UserID: "op-1", Content: "first", Timestamp: time.Now(), Importance: 5, Type: "insight", UsageCount: 1},
		{ID: 2, UserID: "op-1", Content: "second", Timestamp: time.Now(), Importance: 5, Type: "insight", UsageCount: 1},
	}

	n, err := store.InsertLongTermItems(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Same IDs again plus one new: only the new one lands.
	items = append(items, &storage.LongTermMemoryItem{
		ID: 3, UserID: "op-1", Content: "third", Timestamp: time.Now(), Importance: 5, Type: "insight", UsageCount: 1,
	})
	n, err = store.InsertLongTermItems(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := store.GetLongTermItems(ctx, "op-1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteClient_GetLongTermItem(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()

	got, err := store.GetLongTermItem(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, got)

	item := &storage.LongTermMemoryItem{
		ID:         42,
		UserID:     "op-1",
		Content:    "bgp flaps on edge router",
		Timestamp:  time.Now().UTC(),
		Importance: 6,
		Tags:       []string{"router"},
		Type:       "fact",
		UsageCount: 1,
	}
	_, err = store.InsertLongTermItems(ctx, []*storage.LongTermMemoryItem{item})
	require.NoError(t, err)

	got, err = store.GetLongTermItem(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bgp flaps on edge router", got.Content)
	assert.Equal(t, []string{"router"}, got.Tags)
	assert.Nil(t, got.LastRecalled)
}

func TestSQLiteClient_UpdateLongTermItem(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()

	item := &storage.LongTermMemoryItem{
		ID: 7, UserID: "op-1", Content: "x", Timestamp: time.Now(), Importance: 5, Type: "insight", UsageCount: 1,
	}
	_, err := store.InsertLongTermItems(ctx, []*storage.LongTermMemoryItem{item})
	require.NoError(t, err)

	now := time.Now().UTC()
	item.Importance = 6
	item.UsageCount = 12
	item.LastRecalled = &now
	require.NoError(t, store.UpdateLongTermItem(ctx, item))

	got, err := store.GetLongTermItem(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 6, got.Importance)
	assert.Equal(t, 12, got.UsageCount)
	require.NotNil(t, got.LastRecalled)
}

func TestSQLiteClient_DeleteLongTermItemsHonorsFloor(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	items := []*storage.LongTermMemoryItem{
		{ID: 1, UserID: "op-1", Content: "old low", Timestamp: old, Importance: 5, Type: "insight"},
		{ID: 2, UserID: "op-1", Content: "old high", Timestamp: old, Importance: 9, Type: "rule"},
		{ID: 3, UserID: "op-1", Content: "fresh low", Timestamp: fresh, Importance: 5, Type: "insight"},
	}
	_, err := store.InsertLongTermItems(ctx, items)
	require.NoError(t, err)

	n, err := store.DeleteLongTermItems(ctx, "op-1", time.Now().Add(-time.Hour), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := store.GetLongTermItems(ctx, "op-1")
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	for _, item := range remaining {
		assert.NotEqual(t, int64(1), item.ID)
	}
}

func TestSQLiteClient_FinishEpisodeOnlyOnce(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()

	ep := &storage.Episode{
		ID:        "ep-1",
		UserID:    "op-1",
		StartTime: time.Now().UTC(),
		Summary:   "Session started",
	}
	require.NoError(t, store.InsertEpisode(ctx, ep))

	firstEnd := time.Now().UTC()
	done, err := store.FinishEpisode(ctx, "ep-1", firstEnd, "resolved")
	require.NoError(t, err)
	assert.True(t, done)

	// Second finish affects nothing.
	done, err = store.FinishEpisode(ctx, "ep-1", firstEnd.Add(time.Hour), "changed")
	require.NoError(t, err)
	assert.False(t, done)

	eps, err := store.GetRecentEpisodes(ctx, "op-1", 5)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "resolved", eps[0].Summary)
	require.NotNil(t, eps[0].EndTime)
	assert.WithinDuration(t, firstEnd, *eps[0].EndTime, time.Second)

	// Unknown episode: no error, no effect.
	done, err = store.FinishEpisode(ctx, "missing", time.Now(), "x")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestSQLiteClient_GetRecentEpisodesOrderAndLimit(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 4; i++ {
		ep := &storage.Episode{
			ID:        fmt.Sprintf("ep-%d", i),
			UserID:    "op-1",
			StartTime: base.Add(time.Duration(i) * time.Minute),
			Summary:   "Session started",
		}
		require.NoError(t, store.InsertEpisode(ctx, ep))
	}

	eps, err := store.GetRecentEpisodes(ctx, "op-1", 2)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "ep-3", eps[0].ID)
	assert.Equal(t, "ep-2", eps[1].ID)
}

func TestSQLiteClient_ContextualRoundTrip(t *testing.T) {
	store, cleanup := setupSQLiteTest(t)
	defer cleanup()

	ctx := context.Background()

	got, err := store.GetContextual(ctx, "op-1")
	assert.NoError(t, err)
	assert.Nil(t, got)

	rec := &storage.ContextualMemory{
		UserID: "op-1",
		Role:   "NOC engineer",
		Preferences: storage.Preferences{
			CommunicationStyle: "terse",
			FavoriteTopics:     []string{"fiber"},
		},
		WorkContext: storage.WorkContext{
			CurrentIncident: "INC-1001",
		},
		LastUpdated: time.Now().UTC(),
	}
	require.NoError(t, store.PutContextual(ctx, rec))

	rec.Role = "Senior NOC engineer"
	require.NoError(t, store.PutContextual(ctx, rec))

	got, err = store.GetContextual(ctx, "op-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Senior NOC engineer", got.Role)
	assert.Equal(t, "terse", got.Preferences.CommunicationStyle)
	assert.Equal(t, "INC-1001", got.WorkContext.CurrentIncident)
}
