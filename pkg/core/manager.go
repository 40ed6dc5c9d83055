package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/netopshub/nocmem-go/pkg/storage"
	mysqlStore "github.com/netopshub/nocmem-go/pkg/storage/mysql"
	postgresStore "github.com/netopshub/nocmem-go/pkg/storage/postgres"
	sqliteStore "github.com/netopshub/nocmem-go/pkg/storage/sqlite"
	"github.com/netopshub/nocmem-go/pkg/topics"
)

// Manager is the single point of access to all four memory kinds:
// short-term, long-term, episodic, and contextual.
//
// All mutations for one user are serialized with a per-user lock, so
// concurrent writers cannot lose updates; different users proceed in
// parallel.
//
// Example:
//
//	config := &core.Config{
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        Config:   map[string]interface{}{"db_path": "./nocmem.db"},
//	    },
//	}
//	mgr, err := core.NewManager(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
type Manager struct {
	// config holds the manager configuration with defaults applied.
	config *Config

	// store is the record store backend.
	store storage.RecordStore

	// snowflakeNode generates unique IDs for manually added memories.
	snowflakeNode *snowflake.Node

	// userLocks holds one *sync.Mutex per user ID.
	userLocks sync.Map
}

// NewManager creates a Manager backed by the configured record store.
//
// Parameters:
//   - cfg: Configuration containing store, LLM, and memory settings
//
// Returns a new Manager instance, or an error if initialization fails.
func NewManager(cfg *Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := initStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	return NewManagerWithStore(cfg, store)
}

// NewManagerWithStore creates a Manager over an existing record store.
//
// Useful for tests and for callers that construct the store themselves.
func NewManagerWithStore(cfg *Config, store storage.RecordStore) (*Manager, error) {
	cfg.applyDefaults()

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewManager", err)
	}

	return &Manager{
		config:        cfg,
		store:         store,
		snowflakeNode: node,
	}, nil
}

// lockUser acquires the mutex for a user, creating it on first use.
// The returned func releases the lock.
func (m *Manager) lockUser(userID string) func() {
	v, _ := m.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AddToShortTermMemory appends a message to the user's conversation
// buffer, creating the buffer with a fresh session ID on first use.
//
// The message's topics are merged into the buffer's recent-topics list,
// newest first, unique, capped at the configured maximum.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Owner of the buffer
//   - msg: The message to append (a zero Timestamp is set to now)
//
// Returns the updated short-term memory record.
func (m *Manager) AddToShortTermMemory(ctx context.Context, userID string, msg Message) (*ShortTermMemory, error) {
	unlock := m.lockUser(userID)
	defer unlock()

	stored, err := m.store.GetShortTerm(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("AddToShortTermMemory", err)
	}
	rec := fromStorageShortTerm(stored)
	if rec == nil {
		rec = &ShortTermMemory{
			UserID:    userID,
			SessionID: uuid.NewString(),
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	rec.Messages = append(rec.Messages, msg)
	incoming := topics.ExtractN(msg.Content, m.config.Memory.TopicsPerMessage)
	rec.RecentTopics = topics.Merge(rec.RecentTopics, incoming, m.config.Memory.RecentTopicsMax)
	rec.LastUpdated = time.Now()

	if err := m.store.PutShortTerm(ctx, toStorageShortTerm(rec)); err != nil {
		return nil, NewMemoryError("AddToShortTermMemory", err)
	}

	return rec, nil
}

// GetShortTermMemory retrieves the user's conversation buffer.
//
// Returns (nil, nil) when the user has no buffer yet.
func (m *Manager) GetShortTermMemory(ctx context.Context, userID string) (*ShortTermMemory, error) {
	rec, err := m.store.GetShortTerm(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("GetShortTermMemory", err)
	}
	return fromStorageShortTerm(rec), nil
}

// ConsolidateToLongTermMemory distills the user's short-term buffer
// into durable long-term items.
//
// Each assistant message becomes one item: content truncated to the
// configured maximum, default importance, type insight, tagged with the
// topics of that message. Item IDs are derived from the message itself,
// so consolidating an unchanged buffer twice inserts nothing new.
// On success the consolidated messages are removed from the buffer.
//
// Returns the number of newly inserted items.
func (m *Manager) ConsolidateToLongTermMemory(ctx context.Context, userID string) (int, error) {
	unlock := m.lockUser(userID)
	defer unlock()

	stored, err := m.store.GetShortTerm(ctx, userID)
	if err != nil {
		return 0, NewMemoryError("ConsolidateToLongTermMemory", err)
	}
	rec := fromStorageShortTerm(stored)
	if rec == nil || len(rec.Messages) == 0 {
		return 0, nil
	}

	var items []*storage.LongTermMemoryItem
	for _, msg := range rec.Messages {
		if msg.Role != RoleAssistant {
			continue
		}

		content := msg.Content
		if runes := []rune(content); len(runes) > m.config.Memory.ContentMaxLen {
			content = string(runes[:m.config.Memory.ContentMaxLen]) + "..."
		}

		items = append(items, toStorageItem(&LongTermMemoryItem{
			ID:         consolidatedItemID(userID, rec.SessionID, msg),
			UserID:     userID,
			Content:    content,
			Timestamp:  msg.Timestamp,
			Importance: m.config.Memory.DefaultImportance,
			Tags:       topics.ExtractN(msg.Content, m.config.Memory.TopicsPerMessage),
			Type:       MemoryInsight,
			UsageCount: 1,
		}))
	}

	inserted := 0
	if len(items) > 0 {
		inserted, err = m.store.InsertLongTermItems(ctx, items)
		if err != nil {
			return 0, NewMemoryError("ConsolidateToLongTermMemory", err)
		}
	}

	// Trim the consolidated messages so the buffer stays bounded.
	rec.Messages = nil
	rec.LastUpdated = time.Now()
	if err := m.store.PutShortTerm(ctx, toStorageShortTerm(rec)); err != nil {
		return inserted, NewMemoryError("ConsolidateToLongTermMemory", err)
	}

	return inserted, nil
}

// AddLongTermMemory stores a long-term item directly, bypassing
// consolidation. This is the entry path for facts, rules, and feedback
// that do not originate from assistant replies.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Owner of the memory
//   - content: Memory content
//   - opts: Optional parameters (type, importance, tags)
//
// Returns the created item.
//
// Example:
//
//	item, err := mgr.AddLongTermMemory(ctx, userID,
//	    "Escalate power alarms at site N-42 directly to field ops",
//	    core.WithMemoryType(core.MemoryRule),
//	    core.WithImportance(8),
//	)
func (m *Manager) AddLongTermMemory(ctx context.Context, userID, content string, opts ...AddLongTermOption) (*LongTermMemoryItem, error) {
	options := applyAddLongTermOptions(opts)

	importance := options.Importance
	if importance == 0 {
		importance = m.config.Memory.DefaultImportance
	}
	if importance < 1 {
		importance = 1
	}
	if importance > 10 {
		importance = 10
	}

	item := &LongTermMemoryItem{
		ID:         m.snowflakeNode.Generate().Int64(),
		UserID:     userID,
		Content:    content,
		Timestamp:  time.Now(),
		Importance: importance,
		Tags:       options.Tags,
		Type:       options.Type,
		UsageCount: 1,
	}

	if _, err := m.store.InsertLongTermItems(ctx, []*storage.LongTermMemoryItem{toStorageItem(item)}); err != nil {
		return nil, NewMemoryError("AddLongTermMemory", err)
	}

	return item, nil
}

// GetLongTermMemories retrieves all long-term items for a user,
// newest first.
func (m *Manager) GetLongTermMemories(ctx context.Context, userID string) ([]*LongTermMemoryItem, error) {
	items, err := m.store.GetLongTermItems(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("GetLongTermMemories", err)
	}
	return fromStorageItems(items), nil
}

// StartEpisode opens a new work episode for the user.
//
// A fresh episode is always created with its own ID and session ID;
// any still-open episodes are left untouched. WithEpisodeSessionID
// links the episode to an existing conversation session instead.
func (m *Manager) StartEpisode(ctx context.Context, userID string, opts ...EpisodeOption) (*Episode, error) {
	options := applyEpisodeOptions(opts)

	sessionID := options.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ep := &Episode{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		StartTime: time.Now(),
		Summary:   "Session started",
		Metadata:  options.Metadata,
	}

	if err := m.store.InsertEpisode(ctx, toStorageEpisode(ep)); err != nil {
		return nil, NewMemoryError("StartEpisode", err)
	}

	return ep, nil
}

// EndEpisode closes an episode, setting its end time and final summary.
//
// Ending an unknown or already-ended episode is a no-op: the first
// recorded end time never changes.
func (m *Manager) EndEpisode(ctx context.Context, episodeID string, opts ...EndEpisodeOption) error {
	options := applyEndEpisodeOptions(opts)

	summary := options.Summary
	if summary == "" {
		summary = "Session ended"
	}

	_, err := m.store.FinishEpisode(ctx, episodeID, time.Now(), summary)
	if err != nil {
		return NewMemoryError("EndEpisode", err)
	}

	return nil
}

// GetRecentEpisodes retrieves the user's most recent episodes, newest
// first. The default limit is configurable (5 unless overridden).
func (m *Manager) GetRecentEpisodes(ctx context.Context, userID string, opts ...RecentEpisodesOption) ([]*Episode, error) {
	options := applyRecentEpisodesOptions(opts)

	limit := options.Limit
	if limit <= 0 {
		limit = m.config.Memory.EpisodeLimit
	}

	eps, err := m.store.GetRecentEpisodes(ctx, userID, limit)
	if err != nil {
		return nil, NewMemoryError("GetRecentEpisodes", err)
	}

	out := make([]*Episode, len(eps))
	for i, ep := range eps {
		out[i] = fromStorageEpisode(ep)
	}
	return out, nil
}

// UpdateContextualMemory applies a partial update to the user's
// profile, creating it with defaults on first write.
//
// Each non-nil field of the update replaces the corresponding field
// wholesale; nil fields are left unchanged.
func (m *Manager) UpdateContextualMemory(ctx context.Context, userID string, update ContextUpdate) (*ContextualMemory, error) {
	unlock := m.lockUser(userID)
	defer unlock()

	stored, err := m.store.GetContextual(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("UpdateContextualMemory", err)
	}
	rec := fromStorageContextual(stored)
	if rec == nil {
		rec = &ContextualMemory{UserID: userID}
	}

	if update.Role != nil {
		rec.Role = *update.Role
	}
	if update.Preferences != nil {
		rec.Preferences = *update.Preferences
	}
	if update.WorkContext != nil {
		rec.WorkContext = *update.WorkContext
	}
	rec.LastUpdated = time.Now()

	if err := m.store.PutContextual(ctx, toStorageContextual(rec)); err != nil {
		return nil, NewMemoryError("UpdateContextualMemory", err)
	}

	return rec, nil
}

// GetContextualMemory retrieves the user's profile.
//
// Returns (nil, nil) when the user has no profile yet.
func (m *Manager) GetContextualMemory(ctx context.Context, userID string) (*ContextualMemory, error) {
	rec, err := m.store.GetContextual(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("GetContextualMemory", err)
	}
	return fromStorageContextual(rec), nil
}

// SearchMemories finds long-term items whose content matches the query.
//
// The query is split on whitespace; an item matches if its content
// contains ANY term, case-insensitively. An empty query matches nothing.
func (m *Manager) SearchMemories(ctx context.Context, userID, query string) ([]*LongTermMemoryItem, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	items, err := m.store.GetLongTermItems(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("SearchMemories", err)
	}

	var matched []*LongTermMemoryItem
	for _, item := range items {
		content := strings.ToLower(item.Content)
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched = append(matched, fromStorageItem(item))
				break
			}
		}
	}

	return matched, nil
}

// GetRelatedMemories finds long-term items tagged with the given topic,
// compared case-insensitively.
func (m *Manager) GetRelatedMemories(ctx context.Context, userID, topic string) ([]*LongTermMemoryItem, error) {
	items, err := m.store.GetLongTermItems(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("GetRelatedMemories", err)
	}

	var matched []*LongTermMemoryItem
	for _, item := range items {
		for _, tag := range item.Tags {
			if strings.EqualFold(tag, topic) {
				matched = append(matched, fromStorageItem(item))
				break
			}
		}
	}

	return matched, nil
}

// PruneOldMemories deletes the user's stale low-importance items.
//
// An item is removed only when its timestamp is before olderThan AND
// its importance is at or below the configured floor; important
// memories survive regardless of age.
//
// Returns the number of items deleted.
func (m *Manager) PruneOldMemories(ctx context.Context, userID string, olderThan time.Time) (int, error) {
	n, err := m.store.DeleteLongTermItems(ctx, userID, olderThan, m.config.Memory.PruneImportanceFloor)
	if err != nil {
		return 0, NewMemoryError("PruneOldMemories", err)
	}
	return n, nil
}

// ReinforceMemory records a recall of a long-term item.
//
// The item's usage count is incremented and its last-recalled time set
// to now. When the count before the increment already exceeds the
// configured threshold and importance is below 10, importance is also
// raised by one.
//
// Returns the updated item, or an error wrapping ErrNotFound if no
// item has the given ID.
func (m *Manager) ReinforceMemory(ctx context.Context, memoryID int64) (*LongTermMemoryItem, error) {
	item, err := m.store.GetLongTermItem(ctx, memoryID)
	if err != nil {
		return nil, NewMemoryError("ReinforceMemory", err)
	}
	if item == nil {
		return nil, NewMemoryError("ReinforceMemory", ErrNotFound)
	}

	if item.UsageCount > m.config.Memory.ReinforceUsageThreshold && item.Importance < 10 {
		item.Importance++
	}
	item.UsageCount++
	now := time.Now()
	item.LastRecalled = &now

	if err := m.store.UpdateLongTermItem(ctx, item); err != nil {
		return nil, NewMemoryError("ReinforceMemory", err)
	}

	return fromStorageItem(item), nil
}

// Close releases the underlying record store.
func (m *Manager) Close() error {
	if err := m.store.Close(); err != nil {
		return NewMemoryError("Close", err)
	}
	return nil
}

// consolidatedItemID derives a stable item ID from the message it was
// distilled from, so re-consolidating an unchanged buffer is idempotent.
func consolidatedItemID(userID, sessionID string, msg Message) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s", userID, sessionID, msg.Timestamp.UTC().Format(time.RFC3339Nano), msg.Content)
	// Mask the sign bit so IDs stay positive.
	return int64(h.Sum64() & (1<<63 - 1))
}

// initStore initializes the record store backend.
func initStore(cfg StoreConfig) (storage.RecordStore, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath: cfg.Config["db_path"].(string),
		})
	case "postgres":
		sslMode := "disable"
		if s, ok := cfg.Config["ssl_mode"].(string); ok {
			sslMode = s
		}
		return postgresStore.NewClient(&postgresStore.Config{
			Host:     cfg.Config["host"].(string),
			Port:     cfg.Config["port"].(int),
			User:     cfg.Config["user"].(string),
			Password: cfg.Config["password"].(string),
			DBName:   cfg.Config["db_name"].(string),
			SSLMode:  sslMode,
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:     cfg.Config["host"].(string),
			Port:     cfg.Config["port"].(int),
			User:     cfg.Config["user"].(string),
			Password: cfg.Config["password"].(string),
			DBName:   cfg.Config["db_name"].(string),
		})
	default:
		return nil, NewMemoryError("initStore", ErrInvalidConfig)
	}
}
