// Package storage provides interfaces and types for memory record stores.
//
// It defines the RecordStore interface that all storage backends must
// satisfy, along with the record types for the four memory kinds: short-term
// memory, long-term memory items, episodes, and contextual memory.
package storage

import (
	"context"
	"time"
)

// Message is a single conversation message embedded in a memory record.
type Message struct {
	// Role is the message author: "user" or "assistant".
	Role string

	// Content is the message text.
	Content string

	// Timestamp is when the message was created.
	Timestamp time.Time
}

// ShortTermMemory is the rolling per-user conversation buffer.
//
// Exactly one record exists per user; the user ID is the primary key.
type ShortTermMemory struct {
	// UserID identifies the user who owns this record.
	UserID string

	// SessionID identifies the session that created the record.
	SessionID string

	// Messages is the ordered message buffer.
	Messages []Message

	// RecentTopics is the most-recent-first list of derived topics.
	RecentTopics []string

	// LastUpdated is when the record was last written.
	LastUpdated time.Time
}

// LongTermMemoryItem is one durable cross-session memory item.
//
// Items are individual rows keyed by ID with an indexed user_id column,
// so merge-by-id and lookup-by-id are keyed operations.
type LongTermMemoryItem struct {
	// ID is the unique identifier of the item.
	ID int64

	// UserID identifies the user who owns this item.
	UserID string

	// Content is the (truncated) text content.
	Content string

	// Timestamp is when the item was created.
	Timestamp time.Time

	// Importance is the importance score, 1-10.
	Importance int

	// Tags are the topic tags attached at creation.
	Tags []string

	// Type is the item kind: fact, insight, rule, or feedback.
	Type string

	// UsageCount is the number of times the item was recalled.
	UsageCount int

	// LastRecalled is when the item was last recalled (nil if never).
	LastRecalled *time.Time
}

// Episode is one bounded conversational session.
type Episode struct {
	// ID is the unique episode identifier.
	ID string

	// UserID identifies the user who owns this episode.
	UserID string

	// SessionID identifies the session the episode belongs to.
	SessionID string

	// StartTime is when the episode started.
	StartTime time.Time

	// EndTime is when the episode ended (nil while open).
	// Once set it is never changed.
	EndTime *time.Time

	// Summary is the episode summary text.
	Summary string

	// Messages is the message list captured for the episode.
	Messages []Message

	// RelatedIncidents lists incident identifiers linked to the episode.
	RelatedIncidents []string

	// Topics lists topics associated with the episode.
	Topics []string

	// Metadata is an open key-value bag of episode attributes.
	Metadata map[string]interface{}
}

// Preferences holds the slowly-changing user preference fields.
type Preferences struct {
	// CommunicationStyle is the preferred tone (e.g. "concise", "detailed").
	CommunicationStyle string

	// ResponseLength is the preferred answer length.
	ResponseLength string

	// FavoriteTopics lists topics the user keeps returning to.
	FavoriteTopics []string
}

// WorkContext holds the user's current operational context.
type WorkContext struct {
	// CurrentIncident identifies the incident the user is working on.
	CurrentIncident string

	// RecentExchanges lists recent conversation snippets.
	RecentExchanges []string

	// CommonFaultTypes lists fault categories the user handles often.
	CommonFaultTypes []string

	// FrequentSearches lists queries the user repeats.
	FrequentSearches []string
}

// ContextualMemory is the per-user preference and work-context profile.
//
// Exactly one record exists per user; the user ID is the primary key.
type ContextualMemory struct {
	// UserID identifies the user who owns this record.
	UserID string

	// Role is the user's operator role description.
	Role string

	// Preferences holds preference fields.
	Preferences Preferences

	// WorkContext holds operational-context fields.
	WorkContext WorkContext

	// LastUpdated is when the record was last written.
	LastUpdated time.Time
}

// RecordStore defines the interface for memory record store backends.
//
// All backends (SQLite, PostgreSQL, MySQL) must implement this interface.
// Getters return (nil, nil) when a record is absent; absence is a valid
// empty state, not an error.
type RecordStore interface {
	// GetShortTerm retrieves the short-term memory record for a user.
	GetShortTerm(ctx context.Context, userID string) (*ShortTermMemory, error)

	// PutShortTerm inserts or replaces the short-term memory record.
	// The user ID is the primary key.
	PutShortTerm(ctx context.Context, rec *ShortTermMemory) error

	// InsertLongTermItems inserts items, silently skipping IDs that already
	// exist. Returns the number of newly inserted items.
	InsertLongTermItems(ctx context.Context, items []*LongTermMemoryItem) (int, error)

	// GetLongTermItems retrieves all long-term items for a user,
	// ordered by timestamp descending.
	GetLongTermItems(ctx context.Context, userID string) ([]*LongTermMemoryItem, error)

	// GetLongTermItem retrieves a single item by ID, regardless of owner.
	GetLongTermItem(ctx context.Context, id int64) (*LongTermMemoryItem, error)

	// UpdateLongTermItem writes back an item's mutable fields
	// (importance, usage count, last recalled).
	UpdateLongTermItem(ctx context.Context, item *LongTermMemoryItem) error

	// DeleteLongTermItems deletes a user's items that are older than
	// olderThan AND have importance <= importanceFloor.
	// Returns the number of deleted items.
	DeleteLongTermItems(ctx context.Context, userID string, olderThan time.Time, importanceFloor int) (int, error)

	// InsertEpisode inserts a new episode row.
	InsertEpisode(ctx context.Context, ep *Episode) error

	// FinishEpisode sets the end time and final summary of an open episode.
	// It affects nothing when the episode is absent or already ended;
	// the returned bool reports whether a row was closed.
	FinishEpisode(ctx context.Context, id string, endTime time.Time, summary string) (bool, error)

	// GetRecentEpisodes retrieves up to limit episodes for a user,
	// ordered by start time descending.
	GetRecentEpisodes(ctx context.Context, userID string, limit int) ([]*Episode, error)

	// GetContextual retrieves the contextual memory record for a user.
	GetContextual(ctx context.Context, userID string) (*ContextualMemory, error)

	// PutContextual inserts or replaces the contextual memory record.
	// The user ID is the primary key.
	PutContextual(ctx context.Context, rec *ContextualMemory) error

	// Close closes the store and releases resources.
	Close() error
}
