// Package sqlite provides the SQLite implementation of the record store.
//
// SQLite is a lightweight, file-based database suitable for local development
// and single-host deployments. Structured fields (messages, topics, metadata)
// are stored as JSON strings in TEXT columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/netopshub/nocmem-go/pkg/storage"
)

// Client implements storage.RecordStore using SQLite as the backend.
type Client struct {
	// db is the SQLite database connection.
	db *sql.DB
}

// Config contains configuration for creating a SQLite record store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewClient creates a new SQLite record store client.
//
// The parent directory of the database file is created if missing, and the
// table structure is initialized on first use.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{db: db}

	if err := client.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS short_term_memories (
			user_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			messages TEXT NOT NULL,
			recent_topics TEXT NOT NULL,
			last_updated DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS long_term_memories (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME,
			importance INTEGER NOT NULL DEFAULT 5,
			tags TEXT,
			type TEXT,
			usage_count INTEGER NOT NULL DEFAULT 0,
			last_recalled DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_long_term_user ON long_term_memories(user_id)`,
		`CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT,
			start_time DATETIME,
			end_time DATETIME,
			summary TEXT,
			messages TEXT,
			related_incidents TEXT,
			topics TEXT,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_user_start ON episodes(user_id, start_time)`,
		`CREATE TABLE IF NOT EXISTS contextual_memories (
			user_id TEXT PRIMARY KEY,
			role TEXT,
			preferences TEXT,
			work_context TEXT,
			last_updated DATETIME
		)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}

	return nil
}

// GetShortTerm retrieves the short-term memory record for a user.
func (c *Client) GetShortTerm(ctx context.Context, userID string) (*storage.ShortTermMemory, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT user_id, session_id, messages, recent_topics, last_updated
		FROM short_term_memories
		WHERE user_id = ?
	`, userID)

	var rec storage.ShortTermMemory
	var messagesJSON, topicsJSON string
	err := row.Scan(&rec.UserID, &rec.SessionID, &messagesJSON, &topicsJSON, &rec.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetShortTerm: %w", err)
	}

	if err := json.Unmarshal([]byte(messagesJSON), &rec.Messages); err != nil {
		return nil, fmt.Errorf("GetShortTerm: parse messages: %w", err)
	}
	if err := json.Unmarshal([]byte(topicsJSON), &rec.RecentTopics); err != nil {
		return nil, fmt.Errorf("GetShortTerm: parse topics: %w", err)
	}

	return &rec, nil
}

// PutShortTerm inserts or replaces the short-term memory record.
func (c *Client) PutShortTerm(ctx context.Context, rec *storage.ShortTermMemory) error {
	messagesJSON, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("PutShortTerm: %w", err)
	}
	topicsJSON, err := json.Marshal(rec.RecentTopics)
	if err != nil {
		return fmt.Errorf("PutShortTerm: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO short_term_memories (user_id, session_id, messages, recent_topics, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			session_id = excluded.session_id,
			messages = excluded.messages,
			recent_topics = excluded.recent_topics,
			last_updated = excluded.last_updated
	`, rec.UserID, rec.SessionID, string(messagesJSON), string(topicsJSON), rec.LastUpdated)
	if err != nil {
		return fmt.Errorf("PutShortTerm: %w", err)
	}

	return nil
}

// InsertLongTermItems inserts items, skipping IDs that already exist.
func (c *Client) InsertLongTermItems(ctx context.Context, items []*storage.LongTermMemoryItem) (int, error) {
	inserted := 0
	for _, item := range items {
		tagsJSON, err := json.Marshal(item.Tags)
		if err != nil {
			return inserted, fmt.Errorf("InsertLongTermItems: %w", err)
		}

		res, err := c.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO long_term_memories
			(id, user_id, content, created_at, importance, tags, type, usage_count, last_recalled)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, item.UserID, item.Content, item.Timestamp, item.Importance,
			string(tagsJSON), item.Type, item.UsageCount, nullableTime(item.LastRecalled))
		if err != nil {
			return inserted, fmt.Errorf("InsertLongTermItems: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("InsertLongTermItems: %w", err)
		}
		inserted += int(n)
	}

	return inserted, nil
}

// GetLongTermItems retrieves all long-term items for a user.
func (c *Client) GetLongTermItems(ctx context.Context, userID string) ([]*storage.LongTermMemoryItem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, user_id, content, created_at, importance, tags, type, usage_count, last_recalled
		FROM long_term_memories
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("GetLongTermItems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*storage.LongTermMemoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("GetLongTermItems: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetLongTermItems: %w", err)
	}

	return items, nil
}

// GetLongTermItem retrieves a single item by ID.
func (c *Client) GetLongTermItem(ctx context.Context, id int64) (*storage.LongTermMemoryItem, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, user_id, content, created_at, importance, tags, type, usage_count, last_recalled
		FROM long_term_memories
		WHERE id = ?
	`, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetLongTermItem: %w", err)
	}

	return item, nil
}

// UpdateLongTermItem writes back an item's mutable fields.
func (c *Client) UpdateLongTermItem(ctx context.Context, item *storage.LongTermMemoryItem) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE long_term_memories
		SET importance = ?, usage_count = ?, last_recalled = ?
		WHERE id = ?
	`, item.Importance, item.UsageCount, nullableTime(item.LastRecalled), item.ID)
	if err != nil {
		return fmt.Errorf("UpdateLongTermItem: %w", err)
	}

	return nil
}

// DeleteLongTermItems deletes old, low-importance items for a user.
func (c *Client) DeleteLongTermItems(ctx context.Context, userID string, olderThan time.Time, importanceFloor int) (int, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM long_term_memories
		WHERE user_id = ? AND created_at < ? AND importance <= ?
	`, userID, olderThan, importanceFloor)
	if err != nil {
		return 0, fmt.Errorf("DeleteLongTermItems: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteLongTermItems: %w", err)
	}

	return int(n), nil
}

// InsertEpisode inserts a new episode row.
func (c *Client) InsertEpisode(ctx context.Context, ep *storage.Episode) error {
	messagesJSON, err := json.Marshal(ep.Messages)
	if err != nil {
		return fmt.Errorf("InsertEpisode: %w", err)
	}
	incidentsJSON, err := json.Marshal(ep.RelatedIncidents)
	if err != nil {
		return fmt.Errorf("InsertEpisode: %w", err)
	}
	topicsJSON, err := json.Marshal(ep.Topics)
	if err != nil {
		return fmt.Errorf("InsertEpisode: %w", err)
	}
	metadataJSON, err := json.Marshal(ep.Metadata)
	if err != nil {
		return fmt.Errorf("InsertEpisode: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO episodes
		(id, user_id, session_id, start_time, end_time, summary, messages, related_incidents, topics, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ep.ID, ep.UserID, ep.SessionID, ep.StartTime, nullableTime(ep.EndTime), ep.Summary,
		string(messagesJSON), string(incidentsJSON), string(topicsJSON), string(metadataJSON))
	if err != nil {
		return fmt.Errorf("InsertEpisode: %w", err)
	}

	return nil
}

// FinishEpisode sets the end time and final summary of an open episode.
//
// The end_time IS NULL guard makes the close idempotent: an end time,
// once set, is never changed.
func (c *Client) FinishEpisode(ctx context.Context, id string, endTime time.Time, summary string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `
		UPDATE episodes
		SET end_time = ?, summary = ?
		WHERE id = ? AND end_time IS NULL
	`, endTime, summary, id)
	if err != nil {
		return false, fmt.Errorf("FinishEpisode: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("FinishEpisode: %w", err)
	}

	return n > 0, nil
}

// GetRecentEpisodes retrieves up to limit episodes ordered by start time descending.
func (c *Client) GetRecentEpisodes(ctx context.Context, userID string, limit int) ([]*storage.Episode, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, start_time, end_time, summary, messages, related_incidents, topics, metadata
		FROM episodes
		WHERE user_id = ?
		ORDER BY start_time DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetRecentEpisodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var episodes []*storage.Episode
	for rows.Next() {
		var ep storage.Episode
		var endTime sql.NullTime
		var messagesJSON, incidentsJSON, topicsJSON, metadataJSON string

		err := rows.Scan(&ep.ID, &ep.UserID, &ep.SessionID, &ep.StartTime, &endTime,
			&ep.Summary, &messagesJSON, &incidentsJSON, &topicsJSON, &metadataJSON)
		if err != nil {
			return nil, fmt.Errorf("GetRecentEpisodes: %w", err)
		}

		if endTime.Valid {
			t := endTime.Time
			ep.EndTime = &t
		}
		if err := json.Unmarshal([]byte(messagesJSON), &ep.Messages); err != nil {
			return nil, fmt.Errorf("GetRecentEpisodes: parse messages: %w", err)
		}
		if err := json.Unmarshal([]byte(incidentsJSON), &ep.RelatedIncidents); err != nil {
			return nil, fmt.Errorf("GetRecentEpisodes: parse incidents: %w", err)
		}
		if err := json.Unmarshal([]byte(topicsJSON), &ep.Topics); err != nil {
			return nil, fmt.Errorf("GetRecentEpisodes: parse topics: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &ep.Metadata); err != nil {
			return nil, fmt.Errorf("GetRecentEpisodes: parse metadata: %w", err)
		}

		episodes = append(episodes, &ep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetRecentEpisodes: %w", err)
	}

	return episodes, nil
}

// GetContextual retrieves the contextual memory record for a user.
func (c *Client) GetContextual(ctx context.Context, userID string) (*storage.ContextualMemory, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT user_id, role, preferences, work_context, last_updated
		FROM contextual_memories
		WHERE user_id = ?
	`, userID)

	var rec storage.ContextualMemory
	var prefsJSON, workJSON string
	err := row.Scan(&rec.UserID, &rec.Role, &prefsJSON, &workJSON, &rec.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetContextual: %w", err)
	}

	if err := json.Unmarshal([]byte(prefsJSON), &rec.Preferences); err != nil {
		return nil, fmt.Errorf("GetContextual: parse preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(workJSON), &rec.WorkContext); err != nil {
		return nil, fmt.Errorf("GetContextual: parse work context: %w", err)
	}

	return &rec, nil
}

// PutContextual inserts or replaces the contextual memory record.
func (c *Client) PutContextual(ctx context.Context, rec *storage.ContextualMemory) error {
	prefsJSON, err := json.Marshal(rec.Preferences)
	if err != nil {
		return fmt.Errorf("PutContextual: %w", err)
	}
	workJSON, err := json.Marshal(rec.WorkContext)
	if err != nil {
		return fmt.Errorf("PutContextual: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO contextual_memories (user_id, role, preferences, work_context, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			role = excluded.role,
			preferences = excluded.preferences,
			work_context = excluded.work_context,
			last_updated = excluded.last_updated
	`, rec.UserID, rec.Role, string(prefsJSON), string(workJSON), rec.LastUpdated)
	if err != nil {
		return fmt.Errorf("PutContextual: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanItem scans a long-term memory item from a database row or rows.
func scanItem(scanner rowScanner) (*storage.LongTermMemoryItem, error) {
	var item storage.LongTermMemoryItem
	var tagsJSON string
	var lastRecalled sql.NullTime

	err := scanner.Scan(
		&item.ID,
		&item.UserID,
		&item.Content,
		&item.Timestamp,
		&item.Importance,
		&tagsJSON,
		&item.Type,
		&item.UsageCount,
		&lastRecalled,
	)
	if err != nil {
		return nil, err
	}

	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
			return nil, fmt.Errorf("parse tags: %w", err)
		}
	}
	if lastRecalled.Valid {
		t := lastRecalled.Time
		item.LastRecalled = &t
	}

	return &item, nil
}

// nullableTime converts an optional time to a driver-friendly value.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
