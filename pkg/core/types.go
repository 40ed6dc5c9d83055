package core

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks messages written by the operator.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by the assistant.
	RoleAssistant Role = "assistant"
)

// MemoryType classifies a long-term memory item.
type MemoryType string

const (
	// MemoryFact is knowledge stated directly by the operator.
	MemoryFact MemoryType = "fact"
	// MemoryInsight is knowledge distilled from assistant responses.
	MemoryInsight MemoryType = "insight"
	// MemoryRule is an operational rule or procedure.
	MemoryRule MemoryType = "rule"
	// MemoryFeedback is an operator correction or preference signal.
	MemoryFeedback MemoryType = "feedback"
)

// Message represents a single conversation turn.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ShortTermMemory holds the active conversation buffer for a user.
//
// A user has at most one short-term record at a time. It accumulates
// messages until they are consolidated into long-term memory.
type ShortTermMemory struct {
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	Messages     []Message `json:"messages"`
	RecentTopics []string  `json:"recent_topics"`
	LastUpdated  time.Time `json:"last_updated"`
}

// LongTermMemoryItem is a durable piece of knowledge about a user.
type LongTermMemoryItem struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"user_id"`
	Content      string     `json:"content"`
	Timestamp    time.Time  `json:"timestamp"`
	Importance   int        `json:"importance"`
	Tags         []string   `json:"tags,omitempty"`
	Type         MemoryType `json:"type"`
	UsageCount   int        `json:"usage_count"`
	LastRecalled *time.Time `json:"last_recalled,omitempty"`
}

// Episode records one bounded work session, such as handling a fault
// from first report to resolution.
type Episode struct {
	ID               string                 `json:"id"`
	UserID           string                 `json:"user_id"`
	SessionID        string                 `json:"session_id,omitempty"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          *time.Time             `json:"end_time,omitempty"`
	Summary          string                 `json:"summary"`
	Messages         []Message              `json:"messages,omitempty"`
	RelatedIncidents []string               `json:"related_incidents,omitempty"`
	Topics           []string               `json:"topics,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// Preferences captures how a user likes the assistant to communicate.
type Preferences struct {
	CommunicationStyle string   `json:"communication_style,omitempty"`
	ResponseLength     string   `json:"response_length,omitempty"`
	FavoriteTopics     []string `json:"favorite_topics,omitempty"`
}

// WorkContext captures what the user is working on right now.
type WorkContext struct {
	CurrentIncident  string   `json:"current_incident,omitempty"`
	RecentExchanges  []string `json:"recent_exchanges,omitempty"`
	CommonFaultTypes []string `json:"common_fault_types,omitempty"`
	FrequentSearches []string `json:"frequent_searches,omitempty"`
}

// ContextualMemory is the per-user profile: role, preferences, and the
// current working context. A user has at most one record.
type ContextualMemory struct {
	UserID      string      `json:"user_id"`
	Role        string      `json:"role,omitempty"`
	Preferences Preferences `json:"preferences"`
	WorkContext WorkContext `json:"work_context"`
	LastUpdated time.Time   `json:"last_updated"`
}

// ContextUpdate describes a partial update to contextual memory.
// Nil fields are left unchanged.
type ContextUpdate struct {
	Role        *string      `json:"role,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
	WorkContext *WorkContext `json:"work_context,omitempty"`
}
