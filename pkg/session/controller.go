package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netopshub/nocmem-go/pkg/core"
)

// State describes the lifecycle of a Controller.
type State string

const (
	// StateUninitialized is the state before Start.
	StateUninitialized State = "uninitialized"
	// StateActive is the state of a running session.
	StateActive State = "active"
	// StateEnded is the state after Close.
	StateEnded State = "ended"
)

// ErrNotActive is returned when an operation requires a started,
// unclosed session.
var ErrNotActive = errors.New("session not active")

// Controller fronts one live conversation.
//
// It owns the visible message list (appended synchronously so the UI
// never blocks on storage) and mirrors every message into short-term
// memory in the background. Memory failures are logged and swallowed;
// the conversation continues regardless.
//
// A Controller is intended for a single conversation surface: callers
// invoke its methods from one goroutine.
type Controller struct {
	memory    *core.Manager
	assistant *Assistant
	logger    *zap.Logger
	rng       *rand.Rand

	// identityPath overrides where the local user identity is persisted.
	identityPath string

	// wg tracks in-flight memory mirrors.
	wg sync.WaitGroup

	// mu guards the fields below.
	mu           sync.Mutex
	state        State
	userID       string
	episodeID    string
	messages     []core.Message
	recentTopics []string
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger for background failure reporting.
// Default: zap.NewNop().
func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithAssistant attaches an Assistant, enabling Ask.
func WithAssistant(a *Assistant) ControllerOption {
	return func(c *Controller) {
		c.assistant = a
	}
}

// WithRand sets the random source used for suggestion selection.
// Default: time-seeded. Inject a fixed-seed source in tests.
func WithRand(rng *rand.Rand) ControllerOption {
	return func(c *Controller) {
		c.rng = rng
	}
}

// WithIdentityPath overrides the path of the persisted user identity file.
func WithIdentityPath(path string) ControllerOption {
	return func(c *Controller) {
		c.identityPath = path
	}
}

// WithUserID fixes the session's user identity, skipping file-based
// resolution.
func WithUserID(userID string) ControllerOption {
	return func(c *Controller) {
		c.userID = userID
	}
}

// NewController creates a session controller over a memory manager.
func NewController(memory *core.Manager, opts ...ControllerOption) *Controller {
	c := &Controller{
		memory: memory,
		logger: zap.NewNop(),
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Start initializes the session: resolves the local user identity,
// loads any existing short-term memory into the visible list, and
// opens a new episode.
//
// Identity or episode failures are fatal here; a session that cannot
// record episodes should not silently pretend to.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive {
		return nil
	}

	if c.userID == "" {
		userID, err := ResolveUserID(c.identityPath)
		if err != nil {
			return err
		}
		c.userID = userID
	}

	var sessionID string
	shortTerm, err := c.memory.GetShortTermMemory(ctx, c.userID)
	if err != nil {
		c.logger.Warn("failed to load short-term memory", zap.Error(err))
	} else if shortTerm != nil {
		c.messages = append([]core.Message(nil), shortTerm.Messages...)
		c.recentTopics = append([]string(nil), shortTerm.RecentTopics...)
		sessionID = shortTerm.SessionID
	}

	ep, err := c.memory.StartEpisode(ctx, c.userID, core.WithEpisodeSessionID(sessionID))
	if err != nil {
		return err
	}
	c.episodeID = ep.ID

	c.state = StateActive
	return nil
}

// AddMessage appends a message to the visible list and mirrors it into
// short-term memory in the background.
//
// The append is synchronous so the UI never waits on storage. After an
// assistant message the mirror also refetches short-term memory to
// refresh the recent-topics list used for suggestions. Mirror failures
// are logged, never surfaced.
func (c *Controller) AddMessage(content string, role core.Role) {
	msg := core.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	userID := c.userID
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		rec, err := c.memory.AddToShortTermMemory(context.Background(), userID, msg)
		if err != nil {
			c.logger.Warn("failed to mirror message to short-term memory",
				zap.String("role", string(role)),
				zap.Error(err),
			)
			return
		}

		if role == core.RoleAssistant {
			c.mu.Lock()
			c.recentTopics = append([]string(nil), rec.RecentTopics...)
			c.mu.Unlock()
		}
	}()
}

// Messages returns a snapshot of the visible message list.
func (c *Controller) Messages() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Message(nil), c.messages...)
}

// State returns the controller's lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SuggestedQuestions derives follow-up question suggestions from the
// session's recent topics. With no topics it returns three generic
// fallbacks.
func (c *Controller) SuggestedQuestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return suggestQuestions(c.recentTopics, c.rng)
}

// StartNewEpisode rotates the conversation: the current episode is
// ended, the accumulated buffer is consolidated into long-term memory,
// the visible list is cleared, and a fresh episode begins.
//
// Consolidation failures are logged and do not block the new episode.
func (c *Controller) StartNewEpisode(ctx context.Context, metadata map[string]interface{}) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	userID := c.userID
	previousEpisode := c.episodeID
	c.mu.Unlock()

	// Let in-flight mirrors land before consolidating.
	c.wg.Wait()

	if err := c.memory.EndEpisode(ctx, previousEpisode); err != nil {
		c.logger.Warn("failed to end episode", zap.String("episode_id", previousEpisode), zap.Error(err))
	}

	if _, err := c.memory.ConsolidateToLongTermMemory(ctx, userID); err != nil {
		c.logger.Warn("failed to consolidate short-term memory", zap.Error(err))
	}

	ep, err := c.memory.StartEpisode(ctx, userID, core.WithEpisodeMetadata(metadata))
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.episodeID = ep.ID
	c.messages = nil
	c.recentTopics = nil
	c.mu.Unlock()

	return nil
}

// Ask runs one full conversational turn: the question is recorded,
// classified for incident-creation intent, answered with memory
// context, and the reply recorded.
//
// Returns the reply and whether the message asked to open an incident.
// Unlike memory mirroring, answer generation failures are returned:
// the caller decides what to show.
func (c *Controller) Ask(ctx context.Context, text string) (string, bool, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return "", false, ErrNotActive
	}
	if c.assistant == nil {
		c.mu.Unlock()
		return "", false, errors.New("no assistant configured")
	}
	userID := c.userID
	topics := append([]string(nil), c.recentTopics...)
	c.mu.Unlock()

	c.AddMessage(text, core.RoleUser)

	wantsIncident, err := c.assistant.WantsIncident(ctx, text)
	if err != nil {
		c.logger.Warn("intent classification failed", zap.Error(err))
		wantsIncident = false
	}

	reply, err := c.assistant.Answer(ctx, userID, text, topics)
	if err != nil {
		return "", wantsIncident, err
	}

	c.AddMessage(reply, core.RoleAssistant)
	return reply, wantsIncident, nil
}

// Wait blocks until all in-flight memory mirrors have completed.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close ends the session: waits for in-flight mirrors and closes the
// current episode with a final summary. Idempotent and best-effort.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return nil
	}
	c.state = StateEnded
	episodeID := c.episodeID
	c.mu.Unlock()

	c.wg.Wait()

	if err := c.memory.EndEpisode(ctx, episodeID, core.WithSummary("Session ended on close")); err != nil {
		c.logger.Warn("failed to end episode on close", zap.String("episode_id", episodeID), zap.Error(err))
	}

	return nil
}
