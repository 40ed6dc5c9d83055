package core

// AddLongTermOption is a function type for configuring AddLongTermMemory operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type AddLongTermOption func(*AddLongTermOptions)

// AddLongTermOptions contains configuration options for AddLongTermMemory operations.
type AddLongTermOptions struct {
	// Type classifies the memory. Default: MemoryFact
	Type MemoryType

	// Importance sets the initial importance (1-10).
	// Zero means use the configured default.
	Importance int

	// Tags are labels attached to the memory for related-memory lookup.
	Tags []string
}

// WithMemoryType sets the memory type for AddLongTermMemory operations.
//
// Example:
//
//	item, _ := mgr.AddLongTermMemory(ctx, userID, "always verify alarms twice",
//	    core.WithMemoryType(core.MemoryRule))
func WithMemoryType(memoryType MemoryType) AddLongTermOption {
	return func(opts *AddLongTermOptions) {
		opts.Type = memoryType
	}
}

// WithImportance sets the importance for AddLongTermMemory operations.
//
// Importance ranges from 1 (trivial) to 10 (critical). Values outside
// the range are clamped when the memory is stored.
//
// Example:
//
//	item, _ := mgr.AddLongTermMemory(ctx, userID, "core router password rotated",
//	    core.WithImportance(9))
func WithImportance(importance int) AddLongTermOption {
	return func(opts *AddLongTermOptions) {
		opts.Importance = importance
	}
}

// WithTags sets tags for AddLongTermMemory operations.
//
// Example:
//
//	item, _ := mgr.AddLongTermMemory(ctx, userID, "BTS-1024 has flaky fiber",
//	    core.WithTags([]string{"bts", "fiber"}))
func WithTags(tags []string) AddLongTermOption {
	return func(opts *AddLongTermOptions) {
		opts.Tags = tags
	}
}

// EpisodeOption is a function type for configuring StartEpisode operations.
type EpisodeOption func(*EpisodeOptions)

// EpisodeOptions contains configuration options for StartEpisode operations.
type EpisodeOptions struct {
	// SessionID links the episode to a conversation session.
	SessionID string

	// Metadata contains additional context for the episode.
	Metadata map[string]interface{}
}

// WithEpisodeSessionID links the new episode to a session.
//
// Example:
//
//	ep, _ := mgr.StartEpisode(ctx, userID, core.WithEpisodeSessionID(sessionID))
func WithEpisodeSessionID(sessionID string) EpisodeOption {
	return func(opts *EpisodeOptions) {
		opts.SessionID = sessionID
	}
}

// WithEpisodeMetadata sets metadata for the new episode.
//
// Example:
//
//	ep, _ := mgr.StartEpisode(ctx, userID,
//	    core.WithEpisodeMetadata(map[string]interface{}{
//	        "region": "north",
//	    }),
//	)
func WithEpisodeMetadata(metadata map[string]interface{}) EpisodeOption {
	return func(opts *EpisodeOptions) {
		opts.Metadata = metadata
	}
}

// EndEpisodeOption is a function type for configuring EndEpisode operations.
type EndEpisodeOption func(*EndEpisodeOptions)

// EndEpisodeOptions contains configuration options for EndEpisode operations.
type EndEpisodeOptions struct {
	// Summary replaces the episode summary when set.
	Summary string
}

// WithSummary sets the final summary for EndEpisode operations.
//
// Example:
//
//	_ = mgr.EndEpisode(ctx, episodeID, core.WithSummary("Fiber cut resolved"))
func WithSummary(summary string) EndEpisodeOption {
	return func(opts *EndEpisodeOptions) {
		opts.Summary = summary
	}
}

// RecentEpisodesOption is a function type for configuring GetRecentEpisodes operations.
type RecentEpisodesOption func(*RecentEpisodesOptions)

// RecentEpisodesOptions contains configuration options for GetRecentEpisodes operations.
type RecentEpisodesOptions struct {
	// Limit sets the maximum number of episodes to return.
	// Zero means use the configured default.
	Limit int
}

// WithEpisodeLimit sets the maximum number of episodes for GetRecentEpisodes.
//
// Example:
//
//	episodes, _ := mgr.GetRecentEpisodes(ctx, userID, core.WithEpisodeLimit(20))
func WithEpisodeLimit(limit int) RecentEpisodesOption {
	return func(opts *RecentEpisodesOptions) {
		opts.Limit = limit
	}
}

// applyAddLongTermOptions applies AddLongTermMemory options.
func applyAddLongTermOptions(opts []AddLongTermOption) *AddLongTermOptions {
	options := &AddLongTermOptions{
		Type: MemoryFact,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyEpisodeOptions applies StartEpisode options.
func applyEpisodeOptions(opts []EpisodeOption) *EpisodeOptions {
	options := &EpisodeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyEndEpisodeOptions applies EndEpisode options.
func applyEndEpisodeOptions(opts []EndEpisodeOption) *EndEpisodeOptions {
	options := &EndEpisodeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyRecentEpisodesOptions applies GetRecentEpisodes options.
func applyRecentEpisodesOptions(opts []RecentEpisodesOption) *RecentEpisodesOptions {
	options := &RecentEpisodesOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
