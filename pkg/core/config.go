package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a memory Manager.
//
// It includes settings for:
//   - Record store (where memories persist)
//   - LLM provider (optional, used by the session layer)
//   - Memory behavior knobs (buffer sizes, thresholds)
//
// Example:
//
//	config := &core.Config{
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./nocmem.db",
//	        },
//	    },
//	}
type Config struct {
	// Store contains record store configuration.
	Store StoreConfig `json:"store"`

	// LLM contains LLM provider configuration (optional).
	LLM LLMConfig `json:"llm"`

	// Memory contains memory behavior configuration.
	Memory MemoryConfig `json:"memory"`
}

// StoreConfig contains configuration for the record store.
//
// Supported providers: sqlite, postgres, mysql
//
// Example:
//
//	storeConfig := core.StoreConfig{
//	    Provider: "postgres",
//	    Config: map[string]interface{}{
//	        "host":    "localhost",
//	        "port":    5432,
//	        "user":    "postgres",
//	        "db_name": "nocmem",
//	    },
//	}
type StoreConfig struct {
	// Provider is the record store provider name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path
	// For PostgreSQL: host, port, user, password, db_name, ssl_mode
	// For MySQL: host, port, user, password, db_name
	Config map[string]interface{} `json:"config"`
}

// LLMConfig contains configuration for the LLM provider.
//
// Supported providers: openai
type LLMConfig struct {
	// Provider is the LLM provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// MemoryConfig contains tunables for memory behavior.
//
// Zero values are replaced with defaults when a Manager is created.
type MemoryConfig struct {
	// RecentTopicsMax is the maximum number of topics tracked in
	// short-term memory. Default: 10
	RecentTopicsMax int `json:"recent_topics_max,omitempty"`

	// TopicsPerMessage is the maximum number of topics extracted from
	// a single message. Default: 5
	TopicsPerMessage int `json:"topics_per_message,omitempty"`

	// DefaultImportance is the importance assigned to new long-term
	// items when none is specified. Range 1-10. Default: 5
	DefaultImportance int `json:"default_importance,omitempty"`

	// ReinforceUsageThreshold is the usage count a memory must exceed
	// before reinforcement raises its importance. Default: 10
	ReinforceUsageThreshold int `json:"reinforce_usage_threshold,omitempty"`

	// PruneImportanceFloor is the highest importance that pruning may
	// remove. Items with importance above the floor are always kept.
	// Default: 7
	PruneImportanceFloor int `json:"prune_importance_floor,omitempty"`

	// ContentMaxLen is the maximum length of consolidated memory
	// content before truncation. Default: 100
	ContentMaxLen int `json:"content_max_len,omitempty"`

	// EpisodeLimit is the default number of episodes returned by
	// recent-episode queries. Default: 5
	EpisodeLimit int `json:"episode_limit,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, etc.
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - MEMORY_RECENT_TOPICS_MAX, MEMORY_TOPICS_PER_MESSAGE,
//     MEMORY_DEFAULT_IMPORTANCE, MEMORY_REINFORCE_USAGE_THRESHOLD,
//     MEMORY_PRUNE_IMPORTANCE_FLOOR, MEMORY_CONTENT_MAX_LEN,
//     MEMORY_EPISODE_LIMIT
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")

	storeConfig := make(map[string]interface{})

	switch provider {
	case "sqlite":
		storeConfig = map[string]interface{}{
			"db_path": getEnvOrDefault("SQLITE_PATH", "./nocmem.db"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))

		storeConfig = map[string]interface{}{
			"host":     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":     port,
			"user":     getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password": os.Getenv("POSTGRES_PASSWORD"),
			"db_name":  getEnvOrDefault("POSTGRES_DATABASE", "nocmem"),
			"ssl_mode": getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))

		storeConfig = map[string]interface{}{
			"host":     getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":     port,
			"user":     getEnvOrDefault("MYSQL_USER", "root"),
			"password": os.Getenv("MYSQL_PASSWORD"),
			"db_name":  getEnvOrDefault("MYSQL_DATABASE", "nocmem"),
		}
	}

	recentTopicsMax, _ := strconv.Atoi(getEnvOrDefault("MEMORY_RECENT_TOPICS_MAX", "0"))
	topicsPerMessage, _ := strconv.Atoi(getEnvOrDefault("MEMORY_TOPICS_PER_MESSAGE", "0"))
	defaultImportance, _ := strconv.Atoi(getEnvOrDefault("MEMORY_DEFAULT_IMPORTANCE", "0"))
	reinforceThreshold, _ := strconv.Atoi(getEnvOrDefault("MEMORY_REINFORCE_USAGE_THRESHOLD", "0"))
	pruneFloor, _ := strconv.Atoi(getEnvOrDefault("MEMORY_PRUNE_IMPORTANCE_FLOOR", "0"))
	contentMaxLen, _ := strconv.Atoi(getEnvOrDefault("MEMORY_CONTENT_MAX_LEN", "0"))
	episodeLimit, _ := strconv.Atoi(getEnvOrDefault("MEMORY_EPISODE_LIMIT", "0"))

	config := &Config{
		Store: StoreConfig{
			Provider: provider,
			Config:   storeConfig,
		},
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", "openai"),
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    getEnvOrDefault("LLM_MODEL", "gpt-4"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		},
		Memory: MemoryConfig{
			RecentTopicsMax:         recentTopicsMax,
			TopicsPerMessage:        topicsPerMessage,
			DefaultImportance:       defaultImportance,
			ReinforceUsageThreshold: reinforceThreshold,
			PruneImportanceFloor:    pruneFloor,
			ContentMaxLen:           contentMaxLen,
			EpisodeLimit:            episodeLimit,
		},
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that a record store provider is specified and that memory
// knobs, when set, are in range.
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Store.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Memory.DefaultImportance < 0 || c.Memory.DefaultImportance > 10 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Memory.PruneImportanceFloor < 0 || c.Memory.PruneImportanceFloor > 10 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// applyDefaults fills zero-valued memory knobs with their defaults.
func (c *Config) applyDefaults() {
	if c.Memory.RecentTopicsMax == 0 {
		c.Memory.RecentTopicsMax = 10
	}
	if c.Memory.TopicsPerMessage == 0 {
		c.Memory.TopicsPerMessage = 5
	}
	if c.Memory.DefaultImportance == 0 {
		c.Memory.DefaultImportance = 5
	}
	if c.Memory.ReinforceUsageThreshold == 0 {
		c.Memory.ReinforceUsageThreshold = 10
	}
	if c.Memory.PruneImportanceFloor == 0 {
		c.Memory.PruneImportanceFloor = 7
	}
	if c.Memory.ContentMaxLen == 0 {
		c.Memory.ContentMaxLen = 100
	}
	if c.Memory.EpisodeLimit == 0 {
		c.Memory.EpisodeLimit = 5
	}
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
