package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netopshub/nocmem-go/pkg/core"
)

func TestLoadConfigFromEnv_SQLiteDefaults(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "sqlite")
	t.Setenv("SQLITE_PATH", "./custom.db")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Store.Provider)
	assert.Equal(t, "./custom.db", config.Store.Config["db_path"])
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4", config.LLM.Model)
}

func TestLoadConfigFromEnv_Postgres(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "nocmem")
	t.Setenv("POSTGRES_DATABASE", "memories")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.Store.Provider)
	assert.Equal(t, "db.internal", config.Store.Config["host"])
	assert.Equal(t, 5433, config.Store.Config["port"])
	assert.Equal(t, "nocmem", config.Store.Config["user"])
	assert.Equal(t, "memories", config.Store.Config["db_name"])
	assert.Equal(t, "disable", config.Store.Config["ssl_mode"])
}

func TestLoadConfigFromEnv_MySQL(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "mysql")
	t.Setenv("MYSQL_HOST", "mysql.internal")
	t.Setenv("MYSQL_PORT", "3307")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "mysql", config.Store.Provider)
	assert.Equal(t, "mysql.internal", config.Store.Config["host"])
	assert.Equal(t, 3307, config.Store.Config["port"])
}

func TestLoadConfigFromEnv_MemoryKnobs(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "sqlite")
	t.Setenv("MEMORY_RECENT_TOPICS_MAX", "20")
	t.Setenv("MEMORY_TOPICS_PER_MESSAGE", "8")
	t.Setenv("MEMORY_DEFAULT_IMPORTANCE", "6")
	t.Setenv("MEMORY_REINFORCE_USAGE_THRESHOLD", "15")
	t.Setenv("MEMORY_PRUNE_IMPORTANCE_FLOOR", "8")
	t.Setenv("MEMORY_CONTENT_MAX_LEN", "200")
	t.Setenv("MEMORY_EPISODE_LIMIT", "10")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 20, config.Memory.RecentTopicsMax)
	assert.Equal(t, 8, config.Memory.TopicsPerMessage)
	assert.Equal(t, 6, config.Memory.DefaultImportance)
	assert.Equal(t, 15, config.Memory.ReinforceUsageThreshold)
	assert.Equal(t, 8, config.Memory.PruneImportanceFloor)
	assert.Equal(t, 200, config.Memory.ContentMaxLen)
	assert.Equal(t, 10, config.Memory.EpisodeLimit)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"store": {
			"provider": "sqlite",
			"config": {"db_path": "./from_json.db"}
		},
		"memory": {
			"recent_topics_max": 20
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := core.LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", config.Store.Provider)
	assert.Equal(t, "./from_json.db", config.Store.Config["db_path"])
	assert.Equal(t, 20, config.Memory.RecentTopicsMax)
}

func TestLoadConfigFromJSON_MissingFile(t *testing.T) {
	_, err := core.LoadConfigFromJSON(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	var memErr *core.MemoryError
	require.ErrorAs(t, err, &memErr)
	assert.Equal(t, "LoadConfigFromJSON", memErr.Op)
}

func TestConfigValidate(t *testing.T) {
	config := &core.Config{}
	err := config.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	config.Store.Provider = "sqlite"
	assert.NoError(t, config.Validate())

	config.Memory.DefaultImportance = 11
	assert.ErrorIs(t, config.Validate(), core.ErrInvalidConfig)
}
