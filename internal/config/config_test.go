package config

import (
	"os"
	"path/filepath"
	"testing"

	"mdpvis/internal/engine"
	"mdpvis/internal/stats"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	for _, key := range []string{"MDPVIS_DENYLIST", "MDPVIS_REWARD_FIELD", "MDPVIS_SAMPLE_THRESHOLD", "MDPVIS_STATS_WORKERS", "ENABLE_MERMAID_CHARTS"} {
		unset(t, key)
	}

	cfg := fromEnv("")

	assert.Equal(t, engine.DefaultDenyList, cfg.Engine.DenyList)
	assert.Equal(t, stats.DefaultRewardField, cfg.Engine.RewardField)
	assert.Zero(t, cfg.Engine.SampleThreshold)
	assert.False(t, cfg.EnableMermaidCharts)
	assert.Equal(t, filepath.Join(dir, "cache"), cfg.CacheDir)
	assert.DirExists(t, cfg.LogDir)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("MDPVIS_DENYLIST", " images, frame ,,")
	t.Setenv("MDPVIS_REWARD_FIELD", "reward")
	t.Setenv("MDPVIS_SAMPLE_THRESHOLD", "500")
	t.Setenv("MDPVIS_SAMPLE_SEED", "9")
	t.Setenv("MDPVIS_STATS_WORKERS", "four")
	t.Setenv("ENABLE_MERMAID_CHARTS", "true")

	cfg := fromEnv("")

	assert.Equal(t, []string{"images", "frame"}, cfg.Engine.DenyList)
	assert.Equal(t, "reward", cfg.Engine.RewardField)
	assert.Equal(t, 500, cfg.Engine.SampleThreshold)
	assert.Equal(t, int64(9), cfg.Engine.SampleSeed)
	assert.Zero(t, cfg.Engine.StatsWorkers)
	assert.True(t, cfg.EnableMermaidCharts)
}

func TestFromEnv_EmptyDenyList(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("MDPVIS_DENYLIST", "")

	assert.Empty(t, fromEnv("").Engine.DenyList)
}

func TestGodotenvQuoting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`MDPVIS_REWARD_FIELD='Discounted "net" Reward'`), 0644))

	env, err := godotenv.Read(path)
	require.NoError(t, err)

	assert.Equal(t, `Discounted "net" Reward`, env["MDPVIS_REWARD_FIELD"])
}

func unset(t *testing.T, key string) {
	t.Helper()
	if value, ok := os.LookupEnv(key); ok {
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() { _ = os.Setenv(key, value) })
	}
}
