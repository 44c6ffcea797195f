package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[world]
destroy_policy = "cascade"
serialize_partitions = true

[simulation]
tick_rate = "20ms"
ticks = 100

[database]
enabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.World.ReservedEntities)
	assert.Equal(t, 20*time.Millisecond, cfg.Simulation.TickRate)
	assert.Equal(t, 100, cfg.Simulation.Ticks)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ecs.DestroyCascade, cfg.WorldOptions().DestroyPolicy)
	assert.Equal(t, ecs.SerializePartitions, cfg.SerializeFlags())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"policy":    "[world]\ndestroy_policy = \"shred\"\n",
		"tick rate": "[simulation]\ntick_rate = \"0s\"\n",
		"ticks":     "[simulation]\nticks = -1\n",
		"syntax":    "[world\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
