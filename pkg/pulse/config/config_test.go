package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartzos/pulse/pkg/pulse/config"
	"github.com/quartzos/pulse/pkg/pulse/core"
)

func TestConfig_Accessors(t *testing.T) {
	c := config.New(map[string]any{
		"name":    "input",
		"size":    8,
		"size64":  int64(9),
		"sizef":   float64(10),
		"badf":    float64(1.5),
		"enabled": true,
	})

	assert.Equal(t, "input", c.String("name", "x"))
	assert.Equal(t, "x", c.String("missing", "x"))
	assert.Equal(t, "x", c.String("size", "x"), "wrong type falls back")

	assert.Equal(t, 8, c.Int("size", 0))
	assert.Equal(t, 9, c.Int("size64", 0))
	assert.Equal(t, 10, c.Int("sizef", 0))
	assert.Equal(t, 0, c.Int("badf", 0), "fractional floats are refused")
	assert.Equal(t, 7, c.Int("missing", 7))

	assert.True(t, c.Bool("enabled", false))
	assert.False(t, c.Bool("missing", false))

	assert.True(t, c.Has("name"))
	assert.False(t, c.Has("missing"))
}

func TestConfig_NilData(t *testing.T) {
	c := config.New(nil)
	assert.Equal(t, "d", c.String("k", "d"))
	assert.Equal(t, 0, c.Section("pool").Int("capacity", 0))
	assert.Empty(t, c.List("queues"))
}

func TestFromYAML_NestedSections(t *testing.T) {
	c, err := config.FromYAML([]byte(`
pool:
  capacity: 16
queues:
  - name: a
    capacity: 4
  - name: b
    capacity: 2
`))
	require.NoError(t, err)

	assert.Equal(t, 16, c.Section("pool").Int("capacity", 0))

	queues := c.List("queues")
	require.Len(t, queues, 2)
	assert.Equal(t, "a", queues[0].String("name", ""))
	assert.Equal(t, 2, queues[1].Int("capacity", 0))
}

func TestFromJSON(t *testing.T) {
	c, err := config.FromJSON([]byte(`{"pool": {"capacity": 4}}`))
	require.NoError(t, err)
	assert.Equal(t, 4, c.Section("pool").Int("capacity", 0))

	_, err = config.FromJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "pulse.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("pool:\n  capacity: 3\n"), 0o644))

	c, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Section("pool").Int("capacity", 0))

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	tomlPath := filepath.Join(dir, "pulse.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(""), 0o644))
	_, err = config.FromFile(tomlPath)
	assert.Error(t, err, "unsupported extension")
}

func TestSystemFromConfig(t *testing.T) {
	c, err := config.FromYAML([]byte(`
pool:
  capacity: 16
  debug_checks: true
timers:
  capacity: 8
queues:
  - name: input
    capacity: 8
    priority: 0
    policy: reject
  - name: render
    capacity: 4
    priority: 1
    policy: drop-oldest
`))
	require.NoError(t, err)

	sys, err := config.SystemFromConfig(c)
	require.NoError(t, err)

	assert.Equal(t, 16, sys.PoolCapacity)
	assert.Equal(t, 8, sys.TimerCapacity)
	assert.True(t, sys.DebugChecks)
	require.Len(t, sys.Queues, 2)
	assert.Equal(t, config.QueueDef{Name: "input", Capacity: 8, Priority: 0, Policy: core.Reject}, sys.Queues[0])
	assert.Equal(t, config.QueueDef{Name: "render", Capacity: 4, Priority: 1, Policy: core.DropOldest}, sys.Queues[1])
}

func TestSystemFromConfig_Defaults(t *testing.T) {
	c, err := config.FromYAML([]byte(`
queues:
  - name: input
    capacity: 4
`))
	require.NoError(t, err)

	sys, err := config.SystemFromConfig(c)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPoolCapacity, sys.PoolCapacity)
	assert.Equal(t, config.DefaultTimerCapacity, sys.TimerCapacity)
	assert.Equal(t, 0, sys.Queues[0].Priority, "priority defaults to declaration order")
}

func TestSystemFromConfig_Validation(t *testing.T) {
	cases := map[string]string{
		"no queues":      "pool:\n  capacity: 4\n",
		"missing name":   "queues:\n  - capacity: 4\n",
		"duplicate name": "queues:\n  - name: a\n    capacity: 2\n  - name: a\n    capacity: 2\n",
		"zero capacity":  "queues:\n  - name: a\n    capacity: 0\n",
		"beyond pool":    "pool:\n  capacity: 2\nqueues:\n  - name: a\n    capacity: 4\n",
		"unknown policy": "queues:\n  - name: a\n    capacity: 2\n    policy: coalesce\n",
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := config.FromYAML([]byte(yaml))
			require.NoError(t, err)
			_, err = config.SystemFromConfig(c)
			assert.Error(t, err)
		})
	}
}

func TestSystemValidate(t *testing.T) {
	sys := config.System{
		PoolCapacity:  4,
		TimerCapacity: 2,
		Queues:        []config.QueueDef{{Name: "a", Capacity: 2}},
	}
	assert.NoError(t, sys.Validate())

	assert.Error(t, config.System{TimerCapacity: 2, Queues: sys.Queues}.Validate())
	assert.Error(t, config.System{PoolCapacity: 4, Queues: sys.Queues}.Validate())
	assert.Error(t, config.System{PoolCapacity: 4, TimerCapacity: 2}.Validate())
}
