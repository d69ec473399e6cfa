package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func i64(v int64) *int64 { return &v }

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "shared-leaf.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "shared-leaf", cfg.Name)
	require.Len(t, cfg.Blocks, 1)
	assert.Equal(t, KindThunk, cfg.Blocks[0].Kind)
	assert.Equal(t, 1, cfg.Blocks[0].Refcount)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "make-list", cfg.Rules[0].Thunk)
	assert.Equal(t, []string{"t", "t"}, cfg.Roots)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "no-such-scenario.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-scenario.yaml")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nbogus: 1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Name: "ok",
			Blocks: []BlockSpec{
				{Name: "t", Kind: KindThunk, Ctor: "mk", Fields: []Field{{Int: i64(1)}}},
			},
			Rules: []Rule{{Thunk: "mk", Result: Field{Int: i64(2)}}},
			Roots: []string{"t"},
		}
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErrs int
	}{
		{"valid", func(*Config) {}, 0},
		{"missing block name", func(c *Config) { c.Blocks[0].Name = "" }, 2}, // root becomes unknown too
		{"duplicate block name", func(c *Config) { c.Blocks = append(c.Blocks, c.Blocks[0]) }, 1},
		{"unknown kind", func(c *Config) { c.Blocks[0].Kind = "frozen" }, 1},
		{"missing ctor", func(c *Config) { c.Blocks[0].Ctor = "" }, 2},
		{"indirection arity", func(c *Config) {
			c.Blocks = append(c.Blocks, BlockSpec{Name: "i", Kind: KindIndirection})
		}, 1},
		{"unknown field ref", func(c *Config) { c.Blocks[0].Fields[0] = Field{Ref: "ghost"} }, 1},
		{"new block in field", func(c *Config) {
			c.Blocks[0].Fields[0] = Field{New: &NewBlock{Kind: KindValue, Ctor: "c"}}
		}, 1},
		{"exclusive field forms", func(c *Config) {
			c.Blocks[0].Fields[0] = Field{Int: i64(1), Ref: "t"}
		}, 1},
		{"thunk without rule", func(c *Config) { c.Rules = nil }, 1},
		{"duplicate rule", func(c *Config) { c.Rules = append(c.Rules, c.Rules[0]) }, 1},
		{"unknown root", func(c *Config) { c.Roots = []string{"ghost"} }, 1},
		{"no roots", func(c *Config) { c.Roots = nil }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErrs == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Len(t, multierr.Errors(err), tt.wantErrs)
		})
	}
}
