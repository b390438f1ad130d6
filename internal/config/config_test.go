package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		if diff := cmp.Diff(Default(), cfg); diff != "" {
			t.Fatalf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gqlengine.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  pretty: true
  forward_headers: [authorization]
engine:
  max_depth: 5
  resolver_timeout: 2s
logging:
  level: debug
  format: console
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		want := Default()
		want.Server.Addr = ":9090"
		want.Server.Pretty = true
		want.Server.ForwardHeaders = []string{"authorization"}
		want.Engine.MaxDepth = 5
		want.Engine.ResolverTimeout = 2 * time.Second
		want.Logging = Logging{Level: "debug", Format: "console"}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Fatalf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "read config")
	})
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{name: "unknown key", yaml: "server:\n  port: 1\n", want: "parse config"},
		{name: "bad level", yaml: "logging:\n  level: loud\n", want: "Config.Logging.Level"},
		{name: "negative depth", yaml: "engine:\n  max_depth: -1\n", want: "Config.Engine.MaxDepth"},
		{name: "relative path", yaml: "server:\n  path: graphql\n", want: "Config.Server.Path"},
		{name: "telemetry without endpoint", yaml: "telemetry:\n  enabled: true\n  endpoint: \"\"\n", want: "Config.Telemetry.Endpoint"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
