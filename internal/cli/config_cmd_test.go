package cli

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/strange/local-bin/internal/config"
	"github.com/strange/local-bin/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigShow_Defaults(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("config", "show"))

	out := h.stdout.String()
	assert.Contains(t, out, "target_user: git\n")
	assert.Contains(t, out, "target_port: 22\n")
	assert.Contains(t, out, "host_key_policy: strict\n")
	assert.Contains(t, out, "connect_timeout: 10s\n")
	assert.Contains(t, h.stderr.String(), "built-in defaults")
}

func TestConfigShow_FileAndEnv(t *testing.T) {
	h := newHarness(t)
	path := writeConfigFile(t, "target_user: admin\n")
	t.Setenv("GITOSIS_KEYGEN_KEY_TYPE", "ed25519")

	require.Equal(t, 0, h.run("config", "show", "--config", path))

	out := h.stdout.String()
	assert.Contains(t, out, "target_user: admin\n")
	assert.Contains(t, out, "key_type: ed25519\n")
	assert.Contains(t, h.stderr.String(), path)
}

func TestConfigShow_InvalidFile(t *testing.T) {
	h := newHarness(t)
	path := writeConfigFile(t, "target_port: 0\n")

	assert.Equal(t, errors.ExitUsage, h.run("config", "show", "--config", path))
	assert.Contains(t, h.stderr.String(), "target_port 0 is out of range")
}

func TestConfigInit(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	require.Equal(t, 0, h.run("config", "init", "--config", path))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
	assert.Contains(t, h.stderr.String(), "Wrote "+path)
}

func TestConfigInit_DefaultLocation(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("config", "init"))

	_, err := os.Stat(config.DefaultPath())
	assert.NoError(t, err)
}

func TestConfigInit_ExistingFile(t *testing.T) {
	tests := []struct {
		name        string
		interactive bool
		answer      bool
		answerErr   error
		force       bool
		wantCode    int
		overwritten bool
		wantStderr  string
	}{
		{name: "non-interactive refuses", wantCode: errors.ExitUsage, wantStderr: "already exists"},
		{name: "force overwrites", force: true, overwritten: true},
		{name: "confirmed", interactive: true, answer: true, overwritten: true},
		{name: "declined", interactive: true, answer: false, wantStderr: "Cancelled."},
		{name: "prompt fails", interactive: true, answerErr: stderrors.New("no tty"), wantCode: errors.ExitUsage, wantStderr: "Failed to get user input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			path := writeConfigFile(t, "target_user: keep\n")

			var asked []string
			h.interactive = tt.interactive
			h.confirm = func(title string) (bool, error) {
				asked = append(asked, title)
				return tt.answer, tt.answerErr
			}

			args := []string{"config", "init", "--config", path}
			if tt.force {
				args = append(args, "--force")
			}
			assert.Equal(t, tt.wantCode, h.run(args...))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			if tt.overwritten {
				assert.Contains(t, string(data), "target_user: git")
			} else {
				assert.Equal(t, "target_user: keep\n", string(data))
			}
			if tt.wantStderr != "" {
				assert.Contains(t, h.stderr.String(), tt.wantStderr)
			}
			if tt.interactive && !tt.force {
				assert.Len(t, asked, 1)
			} else {
				assert.Empty(t, asked)
			}
		})
	}
}

func TestConfigSet(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.Equal(t, 0, h.run("config", "set", "--config", path, "target_user", "deploy"))
	require.Equal(t, 0, h.run("config", "set", "--config", path, "connect_timeout", "30s"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deploy", cfg.TargetUser)
	assert.Equal(t, "30s", cfg.ConnectTimeout.String())
	assert.Equal(t, config.DefaultKeyType, cfg.KeyType)
}

func TestConfigSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown key", []string{"colour", "red"}, "isn't a config key"},
		{"invalid value", []string{"target_port", "0"}, "out of range"},
		{"missing value", []string{"target_user"}, "accepts 2 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			path := writeConfigFile(t, "target_user: keep\n")

			args := append([]string{"config", "set", "--config", path}, tt.args...)
			assert.Equal(t, errors.ExitUsage, h.run(args...))
			assert.Contains(t, h.stderr.String(), tt.want)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "target_user: keep\n", string(data))
		})
	}
}

func TestConfigSet_CompletesKeys(t *testing.T) {
	cmd := newConfigSetCmd(&rootOptions{})
	keys, directive := cmd.ValidArgsFunction(cmd, nil, "")
	assert.Equal(t, config.Keys(), keys)
	assert.NotZero(t, directive)

	keys, _ = cmd.ValidArgsFunction(cmd, []string{"target_user"}, "")
	assert.Empty(t, keys)
}
