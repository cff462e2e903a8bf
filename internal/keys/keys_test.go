package keys

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/strange/local-bin/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "rewrite golden files")

func TestPathsFor(t *testing.T) {
	tests := []struct {
		identifier string
		private    string
		public     string
	}{
		{"default", "~/.ssh/default", "~/.ssh/default.pub"},
		{"prod", "~/.ssh/prod", "~/.ssh/prod.pub"},
		{"git@work", "~/.ssh/git@work", "~/.ssh/git@work.pub"},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			p := PathsFor(tt.identifier)
			assert.Equal(t, tt.private, p.Private)
			assert.Equal(t, tt.public, p.Public)
			assert.Equal(t, []string{tt.private, tt.public}, p.All())
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		identifier string
		wantErr    bool
	}{
		{"default", false},
		{"prod", false},
		{"build-01.example", false},
		{"git@work+2", false},
		{"", true},
		{"../escape", true},
		{"a/b", true},
		{".hidden", true},
		{"with space", true},
		{"semi;colon", true},
		{"config", true},
		{"authorized_keys", true},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			err := ValidateIdentifier(tt.identifier)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrUsage))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateKeyType(t *testing.T) {
	for _, kt := range []string{"rsa", "ed25519", "ecdsa"} {
		assert.NoError(t, ValidateKeyType(kt), kt)
	}

	err := ValidateKeyType("dsa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "isn't a valid key type")
}

func TestValidateConfigToken(t *testing.T) {
	assert.NoError(t, ValidateConfigToken("Target host", "deploy.example.com"))
	assert.NoError(t, ValidateConfigToken("Target user", "git"))

	for _, bad := range []string{"", "two words", "quo'te", "tab\there", "new\nline", "hash#tag"} {
		err := ValidateConfigToken("Target host", bad)
		assert.Error(t, err, "value %q should be rejected", bad)
		assert.True(t, errors.IsCode(err, errors.ErrUsage))
	}
}

func TestStanzaRender_Golden(t *testing.T) {
	tests := []struct {
		name   string
		golden string
		stanza Stanza
	}{
		{
			name:   "custom target",
			golden: "stanza.golden",
			stanza: NewStanza("deploy.example.com", 2200, "deploy", PathsFor("prod")),
		},
		{
			name:   "defaults",
			golden: "stanza_defaults.golden",
			stanza: NewStanza("git.example.org", 22, "git", PathsFor("default")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goldenPath := filepath.Join("testdata", tt.golden)
			got := tt.stanza.Render()

			if *update {
				require.NoError(t, os.WriteFile(goldenPath, []byte(got), 0644))
			}

			want, err := os.ReadFile(goldenPath)
			require.NoError(t, err)
			assert.Equal(t, string(want), got)
		})
	}
}

func TestStanzaRender_Shape(t *testing.T) {
	got := NewStanza("h", 22, "git", PathsFor("default")).Render()

	assert.True(t, len(got) > 2 && got[0] == '\n', "stanza starts with a blank line")
	assert.Equal(t, "\n\n", got[len(got)-2:], "stanza ends with a blank line")
	assert.Contains(t, got, "\tPasswordAuthentication no\n")
}

func TestStanzaVerify(t *testing.T) {
	s := NewStanza("deploy.example.com", 2200, "deploy", PathsFor("prod"))
	assert.NoError(t, s.Verify())
}

func TestStanzaVerify_DetectsMismatch(t *testing.T) {
	// An extra token in the user turns into a different value on parse.
	s := NewStanza("deploy.example.com", 22, "deploy\n\tPort 99", PathsFor("prod"))
	assert.Error(t, s.Verify())
}
