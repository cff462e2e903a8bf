package sshutil

import (
	"testing"

	"github.com/strange/local-bin/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want Target
	}{
		{"alice@build.example.com", Target{User: "alice", Host: "build.example.com"}},
		{"git@10.0.0.5", Target{User: "git", Host: "10.0.0.5"}},
		{"git@10.0.0.5:2222", Target{User: "git", Host: "10.0.0.5", Port: 2222}},
		{"deploy@[::1]:2200", Target{User: "deploy", Host: "::1", Port: 2200}},
		{"alice@buildbox", Target{User: "alice", Host: "buildbox"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTarget_Invalid(t *testing.T) {
	tests := []struct {
		in      string
		message string
	}{
		{"build.example.com", "missing a user"},
		{"a@b@c", "more than one '@'"},
		{"@host", "needs both a user and a host"},
		{"alice@", "needs both a user and a host"},
		{"", "missing a user"},
		{"alice@host:0", "isn't a valid port"},
		{"alice@host:ssh", "isn't a valid port"},
		{"alice@host:70000", "isn't a valid port"},
		{"alice@:22", "needs a host before the port"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseTarget(tt.in)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrUsage))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "alice@host", Target{User: "alice", Host: "host"}.String())
	assert.Equal(t, "alice@host", Target{User: "alice", Host: "host", Port: 22}.String())
	assert.Equal(t, "alice@host:2222", Target{User: "alice", Host: "host", Port: 2222}.String())
}

func TestCredentialsNeedsPassword(t *testing.T) {
	assert.True(t, Credentials{}.NeedsPassword())
	assert.False(t, Credentials{Password: "x"}.NeedsPassword())
	assert.False(t, Credentials{IdentityFile: "~/.ssh/id_ed25519"}.NeedsPassword())
	assert.False(t, Credentials{UseAgent: true}.NeedsPassword())
}
