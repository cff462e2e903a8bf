package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLookupHost(t *testing.T) {
	path := writeSSHConfig(t, `Host buildbox
    HostName build.internal.example.com
    User builder
    Port 2222
    IdentityFile ~/.ssh/build_key

Host *
    ServerAliveInterval 30
`)

	entry, matchLine, err := LookupHost(path, "buildbox")
	require.NoError(t, err)
	assert.Equal(t, 0, matchLine)
	assert.Equal(t, "buildbox", entry.Alias)
	assert.Equal(t, "build.internal.example.com", entry.Hostname)
	assert.Equal(t, "builder", entry.User)
	assert.Equal(t, "2222", entry.Port)
	assert.Equal(t, filepath.Join(homeDir(), ".ssh", "build_key"), entry.IdentityFile)
}

func TestLookupHost_UnknownAlias(t *testing.T) {
	path := writeSSHConfig(t, "Host buildbox\n    HostName 10.0.0.1\n")

	entry, _, err := LookupHost(path, "elsewhere")
	require.NoError(t, err)
	assert.Empty(t, entry.Hostname)
	assert.Empty(t, entry.Port)
}

func TestLookupHost_MissingFile(t *testing.T) {
	entry, _, err := LookupHost(filepath.Join(t.TempDir(), "nope"), "buildbox")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "buildbox", entry.Alias)
}

func TestLookupHost_StopsAtMatch(t *testing.T) {
	path := writeSSHConfig(t, `Host early
    HostName 10.0.0.1

Match host late
    User nobody

Host late
    HostName 10.0.0.2
`)

	entry, matchLine, err := LookupHost(path, "early")
	require.NoError(t, err)
	assert.Equal(t, 4, matchLine)
	assert.Equal(t, "10.0.0.1", entry.Hostname)

	entry, _, err = LookupHost(path, "late")
	require.NoError(t, err)
	assert.Empty(t, entry.Hostname)
}

func TestResolveSSHSettings_ExplicitPortWins(t *testing.T) {
	path := writeSSHConfig(t, "Host buildbox\n    HostName 10.0.0.1\n    Port 2222\n")

	s := resolveSSHSettings(Target{User: "alice", Host: "buildbox", Port: 2200}, path)
	assert.Equal(t, "10.0.0.1:2200", s.address())
	assert.Equal(t, "alice", s.user)

	s = resolveSSHSettings(Target{User: "alice", Host: "buildbox"}, path)
	assert.Equal(t, "10.0.0.1:2222", s.address())

	s = resolveSSHSettings(Target{User: "alice", Host: "plain.example.com"}, path)
	assert.Equal(t, "plain.example.com:22", s.address())
}
