package sshutil

import (
	"bytes"
	"os"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry holds the values the local ssh config gives a host alias.
type SSHHostEntry struct {
	Alias        string // The Host pattern (alias)
	Hostname     string // The HostName value (actual host to connect to)
	User         string // The User value
	Port         string // The Port value
	IdentityFile string // The IdentityFile value, with ~/ expanded
}

// LookupHost resolves alias against the ssh config at configPath.
// Returns the line of the first Match directive (0 if none); entries after
// it are invisible because the parser doesn't support Match.
// A missing config file yields an empty entry and the os error.
func LookupHost(configPath, alias string) (SSHHostEntry, int, error) {
	entry := SSHHostEntry{Alias: alias}

	content, matchLine, err := preprocessSSHConfig(configPath)
	if err != nil {
		return entry, 0, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return entry, matchLine, err
	}

	if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
		entry.Hostname = hostname
	}
	if user, _ := cfg.Get(alias, "User"); user != "" {
		entry.User = user
	}
	if port, _ := cfg.Get(alias, "Port"); port != "" {
		entry.Port = port
	}
	if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
		entry.IdentityFile = expandPath(identity)
	}

	return entry, matchLine, nil
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// Returns the original content if no Match directive is found.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}
