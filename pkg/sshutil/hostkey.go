package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/strange/local-bin/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyPolicy decides what happens with host keys missing from known_hosts.
type HostKeyPolicy string

const (
	// HostKeyStrict rejects hosts whose key is not already in known_hosts.
	HostKeyStrict HostKeyPolicy = "strict"

	// HostKeyAcceptNew trusts an unknown host on first contact and records
	// its key in known_hosts (trust on first use). A key that differs from
	// a recorded one is still rejected. This trades safety for convenience
	// and must be asked for explicitly.
	HostKeyAcceptNew HostKeyPolicy = "accept-new"
)

// ParseHostKeyPolicy validates a policy name from flags or config.
func ParseHostKeyPolicy(s string) (HostKeyPolicy, error) {
	switch HostKeyPolicy(s) {
	case HostKeyStrict, HostKeyAcceptNew:
		return HostKeyPolicy(s), nil
	case "":
		return HostKeyStrict, nil
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("'%s' isn't a host key policy", s),
		"Use 'strict' or 'accept-new'")
}

// newHostKeyCallback builds a known_hosts backed callback for the policy.
// The known_hosts file (and its directory) is created if missing.
func newHostKeyCallback(policy HostKeyPolicy, knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to create .ssh directory",
				"Check permissions on your home directory")
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to create known_hosts",
				"Check permissions on "+knownHostsPath)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to load known_hosts",
			"Check the syntax of "+knownHostsPath)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !stderrors.As(err, &keyErr) {
			return err
		}

		if len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}

		if policy == HostKeyAcceptNew {
			return addKnownHost(knownHostsPath, hostname, key)
		}

		return &UnknownHostKeyError{
			Hostname:    hostname,
			Fingerprint: ssh.FingerprintSHA256(key),
			KnownHosts:  knownHostsPath,
		}
	}, nil
}

// addKnownHost appends a known_hosts line for hostname.
func addKnownHost(knownHostsPath, hostname string, key ssh.PublicKey) error {
	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)

	f, err := os.OpenFile(knownHostsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}

	log.Info("Permanently added '%s' (%s) to %s", knownhosts.Normalize(hostname), key.Type(), knownHostsPath)
	return nil
}

// UnknownHostKeyError is returned under the strict policy for hosts that are
// not in known_hosts yet.
type UnknownHostKeyError struct {
	Hostname    string
	Fingerprint string
	KnownHosts  string
}

func (e *UnknownHostKeyError) Error() string {
	return fmt.Sprintf("host %s (%s) is not in known_hosts", e.Hostname, e.Fingerprint)
}

// Suggestion returns actionable steps for an unknown host.
func (e *UnknownHostKeyError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return fmt.Sprintf(
		"Verify the fingerprint %s, then either:\n"+
			"    ssh-keyscan %s >> %s\n"+
			"  or re-run with --accept-new-host-key to trust it on first use.",
		e.Fingerprint, host, e.KnownHosts)
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the host was legitimately reinstalled, remove the old entry:\n"+
			"    ssh-keygen -R %s -f %s",
		wantStr, e.ReceivedType, host, e.KnownHosts)
}
