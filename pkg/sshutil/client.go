package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/strange/local-bin/internal/errors"
	"github.com/strange/local-bin/internal/logger"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// DefaultTimeout bounds the TCP connect and the SSH handshake.
const DefaultTimeout = 10 * time.Second

var log = logger.NewEnvLogger("[ssh]")

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// DialContextFunc opens the underlying transport connection.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialOptions tune how Dial connects and verifies the remote host.
type DialOptions struct {
	Timeout        time.Duration
	HostKeyPolicy  HostKeyPolicy
	KnownHostsPath string          // Defaults to ~/.ssh/known_hosts
	SSHConfigPath  string          // Defaults to ~/.ssh/config; used to resolve aliases
	DialContext    DialContextFunc // Defaults to a net.Dialer
}

func (o DialOptions) withDefaults() DialOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.HostKeyPolicy == "" {
		o.HostKeyPolicy = HostKeyStrict
	}
	if o.KnownHostsPath == "" {
		o.KnownHostsPath = filepath.Join(homeDir(), ".ssh", "known_hosts")
	}
	if o.SSHConfigPath == "" {
		o.SSHConfigPath = filepath.Join(homeDir(), ".ssh", "config")
	}
	if o.DialContext == nil {
		d := &net.Dialer{Timeout: o.Timeout}
		o.DialContext = d.DialContext
	}
	return o
}

// Dial opens an authenticated SSH connection to target.
//
// The host may be an alias from ~/.ssh/config; HostName and Port are
// resolved from it, while the user always comes from target. Failures are
// classified as errors.ErrHost (name resolution or TCP connect),
// errors.ErrHostKey (host key rejected), or errors.ErrAuth (credentials
// rejected). The transport connection is closed on every failure path.
func Dial(ctx context.Context, target Target, creds Credentials, opts DialOptions) (*Client, error) {
	opts = opts.withDefaults()
	settings := resolveSSHSettings(target, opts.SSHConfigPath)

	config, err := buildSSHConfig(settings, creds, opts)
	if err != nil {
		return nil, err
	}

	address := settings.address()
	log.Debug("dialing %s (%s) as %s", target.Host, address, settings.user)

	dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	conn, err := opts.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, classifyDialError(err, target.Host, address)
	}

	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, classifyHandshakeError(err, target, creds)
	}
	_ = conn.SetDeadline(time.Time{})

	log.Debug("connected to %s", address)
	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    target.Host,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname string
	port     string
	user     string
}

// address returns the host:port string for dialing.
func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings fills in hostname and port from the local ssh config
// when the target host is an alias there. An explicit port wins.
func resolveSSHSettings(target Target, configPath string) *sshSettings {
	settings := &sshSettings{
		hostname: target.Host,
		port:     strconv.Itoa(DefaultPort),
		user:     target.User,
	}

	entry, matchLine, err := LookupHost(configPath, target.Host)
	if err != nil {
		// Missing or unreadable config just means no aliases.
		log.Debug("ssh config not used: %v", err)
	}

	found := false
	if entry.Hostname != "" {
		settings.hostname = entry.Hostname
		found = true
	}
	if entry.Port != "" {
		settings.port = entry.Port
		found = true
	}
	if target.Port != 0 {
		settings.port = strconv.Itoa(target.Port)
	}

	if matchLine > 0 && !found {
		log.Debug("host '%s' not found before the Match block at line %d of %s", target.Host, matchLine, configPath)
	}

	return settings
}

// buildSSHConfig creates an SSH client config with authentication methods
// and the host key callback for the configured policy.
func buildSSHConfig(settings *sshSettings, creds Credentials, opts DialOptions) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if creds.UseAgent {
		if agentAuth := sshAgentAuth(); agentAuth != nil {
			authMethods = append(authMethods, agentAuth)
		} else {
			log.Warn("--agent given but no keys are available from SSH_AUTH_SOCK")
		}
	}

	if creds.IdentityFile != "" {
		keyAuth, err := keyFileAuth(expandPath(creds.IdentityFile))
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				return nil, errors.New(errors.ErrAuth,
					err.Error(),
					fmt.Sprintf("Load it into the agent and use --agent: ssh-add %s", encErr.Path))
			}
			return nil, errors.WrapWithCode(err, errors.ErrAuth,
				fmt.Sprintf("Couldn't load identity file %s", creds.IdentityFile),
				"Check the path passed to --identity")
		}
		authMethods = append(authMethods, keyAuth)
	}

	if creds.Password != "" {
		password := creds.Password
		authMethods = append(authMethods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	if len(authMethods) == 0 {
		return nil, errors.New(errors.ErrAuth,
			"No SSH auth methods available",
			"Pass a password with -P, a key with --identity, or use --agent")
	}

	hostKeyCallback, err := newHostKeyCallback(opts.HostKeyPolicy, opts.KnownHostsPath)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}, nil
}

// agentConn holds the reusable SSH agent connection.
var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns an auth method using the SSH agent if available.
// Returns nil if the agent has no keys loaded.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}

	// An empty agent causes auth failures when placed before other methods.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the SSH agent connection if one is open.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

// keyFileAuth returns an auth method using a private key file.
// Returns EncryptedKeyError if the key requires a passphrase.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || isEncryptedPEM(key) {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

func classifyDialError(err error, host, address string) error {
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return errors.WrapWithCode(err, errors.ErrHost,
			fmt.Sprintf("Can't resolve host '%s'", host),
			"Check the hostname and your DNS settings.")
	}
	return errors.WrapWithCode(err, errors.ErrHost,
		fmt.Sprintf("Can't reach '%s' at %s", host, address),
		suggestionForDialError(err))
}

func classifyHandshakeError(err error, target Target, creds Credentials) error {
	var mismatch *HostKeyMismatchError
	if stderrors.As(err, &mismatch) {
		return errors.WrapWithCode(err, errors.ErrHostKey,
			fmt.Sprintf("Host key for '%s' doesn't match known_hosts", target.Host),
			mismatch.Suggestion())
	}

	var unknown *UnknownHostKeyError
	if stderrors.As(err, &unknown) {
		return errors.WrapWithCode(err, errors.ErrHostKey,
			fmt.Sprintf("Host '%s' isn't in known_hosts", target.Host),
			unknown.Suggestion())
	}

	errStr := err.Error()
	if strings.Contains(errStr, "host key mismatch") || strings.Contains(errStr, "is not in known_hosts") {
		return errors.WrapWithCode(err, errors.ErrHostKey,
			fmt.Sprintf("Host key for '%s' was rejected", target.Host),
			"Verify the host key, or pass --accept-new-host-key to trust it on first use.")
	}
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods remain") {
		suggestion := "Double-check the password and try again."
		if creds.Password == "" {
			suggestion = "The server didn't accept the offered keys. Try a password with -P."
		}
		return errors.WrapWithCode(err, errors.ErrAuth,
			fmt.Sprintf("Authentication failed for %s", target),
			suggestion)
	}

	return errors.WrapWithCode(err, errors.ErrSSH,
		fmt.Sprintf("SSH handshake with '%s' didn't go through", target.Host),
		"Try connecting manually: ssh "+target.String())
}

// Helper functions

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// isEncryptedPEM checks if PEM data contains encryption markers.
func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED"))
}
