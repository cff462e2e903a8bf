// Package remote exposes the handful of operations the provisioner needs on
// the remote host as typed calls. The shell commands that implement them
// are an implementation detail of ShellExecutor.
package remote

import (
	"fmt"
	"path"
	"strings"

	"github.com/strange/local-bin/internal/errors"
	"github.com/strange/local-bin/internal/keys"
	"github.com/strange/local-bin/internal/logger"
	"github.com/strange/local-bin/internal/util"
	"github.com/strange/local-bin/pkg/sshutil"
)

// Executor performs the remote side of key provisioning.
type Executor interface {
	// CheckPathsAbsent reports whether none of paths exist remotely.
	CheckPathsAbsent(paths ...string) (bool, error)

	// GenerateKeyPair creates a passphrase-less key pair at privatePath
	// and privatePath.pub.
	GenerateKeyPair(privatePath, keyType string) error

	// AppendConfigStanza appends text to the remote ~/.ssh/config.
	AppendConfigStanza(text string) error

	// ReadFile returns the content of a remote file verbatim.
	ReadFile(p string) ([]byte, error)
}

// RSABits is the key size requested for rsa keys.
const RSABits = 4096

// ShellExecutor implements Executor with POSIX shell commands over an
// SSH session. Paths under "~/" keep the tilde unquoted so the remote shell
// expands it.
type ShellExecutor struct {
	client     sshutil.SSHClient
	configPath string
	log        logger.Logger
}

// NewShellExecutor returns an executor that runs commands through client.
func NewShellExecutor(client sshutil.SSHClient, log logger.Logger) *ShellExecutor {
	if log == nil {
		log = logger.Noop()
	}
	return &ShellExecutor{
		client:     client,
		configPath: keys.ConfigPath,
		log:        log,
	}
}

// CheckPathsAbsent lists the paths with ls -d and counts the "cannot
// access" lines on stderr. Every path must produce one for the check to
// pass; any other count means at least one path exists.
func (e *ShellExecutor) CheckPathsAbsent(paths ...string) (bool, error) {
	if len(paths) == 0 {
		return true, nil
	}

	cmd := "ls -d -- " + util.ShellQuotePaths(paths...)
	stdout, stderr, exitCode, err := e.client.Exec(cmd)
	if err != nil {
		return false, commandError("check for existing key files", e.client.GetHost(), err, stderr, exitCode)
	}

	missing := countLines(stderr)
	e.log.Debug("%s: %d of %d paths missing (exit %d)", cmd, missing, len(paths), exitCode)
	if present := strings.TrimSpace(string(stdout)); present != "" {
		e.log.Debug("already present: %s", strings.ReplaceAll(present, "\n", ", "))
	}

	return missing == len(paths), nil
}

// GenerateKeyPair runs ssh-keygen with an empty passphrase under umask 077,
// creating the key directory first. The exit status is not treated as a
// failure: ssh-keygen output varies between versions, and only a failure
// to run the command at all aborts. A non-zero status is logged.
func (e *ShellExecutor) GenerateKeyPair(privatePath, keyType string) error {
	cmd := keygenCommand(privatePath, keyType)

	stdout, stderr, exitCode, err := e.client.Exec(cmd)
	if err != nil {
		return commandError("generate the key pair", e.client.GetHost(), err, stderr, exitCode)
	}
	if exitCode != 0 {
		detail := firstLine(stderr)
		if detail == "" {
			detail = firstLine(stdout)
		}
		e.log.Warn("ssh-keygen exited with status %d on %s: %s", exitCode, e.client.GetHost(), detail)
	}
	return nil
}

// AppendConfigStanza appends text with printf so it is written byte for
// byte, without echo's escape handling or an added newline.
func (e *ShellExecutor) AppendConfigStanza(text string) error {
	cmd := fmt.Sprintf("printf '%%s' %s >> %s", util.ShellQuote(text), util.ShellQuotePreserveTilde(e.configPath))

	_, stderr, exitCode, err := e.client.Exec(cmd)
	if err != nil || exitCode != 0 {
		return commandError("append to "+e.configPath, e.client.GetHost(), err, stderr, exitCode)
	}
	return nil
}

// ReadFile cats a remote file. A non-zero exit status is an error because
// the output would not be the file's content.
func (e *ShellExecutor) ReadFile(p string) ([]byte, error) {
	stdout, stderr, exitCode, err := e.client.Exec("cat " + util.ShellQuotePreserveTilde(p))
	if err != nil || exitCode != 0 {
		return nil, commandError("read "+p, e.client.GetHost(), err, stderr, exitCode)
	}
	return stdout, nil
}

func keygenCommand(privatePath, keyType string) string {
	var b strings.Builder
	// keyType is one of keys.ValidateKeyType's names and needs no quoting.
	fmt.Fprintf(&b, "umask 077 && mkdir -p %s && ssh-keygen -q -t %s",
		util.ShellQuotePreserveTilde(path.Dir(privatePath)), keyType)
	if keyType == "rsa" {
		fmt.Fprintf(&b, " -b %d", RSABits)
	}
	fmt.Fprintf(&b, " -f %s -N ''", util.ShellQuotePreserveTilde(privatePath))
	return b.String()
}

// commandError builds an ErrRemote error from whatever the failed command
// left behind: a transport error, stderr, or just the exit status.
func commandError(action, host string, err error, stderr []byte, exitCode int) error {
	detail := strings.TrimSpace(string(stderr))
	if err != nil {
		if detail != "" {
			err = fmt.Errorf("%w (stderr: %s)", err, detail)
		}
	} else {
		if detail == "" {
			detail = fmt.Sprintf("exit code %d", exitCode)
		}
		err = fmt.Errorf("%s", detail)
	}
	return errors.WrapWithCode(err, errors.ErrRemote,
		fmt.Sprintf("Couldn't %s on '%s'", action, host),
		"Nothing after this step was attempted. Check the remote account's ~/.ssh permissions and free disk space.")
}

func countLines(b []byte) int {
	n := 0
	for _, line := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
