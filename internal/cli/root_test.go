package cli

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/strange/local-bin/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestAsUsageError(t *testing.T) {
	cmd := newRootCmd(Deps{})

	err := asUsageError(cmd, stderrors.New("accepts 2 arg(s), received 0"))
	assert.True(t, errors.IsCode(err, errors.ErrUsage))
	assert.Equal(t, errors.ExitUsage, errors.ExitCode(err))

	structured := errors.New(errors.ErrAuth, "denied", "")
	assert.Same(t, structured, asUsageError(cmd, structured))
}

func TestReportError(t *testing.T) {
	cmd := newRootCmd(Deps{})
	err := errors.WrapWithCode(stderrors.New("ssh: handshake failed: EOF\nmore"), errors.ErrSSH,
		"SSH handshake with 'build' didn't go through", "Try connecting manually: ssh alice@build")

	var buf bytes.Buffer
	reportError(&buf, cmd, err, false)
	assert.Equal(t, "✗ SSH handshake with 'build' didn't go through: ssh: handshake failed: EOF\n", buf.String())

	buf.Reset()
	reportError(&buf, cmd, err, true)
	assert.Contains(t, buf.String(), "Try connecting manually")
	assert.Contains(t, buf.String(), "more")
}

func TestReportError_UsageAddsUsageLine(t *testing.T) {
	cmd := newRootCmd(Deps{})

	var buf bytes.Buffer
	reportError(&buf, cmd, errors.Usage("'x' is missing a user: expected <user>@<host>"), false)
	assert.Contains(t, buf.String(), "✗ 'x' is missing a user")
	assert.Contains(t, buf.String(), "Usage: gitosis-keygen [flags] <user>@<host> <target_host>")
}

func TestRootCommandTree(t *testing.T) {
	cmd := newRootCmd(Deps{})

	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "config")
	assert.Contains(t, names, "version")

	for _, flag := range []string{"target-user", "target-port", "target-identifier", "password", "identity",
		"agent", "key-type", "accept-new-host-key", "known-hosts", "timeout"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
	for short, long := range map[string]string{"u": "target-user", "p": "target-port", "t": "target-identifier", "P": "password", "i": "identity"} {
		assert.Equal(t, long, cmd.Flags().ShorthandLookup(short).Name)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}
