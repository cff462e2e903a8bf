package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/strange/local-bin/internal/logger"
	"github.com/strange/local-bin/internal/provision"
	ptesting "github.com/strange/local-bin/internal/provision/testing"
	"github.com/strange/local-bin/pkg/sshutil"
	sstesting "github.com/strange/local-bin/pkg/sshutil/testing"
)

type fakePrompter struct {
	password string
	err      error
	prompts  []string
}

func (p *fakePrompter) ReadPassword(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.password, p.err
}

// harness runs the CLI against a simulated source account.
type harness struct {
	t        *testing.T
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	prompter *fakePrompter
	dialer   *ptesting.FakeDialer
	client   *sstesting.MockClient
	dialOpts []sshutil.DialOptions

	interactive bool
	confirm     func(title string) (bool, error)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	t.Cleanup(func() { logger.SetDebug(false) })

	dialer, client := ptesting.NewFakeDialer("build.example.com")
	client.SetUser("alice")
	return &harness{
		t:        t,
		prompter: &fakePrompter{password: "from-prompt"},
		dialer:   dialer,
		client:   client,
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Stdin:       strings.NewReader(""),
		Stdout:      &h.stdout,
		Stderr:      &h.stderr,
		Prompter:    h.prompter,
		Confirm:     h.confirm,
		Interactive: h.interactive,
		NewDialer: func(opts sshutil.DialOptions) provision.Dialer {
			h.dialOpts = append(h.dialOpts, opts)
			return h.dialer
		},
	}
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	return run(context.Background(), h.deps(), args)
}

// remoteFile reads a file from the simulated account, "~/" allowed.
func (h *harness) remoteFile(p string) string {
	h.t.Helper()
	data, err := h.client.GetFS().ReadFile(h.client.Expand(p))
	if err != nil {
		return ""
	}
	return string(data)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
