// Package testing provides test doubles for the provision package.
package testing

import (
	"context"
	"sync"

	"github.com/strange/local-bin/internal/logger"
	"github.com/strange/local-bin/internal/provision"
	"github.com/strange/local-bin/internal/remote"
	"github.com/strange/local-bin/pkg/sshutil"
	sstesting "github.com/strange/local-bin/pkg/sshutil/testing"
)

// FakeDialer hands out a preconfigured client, or fails with Err.
type FakeDialer struct {
	mu     sync.Mutex
	Client sshutil.SSHClient
	Err    error

	// Tracking for assertions
	Targets     []sshutil.Target
	Credentials []sshutil.Credentials
}

// NewFakeDialer returns a dialer that connects to a fresh MockClient.
func NewFakeDialer(host string) (*FakeDialer, *sstesting.MockClient) {
	client := sstesting.NewMockClient(host)
	return &FakeDialer{Client: client}, client
}

// NewFailingDialer returns a dialer whose every Dial fails with err.
func NewFailingDialer(err error) *FakeDialer {
	return &FakeDialer{Err: err}
}

// Dial implements provision.Dialer.
func (d *FakeDialer) Dial(ctx context.Context, target sshutil.Target, creds sshutil.Credentials) (sshutil.SSHClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Targets = append(d.Targets, target)
	d.Credentials = append(d.Credentials, creds)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Client, nil
}

// Calls returns how many times Dial was called.
func (d *FakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Targets)
}

// FakeExecutor scripts the remote operations without any shell.
type FakeExecutor struct {
	Absent    bool   // CheckPathsAbsent result
	PublicKey []byte // ReadFile result

	CheckErr    error
	GenerateErr error
	AppendErr   error
	ReadErr     error

	// Tracking for assertions
	Calls   []string // Operation names in call order
	Checked []string
	Keygens []string // "<path> <type>"
	Stanzas []string
	Reads   []string
}

// NewFakeExecutor returns an executor whose guard passes and whose public
// key file contains publicKey.
func NewFakeExecutor(publicKey string) *FakeExecutor {
	return &FakeExecutor{Absent: true, PublicKey: []byte(publicKey)}
}

// Factory adapts the fake to provision.WithExecutorFactory.
func (e *FakeExecutor) Factory() provision.ExecutorFactory {
	return func(sshutil.SSHClient, logger.Logger) remote.Executor { return e }
}

// CheckPathsAbsent implements remote.Executor.
func (e *FakeExecutor) CheckPathsAbsent(paths ...string) (bool, error) {
	e.Calls = append(e.Calls, "check")
	e.Checked = append(e.Checked, paths...)
	if e.CheckErr != nil {
		return false, e.CheckErr
	}
	return e.Absent, nil
}

// GenerateKeyPair implements remote.Executor.
func (e *FakeExecutor) GenerateKeyPair(privatePath, keyType string) error {
	e.Calls = append(e.Calls, "generate")
	e.Keygens = append(e.Keygens, privatePath+" "+keyType)
	return e.GenerateErr
}

// AppendConfigStanza implements remote.Executor.
func (e *FakeExecutor) AppendConfigStanza(text string) error {
	e.Calls = append(e.Calls, "append")
	e.Stanzas = append(e.Stanzas, text)
	return e.AppendErr
}

var _ remote.Executor = (*FakeExecutor)(nil)

// ReadFile implements remote.Executor.
func (e *FakeExecutor) ReadFile(p string) ([]byte, error) {
	e.Calls = append(e.Calls, "read")
	e.Reads = append(e.Reads, p)
	if e.ReadErr != nil {
		return nil, e.ReadErr
	}
	return e.PublicKey, nil
}

// Recorder collects transitions for assertions.
type Recorder struct {
	mu          sync.Mutex
	Transitions []provision.Transition
}

// Observe implements provision.Observer.
func (r *Recorder) Observe(t provision.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Transitions = append(r.Transitions, t)
}

// States returns the sequence of entered states.
func (r *Recorder) States() []provision.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]provision.State, len(r.Transitions))
	for i, t := range r.Transitions {
		out[i] = t.To
	}
	return out
}
