// Package provision runs the key provisioning workflow: connect, make sure
// the key files don't exist, generate them, register a config stanza, and
// read the public key back. Every step reports a state transition.
package provision

import (
	"context"
	"fmt"

	"github.com/strange/local-bin/internal/errors"
	"github.com/strange/local-bin/internal/logger"
	"github.com/strange/local-bin/internal/remote"
	"github.com/strange/local-bin/pkg/sshutil"
)

// ExecutorFactory builds the remote executor for an open session.
type ExecutorFactory func(client sshutil.SSHClient, log logger.Logger) remote.Executor

// DefaultExecutorFactory runs shell commands over the session.
func DefaultExecutorFactory(client sshutil.SSHClient, log logger.Logger) remote.Executor {
	return remote.NewShellExecutor(client, log)
}

// Provisioner runs provisioning requests. It holds no per-run state and
// can be reused.
type Provisioner struct {
	dialer      Dialer
	newExecutor ExecutorFactory
	observer    Observer
	log         logger.Logger
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithObserver sets a callback for state transitions.
func WithObserver(o Observer) Option {
	return func(p *Provisioner) { p.observer = o }
}

// WithLogger sets the logger passed down to the executor.
func WithLogger(l logger.Logger) Option {
	return func(p *Provisioner) { p.log = l }
}

// WithExecutorFactory replaces the shell executor, mainly for tests.
func WithExecutorFactory(f ExecutorFactory) Option {
	return func(p *Provisioner) { p.newExecutor = f }
}

// New creates a Provisioner that opens sessions through dialer.
func New(dialer Dialer, opts ...Option) *Provisioner {
	p := &Provisioner{
		dialer:      dialer,
		newExecutor: DefaultExecutorFactory,
		log:         logger.Noop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run tracks the state of a single Run call.
type run struct {
	p     *Provisioner
	state State
}

func (r *run) move(to State, err error) {
	if r.p.observer != nil {
		r.p.observer(Transition{From: r.state, To: to, Err: err})
	}
	r.state = to
}

// fail moves to the failure state and returns err unchanged.
func (r *run) fail(to State, err error) error {
	r.move(to, err)
	return err
}

// Run provisions a key pair for req.
//
// Nothing remote happens if req is invalid. Once a session is open it is
// closed before Run returns, whatever the outcome, and the last reported
// transition is always to Closed. Existing key files are never touched:
// if either exists, Run fails with errors.ErrKeyExists before generating.
func (p *Provisioner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	stanza := req.Stanza()
	if err := stanza.Verify(); err != nil {
		return nil, err
	}

	r := &run{p: p, state: Disconnected}

	client, err := p.dialer.Dial(ctx, req.Source, req.Credentials)
	if err != nil {
		r.move(dialFailureState(err), err)
		r.move(Closed, nil)
		return nil, err
	}
	r.move(Connected, nil)

	defer func() {
		if cerr := client.Close(); cerr != nil {
			p.log.Debug("closing session to %s: %v", client.GetHost(), cerr)
		}
		r.move(Closed, nil)
	}()

	exec := p.newExecutor(client, p.log)
	paths := req.Paths()

	absent, err := exec.CheckPathsAbsent(paths.All()...)
	if err != nil {
		return nil, r.fail(CommandFailed, err)
	}
	if !absent {
		return nil, r.fail(KeyExists, keyExistsError(req, paths.Private, paths.Public))
	}
	r.move(Checked, nil)

	if err := exec.GenerateKeyPair(paths.Private, req.KeyType); err != nil {
		return nil, r.fail(CommandFailed, err)
	}
	r.move(Generated, nil)

	text := stanza.Render()
	if err := exec.AppendConfigStanza(text); err != nil {
		return nil, r.fail(CommandFailed, err)
	}
	r.move(Registered, nil)

	publicKey, err := exec.ReadFile(paths.Public)
	if err != nil {
		return nil, r.fail(CommandFailed, err)
	}
	r.move(Retrieved, nil)

	return &Result{
		PublicKey: string(publicKey),
		Paths:     paths,
		Stanza:    text,
	}, nil
}

func dialFailureState(err error) State {
	switch errors.CodeOf(err) {
	case errors.ErrAuth:
		return AuthFailed
	case errors.ErrHostKey:
		return HostKeyRejected
	default:
		return HostUnreachable
	}
}

func keyExistsError(req Request, private, public string) error {
	return errors.New(errors.ErrKeyExists,
		"One or more files that you are trying to create already exist.",
		fmt.Sprintf("%s or %s is already on %s. Pick another identifier with -t, or remove the old pair first.",
			private, public, req.Source.Host))
}
