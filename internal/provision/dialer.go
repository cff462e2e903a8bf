package provision

import (
	"context"

	"github.com/strange/local-bin/pkg/sshutil"
)

// Dialer opens the session a run works over.
type Dialer interface {
	Dial(ctx context.Context, target sshutil.Target, creds sshutil.Credentials) (sshutil.SSHClient, error)
}

// SSHDialer dials real hosts with sshutil.Dial.
type SSHDialer struct {
	Options sshutil.DialOptions
}

// Dial implements Dialer.
func (d SSHDialer) Dial(ctx context.Context, target sshutil.Target, creds sshutil.Credentials) (sshutil.SSHClient, error) {
	client, err := sshutil.Dial(ctx, target, creds, d.Options)
	if err != nil {
		// Avoid a typed nil inside the interface.
		return nil, err
	}
	return client, nil
}
