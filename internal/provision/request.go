package provision

import (
	"fmt"

	"github.com/strange/local-bin/internal/errors"
	"github.com/strange/local-bin/internal/keys"
	"github.com/strange/local-bin/pkg/sshutil"
)

// Request is the input of one run. It is built once by the caller from
// flags and config and passed by value.
type Request struct {
	Source      sshutil.Target      // Account the key pair is created for
	Credentials sshutil.Credentials // How to log in to Source

	TargetHost       string // Host the new key will connect to
	TargetPort       int
	TargetUser       string
	TargetIdentifier string // Names the key files under ~/.ssh
	KeyType          string
}

// Validate checks everything that can be checked without a connection.
func (r Request) Validate() error {
	if r.Source.User == "" || r.Source.Host == "" {
		return errors.Usage("Source account needs both a user and a host")
	}
	if err := keys.ValidateConfigToken("Target host", r.TargetHost); err != nil {
		return err
	}
	if err := keys.ValidateConfigToken("Target user", r.TargetUser); err != nil {
		return err
	}
	if r.TargetPort < 1 || r.TargetPort > 65535 {
		return errors.Usage(fmt.Sprintf("Target port %d is out of range (1-65535)", r.TargetPort))
	}
	if err := keys.ValidateIdentifier(r.TargetIdentifier); err != nil {
		return err
	}
	return keys.ValidateKeyType(r.KeyType)
}

// Paths returns the remote key locations for the request's identifier.
func (r Request) Paths() keys.Paths {
	return keys.PathsFor(r.TargetIdentifier)
}

// Stanza returns the config block the run will append.
func (r Request) Stanza() keys.Stanza {
	return keys.NewStanza(r.TargetHost, r.TargetPort, r.TargetUser, r.Paths())
}

// Result is what a successful run produced.
type Result struct {
	PublicKey string // Remote public key file content, verbatim
	Paths     keys.Paths
	Stanza    string // Text appended to the remote ~/.ssh/config
}
