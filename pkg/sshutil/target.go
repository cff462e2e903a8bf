package sshutil

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/strange/local-bin/internal/errors"
)

// DefaultPort is used when neither the argument nor ~/.ssh/config names one.
const DefaultPort = 22

// Target identifies the account to log in to.
type Target struct {
	User string
	Host string // Hostname, IP, or an alias from the local ~/.ssh/config
	Port int    // 0 means "from ssh config, else 22"
}

// String renders the target as user@host[:port].
func (t Target) String() string {
	s := t.User + "@" + t.Host
	if t.Port != 0 && t.Port != DefaultPort {
		s += ":" + strconv.Itoa(t.Port)
	}
	return s
}

// ParseTarget parses "user@host" or "user@host:port".
// Exactly one '@' is required and neither side may be empty.
func ParseTarget(s string) (Target, error) {
	if !strings.Contains(s, "@") {
		return Target{}, errors.Usage(fmt.Sprintf("'%s' is missing a user: expected <user>@<host>", s))
	}

	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return Target{}, errors.Usage(fmt.Sprintf("'%s' has more than one '@': expected <user>@<host>", s))
	}

	target := Target{User: parts[0], Host: parts[1]}
	if target.User == "" || target.Host == "" {
		return Target{}, errors.Usage(fmt.Sprintf("'%s' needs both a user and a host: expected <user>@<host>", s))
	}

	if host, port, err := net.SplitHostPort(target.Host); err == nil {
		n, convErr := strconv.Atoi(port)
		if convErr != nil || n < 1 || n > 65535 {
			return Target{}, errors.Usage(fmt.Sprintf("'%s' isn't a valid port in '%s'", port, s))
		}
		if host == "" {
			return Target{}, errors.Usage(fmt.Sprintf("'%s' needs a host before the port", s))
		}
		target.Host = host
		target.Port = n
	}

	return target, nil
}

// Credentials carries what the user offered for authentication.
type Credentials struct {
	Password     string
	IdentityFile string // Private key file; "~/" is expanded locally
	UseAgent     bool   // Offer keys from SSH_AUTH_SOCK
}

// NeedsPassword reports whether nothing but a password could authenticate,
// and none was given.
func (c Credentials) NeedsPassword() bool {
	return c.Password == "" && c.IdentityFile == "" && !c.UseAgent
}
