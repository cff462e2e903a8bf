// Package keys derives the remote key file locations for a target identifier
// and renders the ssh client config stanza that points at them.
//
// Paths are kept in their "~/.ssh/<identifier>" form: they are expanded by
// the remote shell, and the same literal is written into the stanza's
// IdentityFile line.
package keys

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/strange/local-bin/internal/errors"
)

// SSHDir is the remote directory that holds the generated keys.
const SSHDir = "~/.ssh"

// ConfigPath is the remote ssh client config that stanzas are appended to.
const ConfigPath = SSHDir + "/config"

// Supported key types for remote generation.
var validKeyTypes = map[string]bool{
	"rsa":     true,
	"ed25519": true,
	"ecdsa":   true,
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_@+-][A-Za-z0-9._@+-]*$`)

// Paths holds the derived remote key locations.
type Paths struct {
	Private string
	Public  string
}

// All returns the private and public paths, in that order.
func (p Paths) All() []string {
	return []string{p.Private, p.Public}
}

// PathsFor derives the key paths for an identifier:
// ~/.ssh/<identifier> and ~/.ssh/<identifier>.pub.
func PathsFor(identifier string) Paths {
	private := SSHDir + "/" + identifier
	return Paths{
		Private: private,
		Public:  private + ".pub",
	}
}

// ValidateIdentifier checks that an identifier is usable as a file name
// under ~/.ssh and as an ssh config alias.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return errors.Usage("Target identifier can't be empty")
	}
	if identifier == "config" || identifier == "known_hosts" || identifier == "authorized_keys" {
		return errors.New(errors.ErrUsage,
			fmt.Sprintf("'%s' is reserved under ~/.ssh and can't be used as a target identifier", identifier),
			"Pick another name with -t, e.g. -t gitosis")
	}
	if !identifierPattern.MatchString(identifier) {
		return errors.New(errors.ErrUsage,
			fmt.Sprintf("'%s' isn't a valid target identifier", identifier),
			"Use letters, digits and . _ @ + - only, not starting with a dot")
	}
	return nil
}

// ValidateKeyType checks that ssh-keygen can be asked for this key type.
func ValidateKeyType(keyType string) error {
	if !validKeyTypes[keyType] {
		return errors.New(errors.ErrUsage,
			fmt.Sprintf("'%s' isn't a valid key type", keyType),
			"Pick from: rsa, ed25519, ecdsa")
	}
	return nil
}

// ValidateConfigToken checks a value that is written verbatim into the
// stanza (host names and user names). It must be a single non-empty token.
func ValidateConfigToken(field, value string) error {
	if value == "" {
		return errors.Usage(fmt.Sprintf("%s can't be empty", field))
	}
	if strings.ContainsAny(value, " \t\r\n'\"\\#") {
		return errors.New(errors.ErrUsage,
			fmt.Sprintf("%s '%s' contains whitespace, quotes or '#'", field, value),
			"ssh config values must be a single plain word")
	}
	return nil
}
