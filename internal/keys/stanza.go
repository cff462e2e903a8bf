package keys

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/kevinburke/ssh_config"
	"github.com/strange/local-bin/internal/errors"
)

// Stanza describes one Host block appended to the remote ssh config.
type Stanza struct {
	Host         string // Used as both the alias and HostName
	IdentityFile string // Private key path, "~/.ssh/<identifier>"
	Port         int
	User         string
}

// NewStanza builds the stanza for a target connection and its key paths.
func NewStanza(targetHost string, port int, targetUser string, paths Paths) Stanza {
	return Stanza{
		Host:         targetHost,
		IdentityFile: paths.Private,
		Port:         port,
		User:         targetUser,
	}
}

// Render returns the exact text appended to the remote config: a leading
// blank line, the Host block with tab-indented options, and a trailing
// blank line.
func (s Stanza) Render() string {
	return fmt.Sprintf("\nHost %s\n"+
		"\tHostName %s\n"+
		"\tIdentityFile %s\n"+
		"\tPasswordAuthentication no\n"+
		"\tPort %d\n"+
		"\tUser %s\n\n",
		s.Host, s.Host, s.IdentityFile, s.Port, s.User)
}

// Verify parses the rendered stanza with an ssh config parser and checks
// that looking up the alias yields the values it was built from. It guards
// against values that would silently produce a different config.
func (s Stanza) Verify() error {
	cfg, err := ssh_config.Decode(bytes.NewReader([]byte(s.Render())))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrUsage,
			fmt.Sprintf("Config stanza for '%s' doesn't parse", s.Host),
			"Check the target host and user for unusual characters")
	}

	want := map[string]string{
		"HostName":               s.Host,
		"IdentityFile":           s.IdentityFile,
		"PasswordAuthentication": "no",
		"Port":                   strconv.Itoa(s.Port),
		"User":                   s.User,
	}
	for key, expected := range want {
		got, err := cfg.Get(s.Host, key)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrUsage,
				fmt.Sprintf("Config stanza for '%s' has an invalid %s", s.Host, key),
				"Check the target options")
		}
		if got != expected {
			return errors.New(errors.ErrUsage,
				fmt.Sprintf("Config stanza for '%s' resolves %s to %q, expected %q", s.Host, key, got, expected),
				"Check the target options")
		}
	}
	return nil
}
