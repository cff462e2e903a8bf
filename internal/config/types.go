package config

import "time"

// Config holds the defaults a run starts from. Flags set on the command
// line override these values; nothing else mutates a Config once loaded.
type Config struct {
	// TargetUser is the User written into the stanza.
	TargetUser string `yaml:"target_user" mapstructure:"target_user"`

	// TargetPort is the Port written into the stanza.
	TargetPort int `yaml:"target_port" mapstructure:"target_port"`

	// TargetIdentifier names the key files (~/.ssh/<identifier>).
	TargetIdentifier string `yaml:"target_identifier" mapstructure:"target_identifier"`

	// KeyType is passed to ssh-keygen -t: rsa, ed25519 or ecdsa.
	KeyType string `yaml:"key_type" mapstructure:"key_type"`

	// HostKeyPolicy is "strict" or "accept-new".
	HostKeyPolicy string `yaml:"host_key_policy" mapstructure:"host_key_policy"`

	// KnownHosts is the local known_hosts file. Supports ~ and ${HOME}.
	KnownHosts string `yaml:"known_hosts" mapstructure:"known_hosts"`

	// ConnectTimeout bounds the TCP connect and SSH handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// UseAgent offers keys from ssh-agent before anything else.
	UseAgent bool `yaml:"use_agent" mapstructure:"use_agent"`

	// IdentityFile is a private key to log in with instead of a password.
	IdentityFile string `yaml:"identity_file" mapstructure:"identity_file"`
}

// Defaults. The stanza and key paths are derived from these when neither
// a flag nor the config file says otherwise.
const (
	DefaultTargetUser       = "git"
	DefaultTargetPort       = 22
	DefaultTargetIdentifier = "default"
	DefaultKeyType          = "rsa"
	DefaultHostKeyPolicy    = "strict"
	DefaultKnownHosts       = "~/.ssh/known_hosts"
	DefaultConnectTimeout   = 10 * time.Second
)

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		TargetUser:       DefaultTargetUser,
		TargetPort:       DefaultTargetPort,
		TargetIdentifier: DefaultTargetIdentifier,
		KeyType:          DefaultKeyType,
		HostKeyPolicy:    DefaultHostKeyPolicy,
		KnownHosts:       DefaultKnownHosts,
		ConnectTimeout:   DefaultConnectTimeout,
		UseAgent:         false,
	}
}

// KnownHostsPath returns KnownHosts with ~ and variables expanded.
func (c *Config) KnownHostsPath() string {
	return ExpandTilde(Expand(c.KnownHosts))
}

// IdentityPath returns IdentityFile with ~ and variables expanded.
func (c *Config) IdentityPath() string {
	return ExpandTilde(Expand(c.IdentityFile))
}
