package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/strange/local-bin/internal/errors"
	"gopkg.in/yaml.v3"
)

// field describes one config key for rendering and editing.
type field struct {
	key     string
	comment string
	tag     string
	value   func(c *Config) string
}

// fields lists the keys in file order.
var fields = []field{
	{"target_user", "User written into the stanza (-u).", "!!str",
		func(c *Config) string { return c.TargetUser }},
	{"target_port", "Port written into the stanza (-p).", "!!int",
		func(c *Config) string { return strconv.Itoa(c.TargetPort) }},
	{"target_identifier", "Key files are ~/.ssh/<identifier> on the remote (-t).", "!!str",
		func(c *Config) string { return c.TargetIdentifier }},
	{"key_type", "rsa, ed25519 or ecdsa.", "!!str",
		func(c *Config) string { return c.KeyType }},
	{"host_key_policy", "strict rejects unknown hosts; accept-new trusts and records them on first use.", "!!str",
		func(c *Config) string { return c.HostKeyPolicy }},
	{"known_hosts", "Local known_hosts file.", "!!str",
		func(c *Config) string { return c.KnownHosts }},
	{"connect_timeout", "Bound on TCP connect plus SSH handshake.", "!!str",
		func(c *Config) string { return c.ConnectTimeout.String() }},
	{"use_agent", "Offer keys from ssh-agent (--agent).", "!!bool",
		func(c *Config) string { return strconv.FormatBool(c.UseAgent) }},
	{"identity_file", "Private key to log in with instead of a password (-i).", "!!str",
		func(c *Config) string { return c.IdentityFile }},
}

// Keys returns every config key in file order.
func Keys() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.key
	}
	return out
}

// Marshal renders cfg as YAML in a fixed key order. Durations are written
// as strings ("10s"). With comments, every key gets a short explanation.
func Marshal(cfg *Config, comments bool) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.key}
		if comments {
			key.HeadComment = f.comment
		}
		doc.Content = append(doc.Content, key,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: f.tag, Value: f.value(cfg)})
	}
	root := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}}
	if comments {
		root.HeadComment = "gitosis-keygen defaults. Flags on the command line win over these,\n" +
			"and GITOSIS_KEYGEN_<KEY> environment variables win over this file."
	}
	return encode(root)
}

// WriteDefault writes the default config to path, creating its directory.
func WriteDefault(path string) error {
	data, err := Marshal(DefaultConfig(), true)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render the default config", "")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create "+filepath.Dir(path),
			"Check directory permissions")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write "+path,
			"Check file permissions")
	}
	return nil
}

// SetValue sets one key in an existing config file. It preserves the
// existing YAML structure and comments, adding the key if it is missing.
// The edited file must still load; otherwise nothing is written.
func SetValue(configPath, key, value string) error {
	f, ok := lookupField(key)
	if !ok {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a config key", key),
			"Known keys: "+strings.Join(Keys(), ", "))
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Create one with 'gitosis-keygen config init'")
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to parse config file",
			"Check the YAML syntax in "+configPath)
	}
	if root.Kind == 0 {
		// Empty file.
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return errors.New(errors.ErrConfig,
			"Config file isn't a YAML mapping",
			"Check the YAML syntax in "+configPath)
	}
	docNode := root.Content[0]

	if valueNode := findMapValue(docNode, key); valueNode != nil {
		valueNode.Kind = yaml.ScalarNode
		valueNode.Tag = f.tag
		valueNode.Value = value
		valueNode.Style = 0
	} else {
		docNode.Content = append(docNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: f.tag, Value: value},
		)
	}

	out, err := encode(&root)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to encode config", "")
	}

	// Validate through the real loader before touching the file.
	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't write "+tmp, "Check file permissions")
	}
	if _, err := Load(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, configPath); err != nil {
		os.Remove(tmp)
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't replace "+configPath, "Check file permissions")
	}
	return nil
}

func lookupField(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

func encode(node *yaml.Node) ([]byte, error) {
	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(node); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}
