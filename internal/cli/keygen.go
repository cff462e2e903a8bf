package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/strange/local-bin/internal/config"
	"github.com/strange/local-bin/internal/keys"
	"github.com/strange/local-bin/internal/logger"
	"github.com/strange/local-bin/internal/provision"
	"github.com/strange/local-bin/internal/ui"
	"github.com/strange/local-bin/pkg/sshutil"
)

// keygenOptions holds the root command's own flags. Only flags the user
// actually set override the config file.
type keygenOptions struct {
	targetUser       string
	targetPort       int
	targetIdentifier string
	password         string
	identity         string
	agent            bool
	keyType          string
	acceptNew        bool
	knownHosts       string
	timeout          time.Duration
}

func addKeygenFlags(cmd *cobra.Command, o *keygenOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.targetUser, "target-user", "u", config.DefaultTargetUser, "user for the target host's Host block")
	f.IntVarP(&o.targetPort, "target-port", "p", config.DefaultTargetPort, "port for the target host's Host block")
	f.StringVarP(&o.targetIdentifier, "target-identifier", "t", config.DefaultTargetIdentifier, "key file name under ~/.ssh on the remote account")
	f.StringVarP(&o.password, "password", "P", "", "login password (prompted for if omitted)")
	f.StringVarP(&o.identity, "identity", "i", "", "log in with this private key file")
	f.BoolVar(&o.agent, "agent", false, "log in with keys from ssh-agent")
	f.StringVar(&o.keyType, "key-type", config.DefaultKeyType, "key type to generate: rsa, ed25519 or ecdsa")
	f.BoolVar(&o.acceptNew, "accept-new-host-key", false, "trust and record an unknown host key (trust on first use)")
	f.StringVar(&o.knownHosts, "known-hosts", config.DefaultKnownHosts, "known_hosts file")
	f.DurationVar(&o.timeout, "timeout", config.DefaultConnectTimeout, "connect timeout")
}

// effectiveConfig overlays the flags that were set on base.
func effectiveConfig(flags *pflag.FlagSet, base *config.Config, o *keygenOptions) config.Config {
	cfg := *base

	if flags.Changed("target-user") {
		cfg.TargetUser = o.targetUser
	}
	if flags.Changed("target-port") {
		cfg.TargetPort = o.targetPort
	}
	if flags.Changed("target-identifier") {
		cfg.TargetIdentifier = o.targetIdentifier
	}
	if flags.Changed("key-type") {
		cfg.KeyType = o.keyType
	}
	if flags.Changed("accept-new-host-key") {
		if o.acceptNew {
			cfg.HostKeyPolicy = string(sshutil.HostKeyAcceptNew)
		} else {
			cfg.HostKeyPolicy = string(sshutil.HostKeyStrict)
		}
	}
	if flags.Changed("known-hosts") {
		cfg.KnownHosts = o.knownHosts
	}
	if flags.Changed("timeout") {
		cfg.ConnectTimeout = o.timeout
	}
	if flags.Changed("agent") {
		cfg.UseAgent = o.agent
	}
	if flags.Changed("identity") {
		cfg.IdentityFile = o.identity
	}

	return cfg
}

func runKeygen(cmd *cobra.Command, deps Deps, ro *rootOptions, o *keygenOptions, args []string) error {
	source, err := sshutil.ParseTarget(args[0])
	if err != nil {
		return err
	}

	base, path, err := config.LoadOrDefault(ro.configPath)
	if err != nil {
		return err
	}
	log := logger.NewEnvLogger("[gitosis-keygen]")
	if path != "" {
		log.Debug("using config %s", path)
	}

	cfg := effectiveConfig(cmd.Flags(), base, o)

	req := provision.Request{
		Source: source,
		Credentials: sshutil.Credentials{
			IdentityFile: cfg.IdentityPath(),
			UseAgent:     cfg.UseAgent,
		},
		TargetHost:       args[1],
		TargetPort:       cfg.TargetPort,
		TargetUser:       cfg.TargetUser,
		TargetIdentifier: cfg.TargetIdentifier,
		KeyType:          cfg.KeyType,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := req.Stanza().Verify(); err != nil {
		return err
	}
	// Request.Validate reports flag mistakes as usage errors; this catches
	// the rest (timeout, policy).
	if err := config.Validate(&cfg); err != nil {
		return err
	}
	policy, err := sshutil.ParseHostKeyPolicy(cfg.HostKeyPolicy)
	if err != nil {
		return err
	}

	// An explicit --password, even an empty one, is never prompted for.
	if cmd.Flags().Changed("password") {
		req.Credentials.Password = o.password
	} else if req.Credentials.NeedsPassword() {
		password, err := deps.Prompter.ReadPassword(fmt.Sprintf("Enter password for %s@%s: ", source.User, source.Host))
		if err != nil {
			return err
		}
		req.Credentials.Password = password
	}

	dialer := deps.NewDialer(sshutil.DialOptions{
		Timeout:        cfg.ConnectTimeout,
		HostKeyPolicy:  policy,
		KnownHostsPath: cfg.KnownHostsPath(),
	})

	opts := []provision.Option{provision.WithLogger(logger.NewEnvLogger("[provision]"))}
	var steps *ui.StepReporter
	if ro.verbose {
		steps = ui.NewStepReporter(deps.Stderr, deps.Animate)
		opts = append(opts, provision.WithObserver(stepObserver(steps, req)))
		steps.Begin("Connecting to " + source.String())
	}

	res, err := provision.New(dialer, opts...).Run(cmd.Context(), req)
	if err != nil {
		if steps != nil {
			steps.Fail()
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, res.PublicKey)
	if !strings.HasSuffix(res.PublicKey, "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

// stepObserver turns state transitions into progress lines. Each
// transition finishes the running step and starts the next.
func stepObserver(steps *ui.StepReporter, req provision.Request) provision.Observer {
	paths := req.Paths()
	return func(t provision.Transition) {
		if t.To.Failed() {
			steps.Fail()
			return
		}
		switch t.To {
		case provision.Connected:
			steps.Begin("Checking for existing keys")
		case provision.Checked:
			steps.Begin(fmt.Sprintf("Generating %s key %s", req.KeyType, paths.Private))
		case provision.Generated:
			steps.Begin(fmt.Sprintf("Adding %s to %s", req.TargetHost, keys.ConfigPath))
		case provision.Registered:
			steps.Begin("Reading " + paths.Public)
		case provision.Retrieved:
			steps.Succeed()
		}
	}
}
