package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/strange/local-bin/internal/errors"
	"github.com/strange/local-bin/internal/logger"
	"github.com/strange/local-bin/internal/provision"
	"github.com/strange/local-bin/internal/ui"
	"github.com/strange/local-bin/pkg/sshutil"
	"golang.org/x/term"
)

// Deps are the process resources the commands use. DefaultDeps wires the
// real ones; tests substitute their own.
type Deps struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Prompter asks for the login password when no other credential is set.
	Prompter Prompter

	// Confirm asks a yes/no question. Only used when Interactive is true.
	Confirm func(title string) (bool, error)

	// Interactive is true when stdin is a terminal.
	Interactive bool

	// Animate is true when stderr is a terminal and spinners may redraw.
	Animate bool

	// NewDialer builds the dialer for one run.
	NewDialer func(opts sshutil.DialOptions) provision.Dialer
}

// DefaultDeps returns Deps bound to the process's standard streams.
func DefaultDeps() Deps {
	return Deps{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Prompter:    &TerminalPrompter{In: os.Stdin, Out: os.Stderr},
		Confirm:     confirmWithForm(os.Stderr),
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
		Animate:     term.IsTerminal(int(os.Stderr.Fd())),
		NewDialer: func(opts sshutil.DialOptions) provision.Dialer {
			return provision.SSHDialer{Options: opts}
		},
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
	noColor    bool
}

// newRootCmd builds the command tree.
func newRootCmd(deps Deps) *cobra.Command {
	ro := &rootOptions{}
	ko := &keygenOptions{}

	cmd := &cobra.Command{
		Use:   "gitosis-keygen [flags] <user>@<host> <target_host>",
		Short: "Create an SSH key pair on a remote account for reaching another host",
		Long: `Log in to <user>@<host>, generate a key pair there, add a Host block for
<target_host> to the remote ~/.ssh/config, and print the new public key.

Existing key files are never overwritten: if ~/.ssh/<identifier> or its
.pub already exists on the remote account, nothing is changed.

The public key is the only thing written to stdout, so it can go straight
into a gitosis keydir:

  gitosis-keygen alice@build.example.com git.example.com > keydir/build.pub`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !ui.ColorsRequested(ro.noColor) {
				ui.DisableColors()
			}
			logger.SetDebug(ro.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(cmd, deps, ro, ko, args)
		},
	}

	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&ro.configPath, "config", "", "config file path (default "+displayDefaultConfigPath()+")")
	pf.BoolVarP(&ro.verbose, "verbose", "v", false, "show progress and debug logging on stderr")
	pf.BoolVar(&ro.noColor, "no-color", false, "disable colored diagnostics")

	addKeygenFlags(cmd, ko)

	cmd.AddCommand(newConfigCmd(deps, ro))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI with the process arguments and returns the exit
// status. It is the only place errors are printed.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer sshutil.CloseAgent()

	return run(ctx, DefaultDeps(), os.Args[1:])
}

func run(ctx context.Context, deps Deps, args []string) int {
	root := newRootCmd(deps)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return errors.ExitOK
	}

	verbose, _ := root.PersistentFlags().GetBool("verbose")
	err = asUsageError(cmd, err)
	reportError(deps.Stderr, cmd, err, verbose)
	return errors.ExitCode(err)
}

// asUsageError labels the unstructured errors cobra returns for bad flags
// and argument counts.
func asUsageError(cmd *cobra.Command, err error) error {
	if errors.CodeOf(err) != "" {
		return err
	}
	return errors.New(errors.ErrUsage, err.Error(), "Usage: "+cmd.UseLine())
}

// reportError writes the diagnostic for err. Without verbose it is a
// single line (plus the usage line for usage errors).
func reportError(w io.Writer, cmd *cobra.Command, err error, verbose bool) {
	if verbose {
		fmt.Fprintln(w, ui.ErrorStyle().Render(strings.TrimRight(err.Error(), "\n")))
		return
	}

	fmt.Fprintln(w, ui.ErrorStyle().Render(errors.Summary(err)))
	if errors.IsCode(err, errors.ErrUsage) {
		fmt.Fprintln(w, ui.MutedStyle().Render("Usage: "+cmd.UseLine()))
	}
}

// confirmWithForm asks with a huh confirm rendered on w.
func confirmWithForm(w io.Writer) func(title string) (bool, error) {
	return func(title string) (bool, error) {
		var ok bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Value(&ok),
			),
		).WithProgramOptions(tea.WithOutput(w))

		if err := form.Run(); err != nil {
			if err == huh.ErrUserAborted {
				return false, nil
			}
			return false, err
		}
		return ok, nil
	}
}
