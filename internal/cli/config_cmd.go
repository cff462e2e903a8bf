package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/strange/local-bin/internal/config"
	"github.com/strange/local-bin/internal/errors"
	"github.com/strange/local-bin/internal/ui"
)

func newConfigCmd(deps Deps, ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the defaults file",
		Long: `Manage the optional YAML file holding defaults for the flags.

Values are resolved in this order, later wins:
  built-in defaults, the config file, GITOSIS_KEYGEN_* environment
  variables, flags given on the command line.`,
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(newConfigShowCmd(ro))
	cmd.AddCommand(newConfigInitCmd(deps, ro))
	cmd.AddCommand(newConfigSetCmd(ro))
	return cmd
}

func newConfigShowCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.LoadOrDefault(ro.configPath)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg, false)
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render the config", "")
			}

			if path == "" {
				path = "no file, built-in defaults"
			}
			fmt.Fprintln(cmd.ErrOrStderr(), ui.MutedStyle().Render("# "+path))
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCmd(deps Deps, ro *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configTarget(ro)
			stderr := cmd.ErrOrStderr()

			if _, err := os.Stat(path); err == nil && !force {
				if !deps.Interactive || deps.Confirm == nil {
					return errors.New(errors.ErrConfig,
						fmt.Sprintf("Config file already exists: %s", path),
						"Use --force to overwrite")
				}

				overwrite, err := deps.Confirm(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path))
				if err != nil {
					return errors.WrapWithCode(err, errors.ErrConfig,
						"Failed to get user input",
						"Try running with --force to overwrite")
				}
				if !overwrite {
					fmt.Fprintln(stderr, "Cancelled.")
					return nil
				}
			}

			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(stderr, "%s Wrote %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file without asking")
	return cmd
}

func newConfigSetCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one key in the config file",
		Long: "Set one key in the config file, creating the file with defaults if needed.\n\n" +
			"Keys: " + strings.Join(config.Keys(), ", "),
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.Keys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configTarget(ro)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := config.WriteDefault(path); err != nil {
					return err
				}
			}

			if err := config.SetValue(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s = %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), args[0], args[1])
			return nil
		},
	}
}

// configTarget is the file init and set write to.
func configTarget(ro *rootOptions) string {
	if ro.configPath != "" {
		return ro.configPath
	}
	return config.DefaultPath()
}

// displayDefaultConfigPath shortens the default path for help text.
func displayDefaultConfigPath() string {
	path := config.DefaultPath()
	if home, err := os.UserHomeDir(); err == nil && home != "" && strings.HasPrefix(path, home+"/") {
		return "~" + path[len(home):]
	}
	return path
}
