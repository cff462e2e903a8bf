// Package cli implements the gitosis-keygen command-line interface.
//
// The root command takes a source account and a target host:
//
//	gitosis-keygen [flags] <user>@<host> <target_host>
//
// It logs in to the source account, creates a key pair there for reaching
// the target host, registers the target in the source's ~/.ssh/config and
// prints the public key on stdout. Everything else (progress, prompts,
// diagnostics) goes to stderr so the output can be piped straight into a
// gitosis admin checkout.
//
// Subcommands manage the optional config file that supplies defaults:
//
//	gitosis-keygen config show          - print the effective config
//	gitosis-keygen config init          - write a default config file
//	gitosis-keygen config set <k> <v>   - change one key in place
//	gitosis-keygen version              - print build information
//
// # Errors and exit codes
//
// Commands return structured errors from internal/errors. Execute is the
// only place they are printed and turned into an exit status: 1 for
// usage and config problems, 2 for anything that failed after a
// connection attempt started.
//
// # Testing
//
// Commands are built by newRootCmd from a Deps value, so tests swap in a
// fake dialer, a scripted prompter and buffers for the standard streams.
package cli
