// Tappctl is a command line client for the tapp attribution service.
//
// It bootstraps an install, resolves and generates links, reports events
// and inspects the stored configuration. The sandbox subcommands run a
// local stand-in for the attribution API and find running sandboxes on the
// local network.
//
// Usage:
//
//	tappctl [command] [flags]
//
// See 'tappctl --help' for available commands.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/version"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Output formats
const (
	formatStyled = "styled"
	formatJSON   = "json"
)

// envFallbacks maps flags to the environment variables consulted when the
// flag is not given on the command line.
var envFallbacks = map[string]string{
	"store":      "TAPP_STORE",
	"store-path": "TAPP_STORE_PATH",
	"base-url":   "TAPP_BASE_URL",
	"auth-token": "TAPP_AUTH_TOKEN",
	"tapp-token": "TAPP_TOKEN",
	"bundle-id":  "TAPP_BUNDLE_ID",
	"env":        "TAPP_ENV",
	"affiliate":  "TAPP_AFFILIATE",
}

// cli holds the global flags and the streams commands talk to.
type cli struct {
	in  io.Reader
	out io.Writer

	storeKind string
	storePath string
	baseURL   string
	logLevel  string
	format    string
	timeout   time.Duration
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{in: in, out: out}

	root := &cobra.Command{
		Use:   "tappctl",
		Short: "tapp attribution client",
		Long: `A command line client for the tapp attribution service.

Bootstraps an install, resolves and generates tapp links, reports in-app
events and manages the stored configuration. The sandbox commands run a
local attribution API for development.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnv(cmd.Flags()); err != nil {
				return err
			}
			if c.format != formatStyled && c.format != formatJSON {
				return fmt.Errorf("unknown format %q (expected %s or %s)", c.format, formatStyled, formatJSON)
			}
			return logging.Initialize(c.logLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&c.storeKind, "store", storeFile, "Configuration store (file, sqlite, memory)")
	flags.StringVar(&c.storePath, "store-path", "", "Store location (default: the user config directory)")
	flags.StringVar(&c.baseURL, "base-url", "", "Override the attribution API base URL")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error; default: $"+logging.LogLevelEnvVar+" or silent)")
	flags.StringVar(&c.format, "format", formatStyled, "Output format (styled, json)")
	flags.DurationVar(&c.timeout, "timeout", 30*time.Second, "Timeout for API calls")

	root.AddCommand(
		c.startCmd(),
		c.linkCmd(),
		c.originCmd(),
		c.urlCmd(),
		c.eventCmd(),
		c.configCmd(),
		c.sandboxCmd(),
		c.versionCmd(),
	)
	return root
}

// applyEnv fills unset flags from their environment variables.
func applyEnv(flags *pflag.FlagSet) error {
	pending := map[string]string{}
	flags.VisitAll(func(f *pflag.Flag) {
		name, ok := envFallbacks[f.Name]
		if !ok || f.Changed {
			return
		}
		if v, ok := os.LookupEnv(name); ok && v != "" {
			pending[f.Name] = v
		}
	})
	for name, v := range pending {
		if err := flags.Set(name, v); err != nil {
			return fmt.Errorf("invalid %s from $%s: %w", name, envFallbacks[name], err)
		}
	}
	return nil
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.out, "tappctl %s\n", version.Full())
		},
	}
}
