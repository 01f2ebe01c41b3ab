package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/ui"
)

// errResetCancelled is returned when the user declines a reset.
var errResetCancelled = errors.New("reset cancelled")

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or reset the stored configuration",
	}
	cmd.AddCommand(c.configShowCmd(), c.configPathCmd(), c.configResetCmd())
	return cmd
}

func (c *cli) configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.close()

			return c.run(cmd.Context(), command{
				title:           "Configuration",
				path:            "tappctl config show",
				params:          map[string]string{"Store": store.location},
				troubleshooting: missingConfigTips,
			}, func(context.Context, ui.StepCallback) (any, map[string]string, error) {
				cfg, err := store.Load()
				if err != nil {
					return nil, nil, err
				}
				cfg.AuthToken = redact(cfg.AuthToken)
				cfg.TappToken = redact(cfg.TappToken)
				cfg.AppToken = redact(cfg.AppToken)
				return cfg, configDetails(cfg), nil
			})
		},
	}
}

func configDetails(cfg *config.Configuration) map[string]string {
	details := map[string]string{
		"Environment":   string(cfg.Environment),
		"Affiliate":     string(cfg.Affiliate),
		"Bundle":        cfg.BundleID,
		"Auth token":    cfg.AuthToken,
		"Tapp token":    cfg.TappToken,
		"App token":     cfg.AppToken,
		"Device":        cfg.DeviceID,
		"Verified":      strconv.FormatBool(cfg.IsAlreadyVerified),
		"Referral done": strconv.FormatBool(cfg.HasProcessedReferralEngine),
	}
	if origin, ok := cfg.Origin(); ok {
		details["Origin"] = origin.URL
		details["Origin influencer"] = origin.Influencer
	}
	return details
}

// redact hides a secret, leaving empty values empty.
func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return logging.Redact(secret)
}

func (c *cli) configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the configuration is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.close()

			if c.format == formatJSON {
				return c.writeJSON(map[string]string{"store": c.storeKind, "location": store.location})
			}
			fmt.Fprintln(c.out, store.location)
			return nil
		},
	}
}

func (c *cli) configResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored configuration",
		Long: `Delete the stored configuration. The next start bootstraps this install
as a fresh one: a new app token, a new device and no cached origin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.close()

			if !yes && !ui.ConfirmReset(c.in, c.out, store.location) {
				return errResetCancelled
			}
			if err := store.Clear(); err != nil {
				return err
			}
			if c.format == formatJSON {
				return c.writeJSON(map[string]bool{"reset": true})
			}
			ui.NewPrinter(c.out).PrintSuccess("Configuration reset", map[string]string{"Store": store.location})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
