package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	tapp "github.com/tapp-so/tapp-go"
	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/ui"
)

// linkWaiter is the delegate commands use to wait for a link.
type linkWaiter struct {
	opened chan *tapp.LinkData
	failed chan error
}

func newLinkWaiter() *linkWaiter {
	return &linkWaiter{
		opened: make(chan *tapp.LinkData, 1),
		failed: make(chan error, 1),
	}
}

func (w *linkWaiter) DidOpenApplication(data *tapp.LinkData) {
	select {
	case w.opened <- data:
	default:
	}
}

func (w *linkWaiter) DidFailResolvingURL(u *url.URL, err error) {
	select {
	case w.failed <- fmt.Errorf("%s: %w", u, err):
	default:
	}
}

type startResult struct {
	Environment string         `json:"environment"`
	DeviceID    string         `json:"device_id,omitempty"`
	Verified    bool           `json:"verified"`
	Link        *tapp.LinkData `json:"link,omitempty"`
}

func (c *cli) startCmd() *cobra.Command {
	var (
		cfg       tapp.Config
		env       string
		affiliate string
		wait      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Bootstrap this install",
		Long: `Store the install's credentials and run the bootstrap: exchange the tapp
token for an app token, then initialize the attribution service.

A fresh sandbox install opens the fingerprint surface; start waits up to
--wait for the device to be verified and reports a deferred link if the
service matched one.`,
		Example: `  # Bootstrap a sandbox install
  tappctl start --auth-token $TOKEN --tapp-token $TAPP --bundle-id com.example.app

  # Against a local sandbox
  tappctl start --base-url http://localhost:8080/v1/ --auth-token dev --tapp-token dev --bundle-id com.example.app`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			environment, err := config.ParseEnvironment(env)
			if err != nil {
				return err
			}
			aff, err := config.ParseAffiliate(affiliate)
			if err != nil {
				return err
			}
			cfg.Environment = environment
			cfg.Affiliate = aff

			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.close()

			return c.run(cmd.Context(), command{
				title:  "Start",
				path:   "tappctl start",
				params: map[string]string{"Environment": env, "Bundle": cfg.BundleID, "Store": store.location},
				steps:  ui.BootstrapSteps,
				troubleshooting: []string{
					"Check --auth-token and --tapp-token",
					"Use --env sandbox while integrating",
					"Run with --log-level debug to see API traffic",
				},
			}, func(ctx context.Context, onStep ui.StepCallback) (any, map[string]string, error) {
				client := c.newClient(store, tapp.WithPhaseHook(ui.PhaseReporter(onStep)))
				defer client.Close()

				links := newLinkWaiter()
				if err := client.Start(cfg, links); err != nil {
					return nil, nil, err
				}
				if err := client.Ready(ctx); err != nil {
					return nil, nil, err
				}
				link, err := waitForFingerprint(ctx, client, links, wait)
				if err != nil {
					return nil, nil, err
				}

				stored, err := client.Configuration()
				if err != nil {
					return nil, nil, err
				}
				result := startResult{
					Environment: string(stored.Environment),
					DeviceID:    stored.DeviceID,
					Verified:    stored.IsAlreadyVerified,
					Link:        link,
				}
				details := map[string]string{
					"Device":    stored.DeviceID,
					"Verified":  strconv.FormatBool(stored.IsAlreadyVerified),
					"App token": redact(stored.AppToken),
				}
				if link != nil {
					details["Deferred link"] = link.TappURL
					details["Influencer"] = link.Influencer
				}
				return result, details, nil
			})
		},
	}

	cmd.Flags().StringVar(&cfg.AuthToken, "auth-token", "", "API auth token")
	cmd.Flags().StringVar(&cfg.TappToken, "tapp-token", "", "tapp token of the app")
	cmd.Flags().StringVar(&cfg.BundleID, "bundle-id", "", "Bundle identifier of the app")
	cmd.Flags().StringVar(&env, "env", string(config.Sandbox), "Environment (sandbox, production)")
	cmd.Flags().StringVar(&affiliate, "affiliate", string(config.AffiliateTapp), "Affiliate (tapp, adjust, appsflyer)")
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "How long to wait for device verification (0 disables)")
	return cmd
}

// waitForFingerprint waits until the device is verified or a link arrives.
// It returns nil when wait elapses first.
func waitForFingerprint(ctx context.Context, client *tapp.Client, links *linkWaiter, wait time.Duration) (*tapp.LinkData, error) {
	if wait <= 0 {
		return nil, nil
	}
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case data := <-links.opened:
			return data, nil
		case <-ticker.C:
			cfg, err := client.Configuration()
			if err != nil || !cfg.IsAlreadyVerified {
				continue
			}
			// The link, if any, is delivered right after verification.
			select {
			case data := <-links.opened:
				return data, nil
			case <-time.After(200 * time.Millisecond):
				return nil, nil
			}
		case <-deadline.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *cli) linkCmd() *cobra.Command {
	var (
		domain     string
		tokenParam string
		deferred   bool
	)

	cmd := &cobra.Command{
		Use:   "link <url>",
		Short: "Resolve a tapp link",
		Long: `Resolve a tapp link into its influencer and data.

Once an install has an origin link, every link resolves to it without a
network call. --deferred resolves the link as a deferred deep link
instead, which always asks the service and records an impression.`,
		Example: `  tappctl link "https://tapp.so/alice?adj_t=abc123"
  tappctl link --deferred "https://tapp.so/alice?adj_t=abc123" --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(args[0])
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("invalid link %q", args[0])
			}

			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.close()

			return c.run(cmd.Context(), command{
				title:           "Resolve Link",
				path:            "tappctl link",
				params:          map[string]string{"Link": u.String(), "Store": store.location},
				steps:           ui.BootstrapSteps,
				troubleshooting: missingConfigTips,
			}, func(ctx context.Context, onStep ui.StepCallback) (any, map[string]string, error) {
				var opts []tapp.Option
				if domain != "" {
					opts = append(opts, tapp.WithLinkDomain(domain))
				}
				if tokenParam != "" {
					opts = append(opts, tapp.WithLinkTokenParam(tokenParam))
				}
				client := c.newClient(store, append(opts, tapp.WithPhaseHook(ui.PhaseReporter(onStep)))...)
				defer client.Close()

				var (
					data *tapp.LinkData
					err  error
				)
				if deferred {
					data, err = resolveDeferred(ctx, client, u)
				} else {
					data, err = client.FetchLinkData(ctx, u)
				}
				if err != nil {
					return nil, nil, err
				}
				return data, linkDetails(data), nil
			})
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Link domain to accept (default: tapp.so)")
	cmd.Flags().StringVar(&tokenParam, "token-param", "", "Query parameter carrying the link token (default: adj_t)")
	cmd.Flags().BoolVar(&deferred, "deferred", false, "Resolve as a deferred deep link")
	return cmd
}

func resolveDeferred(ctx context.Context, client *tapp.Client, u *url.URL) (*tapp.LinkData, error) {
	links := newLinkWaiter()
	client.SetDelegate(links)
	client.HandleDeferredLink(u)

	select {
	case data := <-links.opened:
		return data, nil
	case err := <-links.failed:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *cli) originCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "origin",
		Short: "Show the cached origin link",
		Long: `Show the origin link this install was attributed to. The answer comes
from the stored configuration; nothing is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.close()

			return c.run(cmd.Context(), command{
				title:  "Origin Link",
				path:   "tappctl origin",
				params: map[string]string{"Store": store.location},
				troubleshooting: []string{
					"The origin is cached after the first link resolves",
					"Resolve one with 'tappctl link <url>'",
				},
			}, func(ctx context.Context, onStep ui.StepCallback) (any, map[string]string, error) {
				client := c.newClient(store, tapp.WithSurfaceProvider(nil))
				defer client.Close()

				data, err := client.FetchOriginLinkData()
				if err != nil {
					return nil, nil, err
				}
				return data, linkDetails(data), nil
			})
		},
	}
}

func (c *cli) urlCmd() *cobra.Command {
	var uc tapp.URLConfig
	var data map[string]string

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Generate an affiliate URL",
		Example: `  tappctl url --influencer alice
  tappctl url --influencer alice --adgroup spring --creative banner --data campaign=launch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uc.Influencer == "" {
				return errors.New("--influencer is required")
			}
			uc.Data = tapp.Data(data)

			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.close()

			return c.run(cmd.Context(), command{
				title:           "Generate URL",
				path:            "tappctl url",
				params:          map[string]string{"Influencer": uc.Influencer, "Store": store.location},
				steps:           ui.BootstrapSteps,
				troubleshooting: missingConfigTips,
			}, func(ctx context.Context, onStep ui.StepCallback) (any, map[string]string, error) {
				client := c.newClient(store, tapp.WithPhaseHook(ui.PhaseReporter(onStep)))
				defer client.Close()

				generated, err := client.GenerateURL(ctx, uc)
				if err != nil {
					return nil, nil, err
				}
				return map[string]string{"url": generated.URL}, map[string]string{"URL": generated.URL}, nil
			})
		},
	}

	cmd.Flags().StringVar(&uc.Influencer, "influencer", "", "Influencer the link belongs to (required)")
	cmd.Flags().StringVar(&uc.AdGroup, "adgroup", "", "Ad group")
	cmd.Flags().StringVar(&uc.Creative, "creative", "", "Creative")
	cmd.Flags().StringToStringVar(&data, "data", nil, "Link data as key=value pairs")
	return cmd
}

type eventResult struct {
	Event  string `json:"event"`
	Custom bool   `json:"custom"`
}

func (c *cli) eventCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "event <name>",
		Short: "Report an in-app event",
		Long: `Report an in-app event. Predefined names such as purchase or add_to_cart
are matched case-insensitively; any other name is sent as a custom event.
The event carries the install's origin link when one is cached.

--token forwards an affiliate event token to the affiliate service instead.`,
		Example: `  tappctl event purchase
  tappctl event level_100_cleared`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.close()

			action := tapp.ParseEventAction(args[0])
			return c.run(cmd.Context(), command{
				title:           "Report Event",
				path:            "tappctl event",
				params:          map[string]string{"Event": action.Name(), "Store": store.location},
				troubleshooting: missingConfigTips,
			}, func(ctx context.Context, onStep ui.StepCallback) (any, map[string]string, error) {
				if !config.HasConfig(store.Store) {
					return nil, nil, tapp.ErrMissingConfiguration
				}
				client := c.newClient(store, tapp.WithSurfaceProvider(nil))
				defer client.Close()

				if token != "" {
					client.ReportEvent(token)
				} else if err := client.ReportTappEvent(tapp.Event{Action: action}); err != nil {
					return nil, nil, err
				}
				return eventResult{Event: action.Name(), Custom: action.IsCustom()},
					map[string]string{"Event": action.Name(), "Custom": strconv.FormatBool(action.IsCustom())}, nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Affiliate event token")
	return cmd
}
