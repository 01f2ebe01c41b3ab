package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapp-so/tapp-go/internal/discovery"
	"github.com/tapp-so/tapp-go/internal/sandbox"
	"github.com/tapp-so/tapp-go/internal/ui"
)

func (c *cli) sandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run or find a local attribution sandbox",
	}
	cmd.AddCommand(c.sandboxServeCmd(), c.sandboxDiscoverCmd())
	return cmd
}

func (c *cli) sandboxServeCmd() *cobra.Command {
	cfg := &sandbox.Config{}
	var armInfluencer string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local attribution API",
		Long: `Run a local stand-in for the attribution API. It issues app secrets,
tracks devices, serves the fingerprint surface and resolves the links it
generates. Point a client at it with --base-url.

--arm creates a link for the given influencer and hands it to the next
device that submits a fingerprint, simulating a deferred deep link.`,
		Example: `  # Serve on port 8080 and advertise over mDNS
  tappctl sandbox serve --advertise

  # Arm a deferred link for the next fresh install
  tappctl sandbox serve --arm alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := sandbox.New(cfg)
			if _, err := srv.Listen(); err != nil {
				return err
			}

			params := map[string]string{
				"API":    srv.URL(),
				"Secret": srv.State().Secret(),
			}
			if cfg.AuthToken != "" {
				params["Auth token"] = redact(cfg.AuthToken)
			}
			if armInfluencer != "" {
				link := srv.CreateLink(armInfluencer, "", "", nil)
				srv.State().ArmDeferred(link)
				params["Armed link"] = link.TappURL
			}

			if c.format == formatJSON {
				if err := c.writeJSON(params); err != nil {
					return err
				}
			} else {
				p := ui.NewPrinter(c.out)
				p.PrintHeader("Sandbox", "tappctl sandbox serve", params)
				p.Println("  Press Ctrl+C to stop")
			}
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&cfg.Host, "host", "", "Listen address (empty = all interfaces)")
	cmd.Flags().IntVar(&cfg.Port, "port", discovery.DefaultPort, "Listen port (0 picks a free port)")
	cmd.Flags().StringVar(&cfg.AuthToken, "auth-token", "", "Bearer token clients must present (empty accepts any)")
	cmd.Flags().StringVar(&cfg.Secret, "secret", "", "App secret to hand out (default: random)")
	cmd.Flags().StringVar(&cfg.LinkHost, "link-host", sandbox.DefaultLinkHost, "Host of generated links")
	cmd.Flags().BoolVar(&cfg.Advertise, "advertise", false, "Advertise the sandbox over mDNS")
	cmd.Flags().StringVar(&cfg.InstanceName, "name", "", "mDNS instance name")
	cmd.Flags().StringVar(&armInfluencer, "arm", "", "Arm a deferred link for this influencer")
	return cmd
}

type discoveredSandbox struct {
	Name string `json:"name"`
	Host string `json:"host"`
	URL  string `json:"url"`
}

func (c *cli) sandboxDiscoverCmd() *cobra.Command {
	var (
		timeout time.Duration
		first   bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find sandboxes advertised on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := discovery.NewScanner()
			scanner.Timeout = timeout

			var instances []*discovery.Instance
			err := ui.Wait(cmd.Context(), c.out, "Scanning for sandboxes ("+timeout.String()+")...", func(ctx context.Context) error {
				if !first {
					var err error
					instances, err = scanner.Scan(ctx)
					return err
				}
				instance, err := scanner.First(ctx)
				if errors.Is(err, discovery.ErrNoInstance) {
					return nil
				}
				if err != nil {
					return err
				}
				instances = []*discovery.Instance{instance}
				return nil
			})
			if err != nil {
				if errors.Is(err, ui.ErrInterrupted) {
					return nil
				}
				return fmt.Errorf("scan failed: %w", err)
			}

			found := make([]discoveredSandbox, 0, len(instances))
			for _, inst := range instances {
				found = append(found, discoveredSandbox{Name: inst.Name, Host: inst.Hostname, URL: inst.BaseURL()})
			}
			if c.format == formatJSON {
				return c.writeJSON(found)
			}

			p := ui.NewPrinter(c.out)
			if len(found) == 0 {
				p.PrintWarning("No sandboxes found", map[string]string{
					"Service": discovery.ServiceType,
					"Hint":    "Start one with 'tappctl sandbox serve --advertise'",
				})
				return nil
			}
			details := make(map[string]string, len(found))
			for i, s := range found {
				details[strconv.Itoa(i+1)+". "+s.Name] = s.URL
			}
			p.PrintSuccess(fmt.Sprintf("Found %d sandbox(es)", len(found)), details)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "duration", discovery.DefaultScanTimeout, "How long to listen for advertisements")
	cmd.Flags().BoolVar(&first, "first", false, "Stop at the first sandbox that answers")
	return cmd
}
