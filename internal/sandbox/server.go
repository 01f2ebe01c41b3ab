package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tapp-so/tapp-go/internal/discovery"
	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/urls"
	"github.com/tapp-so/tapp-go/internal/version"
)

const (
	// APIPath is the root of the API routes
	APIPath = "/v1/"

	// FingerprintPath serves the fingerprint page over WebSocket
	FingerprintPath = "/fingerprint"

	// DefaultLinkHost is the host generated links point at
	DefaultLinkHost = "sandbox.tapp.so"

	shutdownTimeout = 10 * time.Second
)

// Config holds the sandbox configuration
type Config struct {
	Host string
	Port int // 0 picks a free port

	// AuthToken, if set, must be presented as the bearer token
	AuthToken string

	// Secret is the app token handed out by the secrets endpoint
	// (empty = random)
	Secret string

	// LinkHost is the host of generated links (default: sandbox.tapp.so)
	LinkHost string

	// Advertise publishes the sandbox over mDNS
	Advertise bool

	// InstanceName is the mDNS instance name (default: tapp-sandbox-<hostname>)
	InstanceName string
}

// Server is a local stand-in for the attribution API
type Server struct {
	config *Config
	state  *State

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
}

// New creates a new Server instance
func New(config *Config) *Server {
	if config.LinkHost == "" {
		config.LinkHost = DefaultLinkHost
	}
	return &Server{
		config: config,
		state:  NewState(config.Secret),
	}
}

// State exposes the sandbox data for seeding and inspection
func (s *Server) State() *State {
	return s.state
}

// Handler returns the HTTP handler serving every sandbox route
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// CreateLink registers a new link for influencer on the link host. The
// attributed URL carries the ad group, creative and mmp parameters.
func (s *Server) CreateLink(influencer, adGroup, creative string, data map[string]string) Link {
	token := uuid.NewString()
	query := url.Values{urls.LinkTokenParam: {token}}
	link := url.URL{Scheme: "https", Host: s.config.LinkHost, Path: "/" + influencer, RawQuery: query.Encode()}

	if adGroup != "" {
		query.Set("adgroup", adGroup)
	}
	if creative != "" {
		query.Set("creative", creative)
	}
	query.Set("mmp", "tapp")
	attributed := link
	attributed.RawQuery = query.Encode()

	return s.state.AddLink(Link{
		Token:         token,
		TappURL:       link.String(),
		AttributedURL: attributed.String(),
		Influencer:    influencer,
		Data:          data,
	})
}

// Listen binds the listening socket. Start calls it if needed.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return listener.Addr(), nil
}

// URL returns the API base URL once listening
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + APIPath
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.http = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.http
	listener := s.listener
	s.mu.Unlock()

	logging.Info("Starting tapp sandbox",
		zap.String("addr", addr.String()),
		zap.String("api", s.URL()),
		zap.Bool("advertise", s.config.Advertise),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("sandbox server failed: %w", err)
		}
		return nil
	})

	if s.config.Advertise {
		port := addr.(*net.TCPAddr).Port
		advertiser, err := discovery.Advertise(s.instanceName(), port, map[string]string{
			"path":    APIPath,
			"version": version.Version,
		})
		if err != nil {
			logging.Warn("mDNS advertisement unavailable", zap.Error(err))
		} else {
			logging.Info("Advertising sandbox over mDNS",
				zap.String("service", discovery.ServiceType),
				zap.String("instance", s.instanceName()),
			)
			g.Go(func() error {
				<-ctx.Done()
				advertiser.Shutdown()
				return nil
			})
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	logging.Info("Shutting down sandbox...")
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return srv.Close()
	}
	return nil
}

func (s *Server) instanceName() string {
	if s.config.InstanceName != "" {
		return s.config.InstanceName
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "tapp-sandbox-" + host
}
