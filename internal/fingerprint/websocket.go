package fingerprint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/tapp-so/tapp-go/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultReadTimeout bounds how long a surface waits for its message.
const DefaultReadTimeout = 2 * time.Minute

// WebSocketSurface loads the fingerprint page over a WebSocket and waits
// for its deviceInfo message.
type WebSocketSurface struct {
	// URL is the branded URL; http(s) is rewritten to ws(s).
	URL *url.URL

	// Dialer opens the connection (default: websocket.DefaultDialer)
	Dialer *websocket.Dialer

	// Header is sent with the handshake
	Header http.Header

	// ReadTimeout bounds the wait for the message (0 = no limit)
	ReadTimeout time.Duration

	messages chan Message

	mu     sync.Mutex
	loaded bool
	cancel context.CancelFunc
}

// NewWebSocketSurface returns a surface for brandedURL.
func NewWebSocketSurface(brandedURL *url.URL) *WebSocketSurface {
	return &WebSocketSurface{
		URL:         brandedURL,
		Dialer:      websocket.DefaultDialer,
		ReadTimeout: DefaultReadTimeout,
		messages:    make(chan Message, 1),
	}
}

// WebSocketProvider makes WebSocketSurfaces.
var WebSocketProvider = ProviderFunc(func(u *url.URL) Surface {
	return NewWebSocketSurface(u)
})

// Messages implements Surface.
func (s *WebSocketSurface) Messages() <-chan Message {
	return s.messages
}

// Load implements Surface. The connection is handled in the background.
func (s *WebSocketSurface) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return ErrAlreadyLoaded
	}
	s.loaded = true

	target, err := websocketURL(s.URL)
	if err != nil {
		close(s.messages)
		return err
	}

	var cancel context.CancelFunc
	if s.ReadTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.ReadTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	s.cancel = cancel

	go s.run(ctx, cancel, target)
	return nil
}

// Close implements Surface.
func (s *WebSocketSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if !s.loaded {
		s.loaded = true
		close(s.messages)
	}
	return nil
}

func (s *WebSocketSurface) run(ctx context.Context, cancel context.CancelFunc, target string) {
	defer close(s.messages)
	defer cancel()

	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, target, s.Header)
	if err != nil {
		logging.Warn("Fingerprint surface failed to load",
			zap.String("url", target),
			zap.Error(err),
		)
		return
	}
	defer conn.Close()

	// Unblock ReadMessage when the context ends
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logging.Warn("Fingerprint surface closed before reporting", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Debug("Ignoring malformed surface message", zap.Error(err))
			continue
		}
		logging.LogSurfaceMessage(msg.Name, []byte(msg.Body))
		if msg.Name != MessageName {
			continue
		}

		s.messages <- msg
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return
	}
}

func websocketURL(u *url.URL) (string, error) {
	if u == nil {
		return "", fmt.Errorf("fingerprint surface has no URL")
	}
	out := *u
	switch u.Scheme {
	case "https", "wss":
		out.Scheme = "wss"
	case "http", "ws":
		out.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported surface scheme %q", u.Scheme)
	}
	return out.String(), nil
}
