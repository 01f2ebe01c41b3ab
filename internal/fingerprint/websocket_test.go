package fingerprint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// pageServer upgrades every request and writes the given messages in order.
func pageServer(t *testing.T, messages ...string) *url.URL {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// Wait for the client to hang up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL + "/fp")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func receive(t *testing.T, s Surface) (Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-s.Messages():
		return msg, ok
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for surface")
		return Message{}, false
	}
}

func TestWebSocketSurfaceEmitsDeviceInfo(t *testing.T) {
	u := pageServer(t,
		`not json`,
		`{"name":"log","body":"ignored"}`,
		`{"name":"deviceInfo","body":"fp-body"}`,
		`{"name":"deviceInfo","body":"second"}`,
	)

	surface := NewWebSocketSurface(u)
	if err := surface.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	msg, ok := receive(t, surface)
	if !ok {
		t.Fatal("channel closed without a message")
	}
	if msg.Body != "fp-body" {
		t.Errorf("Body = %q, want fp-body", msg.Body)
	}

	// One-shot: the channel closes after the first message.
	if _, ok := receive(t, surface); ok {
		t.Error("surface emitted more than one message")
	}
}

func TestWebSocketSurfaceLoadTwice(t *testing.T) {
	surface := NewWebSocketSurface(pageServer(t))
	if err := surface.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer surface.Close()

	if err := surface.Load(context.Background()); err != ErrAlreadyLoaded {
		t.Errorf("second Load() error = %v, want ErrAlreadyLoaded", err)
	}
}

func TestWebSocketSurfaceClosesWithoutMessage(t *testing.T) {
	surface := NewWebSocketSurface(pageServer(t))
	surface.ReadTimeout = 100 * time.Millisecond
	if err := surface.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, ok := receive(t, surface); ok {
		t.Error("expected the channel to close without a message")
	}
}

func TestWebSocketSurfaceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(server.URL)
	server.Close()

	surface := NewWebSocketSurface(u)
	if err := surface.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v, want nil (failures are reported asynchronously)", err)
	}
	if _, ok := receive(t, surface); ok {
		t.Error("expected the channel to close without a message")
	}
}

func TestCloseBeforeLoad(t *testing.T) {
	surface := NewWebSocketSurface(&url.URL{Scheme: "https", Host: "tapp.so"})
	if err := surface.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := <-surface.Messages(); ok {
		t.Error("Messages() should be closed")
	}
	if err := surface.Load(context.Background()); err != ErrAlreadyLoaded {
		t.Errorf("Load() after Close() error = %v, want ErrAlreadyLoaded", err)
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://brand.tapp.so/fp?x=1", "wss://brand.tapp.so/fp?x=1", false},
		{"http://localhost:8080/fp", "ws://localhost:8080/fp", false},
		{"wss://brand.tapp.so/fp", "wss://brand.tapp.so/fp", false},
		{"ftp://brand.tapp.so/fp", "", true},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.in)
		got, err := websocketURL(u)
		if (err != nil) != tt.wantErr {
			t.Errorf("websocketURL(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("websocketURL(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
