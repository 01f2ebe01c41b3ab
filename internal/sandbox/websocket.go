package sandbox

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tapp-so/tapp-go/internal/fingerprint"
	"github.com/tapp-so/tapp-go/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// pageSignals is what the fingerprint page reports about its visitor.
type pageSignals struct {
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
	Language   string `json:"accept_language,omitempty"`
	SeenAt     int64  `json:"seen_at"`
}

// fingerprintPage plays the part of the vendor's fingerprint page: it
// reports one deviceInfo message and closes.
func (s *Server) fingerprintPage(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Fingerprint page upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	defer func() { _ = conn.Close() }()

	body, err := json.Marshal(pageSignals{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Language:   r.Header.Get("Accept-Language"),
		SeenAt:     time.Now().Unix(),
	})
	if err != nil {
		logging.Error("Failed to encode fingerprint signals", zap.Error(err))
		return
	}

	msg, err := json.Marshal(fingerprint.Message{Name: fingerprint.MessageName, Body: string(body)})
	if err != nil {
		logging.Error("Failed to encode fingerprint message", zap.Error(err))
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		logging.Warn("Failed to send fingerprint message",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	logging.LogSurfaceMessage(fingerprint.MessageName, body)

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeWait))
}
