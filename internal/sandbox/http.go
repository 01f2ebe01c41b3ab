package sandbox

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get(FingerprintPath, s.fingerprintPage)

	r.Route(strings.TrimSuffix(APIPath, "/"), func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/"+tappapi.PathSecrets, s.secrets)

		r.Group(func(r chi.Router) {
			r.Use(s.appTokenMiddleware)
			r.Post("/"+tappapi.PathDevice, s.device)
			r.Post("/"+tappapi.PathFingerprint, s.fingerprint)
			r.Post("/"+tappapi.PathImpression, s.impression)
			r.Post("/"+tappapi.PathEvent, s.event)
			r.Post("/"+tappapi.PathGenerateURL, s.generateURL)
			r.Post("/"+tappapi.PathLinkData, s.linkData)
		})
	})
	return r
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the fingerprint page upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("Sandbox request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get("X-Request-ID")),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.AuthToken != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token != s.config.AuthToken {
				writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
				return
			}
		}
		s.state.countRequest(strings.TrimPrefix(r.URL.Path, APIPath))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) appTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-App-Token") != s.state.Secret() {
			writeError(w, http.StatusUnauthorized, "invalid or missing app token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) secrets(w http.ResponseWriter, r *http.Request) {
	var req tappapi.SecretsRequest
	if !decode(w, r, &req) {
		return
	}
	branded := url.URL{Scheme: "http", Host: r.Host, Path: FingerprintPath}
	writeJSON(w, http.StatusOK, tappapi.SecretsResponse{
		Secret:     s.state.Secret(),
		BrandedURL: branded.String(),
	})
}

func (s *Server) device(w http.ResponseWriter, r *http.Request) {
	var req tappapi.DeviceRequest
	if !decode(w, r, &req) {
		return
	}
	id, active := s.state.device(req.DeviceID)
	writeJSON(w, http.StatusOK, tappapi.DeviceResponse{
		Device: tappapi.Device{ID: id, Active: active},
	})
}

func (s *Server) fingerprint(w http.ResponseWriter, r *http.Request) {
	var req tappapi.FingerprintRequest
	if !decode(w, r, &req) {
		return
	}
	if req.WebView == nil {
		writeError(w, http.StatusUnprocessableEntity, "webview body is required")
		return
	}

	id, _ := s.state.device(req.DeviceID)
	s.state.activate(id)

	resp := tappapi.FingerprintResponse{
		Device: &tappapi.Device{ID: id, Active: true},
		Error:  new(bool),
	}
	if link := s.state.takeDeferred(); link != nil {
		resp.Deeplink = link.TappURL
		resp.TappURL = link.TappURL
		resp.AttributedTappURL = link.AttributedURL
		resp.Influencer = link.Influencer
		resp.Data = link.Data
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) impression(w http.ResponseWriter, r *http.Request) {
	var req tappapi.ImpressionRequest
	if !decode(w, r, &req) {
		return
	}
	s.state.recordImpression(req.Deeplink)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) event(w http.ResponseWriter, r *http.Request) {
	var req tappapi.EventRequest
	if !decode(w, r, &req) {
		return
	}
	if req.EventName == "" {
		writeError(w, http.StatusUnprocessableEntity, "event_name is required")
		return
	}
	s.state.recordEvent(Event{Name: req.EventName, URL: req.EventURL})
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) generateURL(w http.ResponseWriter, r *http.Request) {
	var req tappapi.GenerateURLRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Influencer == "" {
		writeError(w, http.StatusUnprocessableEntity, "influencer is required")
		return
	}

	link := s.CreateLink(req.Influencer, req.AdGroup, req.Creative, req.Data)
	writeJSON(w, http.StatusOK, tappapi.GeneratedURLResponse{URL: link.TappURL})
}

func (s *Server) linkData(w http.ResponseWriter, r *http.Request) {
	var req tappapi.LinkDataRequest
	if !decode(w, r, &req) {
		return
	}
	link, ok := s.state.Link(req.LinkToken)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown link token")
		return
	}
	writeJSON(w, http.StatusOK, tappapi.LinkDataResponse{
		TappURL:           link.TappURL,
		AttributedTappURL: link.AttributedURL,
		Influencer:        link.Influencer,
		Data:              link.Data,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": true, "message": message})
}
