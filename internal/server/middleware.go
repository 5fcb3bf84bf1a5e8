package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/claude/scanflow/internal/apperr"
	"github.com/claude/scanflow/internal/auth"
	"tailscale.com/client/tailscale/apitype"
)

// WhoIser resolves a tailnet peer address to its identity. It is satisfied by
// the tsnet local client.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// identity attaches the caller to the request context. A bearer token must be
// valid; without one the tailnet identity is used when available, otherwise
// the request continues anonymously and handlers reject it.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if h := r.Header.Get("Authorization"); h != "" {
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || s.tokens == nil {
				writeError(w, s.log, apperr.New(apperr.Unauthenticated, "authorization must be a bearer token"))
				return
			}
			caller, err := s.tokens.Verify(token)
			if err != nil {
				s.log.Warn("rejected token", "path", r.URL.Path, "error", err)
				writeError(w, s.log, apperr.New(apperr.Unauthenticated, "invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(ctx, caller)))
			return
		}

		if s.whois != nil {
			who, err := s.whois.WhoIs(ctx, r.RemoteAddr)
			switch {
			case err != nil:
				s.log.Warn("tailscale whois failed", "remote", r.RemoteAddr, "error", err)
			case who == nil:
			case who.UserProfile != nil && who.UserProfile.LoginName != "":
				login := who.UserProfile.LoginName
				ctx = auth.WithCaller(ctx, auth.Caller{UID: login, Email: login})
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// CORS adds permissive CORS headers for the mobile and web clients.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers behind the logger flush.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
