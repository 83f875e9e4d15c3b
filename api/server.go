// Package api serves the streaming ledger over HTTP.
//
// Routes live under /v1. Unversioned paths are served as v1 and any other
// version is rejected with 400. A bearer token in the Authorization header is
// attached to the request context with auth.WithProof so the ledger's
// authenticator can verify it.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/auth"
	"github.com/xraph/streamledger/id"
)

// CurrentVersion is the only API version served.
const CurrentVersion = "v1"

// Sandbox request markers.
const (
	SandboxHeader     = "X-Sandbox-Mode"
	SandboxQueryParam = "sandbox"
	EnvironmentHeader = "X-Environment"
	RequestIDHeader   = "X-Request-ID"
)

var versionSegment = regexp.MustCompile(`^v\d+$`)

// Server is the HTTP front end of a Ledger.
type Server struct {
	ledger  *streamledger.Ledger
	sandbox *streamledger.Ledger
	hub     *Hub
	limiter *clientLimiter
	logger  *slog.Logger

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithSandbox enables sandbox mode. Requests flagged with the X-Sandbox-Mode
// header or ?sandbox=true are served by l instead of the main ledger.
func WithSandbox(l *streamledger.Ledger) Option {
	return func(s *Server) { s.sandbox = l }
}

// WithHub mounts h at /v1/events.
func WithHub(h *Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithRateLimit allows each client r requests per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		if r > 0 && burst > 0 {
			s.limiter = newClientLimiter(rate.Limit(r), burst)
		}
	}
}

// New builds a Server for l.
func New(l *streamledger.Ledger, opts ...Option) *Server {
	s := &Server{
		ledger: l,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler, including version resolution.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveVersioned)
}

// serveVersioned strips a leading /v1 and rejects any other version.
func (s *Server) serveVersioned(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/")
	first, rest, _ := strings.Cut(trimmed, "/")

	if versionSegment.MatchString(first) {
		if first != CurrentVersion {
			writeError(w, http.StatusBadRequest, "unsupported_version",
				"API version '"+first+"' is not supported. Supported versions: "+CurrentVersion)
			return
		}
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/" + rest
		r2.URL.RawPath = ""
		r = r2
	}
	w.Header().Set("X-API-Version", CurrentVersion)
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}
		r.Use(bearerProof, s.environment)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/initialize", s.handleInitialize)
			r.Get("/emergency", s.handleGetEmergency)
			r.Put("/emergency", s.handleSetEmergency)
		})

		r.Route("/streams", func(r chi.Router) {
			r.Post("/", s.handleCreateStream)
			r.Get("/", s.handleListStreams)
			r.Route("/{streamID}", func(r chi.Router) {
				r.Get("/", s.handleGetStream)
				r.Get("/preview", s.handlePreview)
				r.Get("/claimable", s.handleClaimable)
				r.Post("/top-up", s.handleTopUp)
				r.Post("/withdraw", s.handleWithdraw)
				r.Post("/cancel", s.handleCancel)
			})
		})

		r.Get("/accounts/{address}/summary", s.handleSummary)
	})

	if s.hub != nil {
		r.Get("/events", s.hub.ServeHTTP)
	}

	return r
}

type requestIDKey struct{}

// requestID echoes a caller supplied X-Request-ID or mints a req_ TypeID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if rid == "" || len(rid) > 128 {
			rid = id.NewRequestID().String()
		}
		w.Header().Set(RequestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, rid)))
	})
}

func requestIDFrom(r *http.Request) string {
	rid, _ := r.Context().Value(requestIDKey{}).(string)
	return rid
}

// bearerProof forwards "Authorization: Bearer <token>" to the authenticator.
func bearerProof(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && strings.TrimSpace(token) != "" {
			r = r.WithContext(auth.WithProof(r.Context(), strings.TrimSpace(token)))
		}
		next.ServeHTTP(w, r)
	})
}

type ledgerKey struct{}

// environment picks the ledger for the request and labels the response.
func (s *Server) environment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.ledger
		if s.sandbox != nil && wantsSandbox(r) {
			l = s.sandbox
			w.Header().Set(SandboxHeader, "true")
			w.Header().Set(EnvironmentHeader, "sandbox")
		} else {
			w.Header().Set(EnvironmentHeader, "production")
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ledgerKey{}, l)))
	})
}

func wantsSandbox(r *http.Request) bool {
	truthy := func(v string) bool { return v == "true" || v == "1" }
	return truthy(r.Header.Get(SandboxHeader)) || truthy(r.URL.Query().Get(SandboxQueryParam))
}

func (s *Server) ledgerFor(r *http.Request) *streamledger.Ledger {
	if l, ok := r.Context().Value(ledgerKey{}).(*streamledger.Ledger); ok {
		return l
	}
	return s.ledger
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Store().Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
