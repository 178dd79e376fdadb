package web

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/receipt-ledger/internal/analytics"
	"github.com/zombor/receipt-ledger/internal/receipt"
)

// OwnerHeader carries the owner identity when basic auth is not configured
const OwnerHeader = "X-Owner-ID"

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

func (b BasicAuth) enabled() bool {
	return b.Username != "" || b.Password != ""
}

// Config controls presentation details of the API
type Config struct {
	BasicAuth      BasicAuth
	Locale         analytics.Locale
	LegacyMonthly  bool
	MaxUploadBytes int64
}

// Server handles HTTP requests for receipts
type Server struct {
	service *receipt.Service
	cfg     Config
	mux     *http.ServeMux
	now     func() time.Time
}

// NewServer creates a new Server with a default mux and the wall clock
func NewServer(service *receipt.Service, cfg Config) *Server {
	return NewServerWithDeps(service, cfg, http.NewServeMux(), time.Now)
}

// NewServerWithDeps creates a new Server with a custom mux and clock for testing
func NewServerWithDeps(service *receipt.Service, cfg Config, mux *http.ServeMux, now func() time.Time) *Server {
	if cfg.Locale == "" {
		cfg.Locale = analytics.LocaleThai
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	s := &Server{
		service: service,
		cfg:     cfg,
		mux:     mux,
		now:     now,
	}
	s.registerRoutes()
	return s
}

type ownerKey struct{}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// resolveOwner returns the basic-auth user when auth is configured, otherwise
// the owner header. Browsers cannot set headers on a websocket handshake, so
// the owner query parameter is accepted as well.
func (s *Server) resolveOwner(r *http.Request) (string, bool) {
	if s.cfg.BasicAuth.enabled() {
		user, pass, ok := r.BasicAuth()
		if !ok {
			return "", false
		}
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.BasicAuth.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.BasicAuth.Password)) == 1
		return user, userOK && passOK
	}
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		owner = strings.TrimSpace(r.URL.Query().Get("owner"))
	}
	return owner, owner != ""
}

// requireOwner middleware
func (s *Server) requireOwner(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.resolveOwner(r)
		if !ok {
			if s.cfg.BasicAuth.enabled() {
				w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Ledger"`)
			}
			writeError(w, receipt.ErrNoOwner)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+OwnerHeader)
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/categories", s.handleCategories)
	s.mux.HandleFunc("POST /api/drafts/normalize", s.handleNormalizeDraft)
	s.mux.HandleFunc("POST /api/drafts/calculate", s.handleCalculateDraft)

	s.mux.HandleFunc("POST /api/scans", s.requireOwner(s.handleScan))

	s.mux.HandleFunc("GET /api/receipts/{id}/file", s.requireOwner(s.handleGetReceiptFile))
	s.mux.HandleFunc("GET /api/receipts/{id}/draft", s.requireOwner(s.handleEditDraft))
	s.mux.HandleFunc("GET /api/receipts/{id}", s.requireOwner(s.handleGetReceipt))
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.requireOwner(s.handleDeleteReceipt))
	s.mux.HandleFunc("GET /api/receipts", s.requireOwner(s.handleListReceipts))
	s.mux.HandleFunc("POST /api/receipts", s.requireOwner(s.handleSaveReceipt))

	s.mux.HandleFunc("GET /api/search", s.requireOwner(s.handleSearch))
	s.mux.HandleFunc("GET /api/stats/live", s.requireOwner(s.handleLiveStats))
	s.mux.HandleFunc("GET /api/stats", s.requireOwner(s.handleStats))
	s.mux.HandleFunc("GET /api/export.xlsx", s.requireOwner(s.handleExport))
}

// Handler wraps the mux with CORS handling, including preflight requests
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.mux.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server and shuts it down when ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting server", "address", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
