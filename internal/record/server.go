package record

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/return-tracker/internal/imaging"
	"github.com/zombor/return-tracker/internal/ocr"
)

// Server handles HTTP requests for return records
type Server struct {
	service      *Service
	assist       *ocr.Assist
	compressOpts imaging.Options
	basicAuth    BasicAuth
	mux          *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux. assist may be nil when
// no extraction backend is configured.
func NewServer(service *Service, assist *ocr.Assist, compressOpts imaging.Options, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, assist, compressOpts, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, assist *ocr.Assist, compressOpts imaging.Options, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:      service,
		assist:       assist,
		compressOpts: compressOpts,
		basicAuth:    basicAuth,
		mux:          mux,
	}
	s.registerRoutes()
	return s
}

// session derives the session for a request. The basic auth username keys
// the account; without auth configured everything belongs to one local
// user.
func (s *Server) session(r *http.Request) Session {
	if user, _, ok := r.BasicAuth(); ok && user != "" {
		return Session{UserID: user}
	}
	return Session{UserID: "local"}
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Return Tracker"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux.
// Routes must be registered from most specific to least specific.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/records/{id}/image", s.requireAuth(s.handleGetImage))
	s.mux.HandleFunc("PUT /api/records/{id}/image", s.requireAuth(s.handlePutImage))
	s.mux.HandleFunc("POST /api/records/{id}/returned", s.requireAuth(s.handleMarkReturned))
	s.mux.HandleFunc("POST /api/records/{id}/refund", s.requireAuth(s.handleToggleRefund))
	s.mux.HandleFunc("POST /api/records/{id}/complete", s.requireAuth(s.handleMarkComplete))
	s.mux.HandleFunc("GET /api/records/{id}", s.requireAuth(s.handleGetRecord))
	s.mux.HandleFunc("PUT /api/records/{id}", s.requireAuth(s.handleUpdateRecord))
	s.mux.HandleFunc("DELETE /api/records/{id}", s.requireAuth(s.handleDeleteRecord))
	s.mux.HandleFunc("GET /api/records", s.requireAuth(s.handleListRecords))
	s.mux.HandleFunc("POST /api/records", s.requireAuth(s.handleCreateRecord))

	s.mux.HandleFunc("POST /api/extract", s.requireAuth(s.handleExtract))
	s.mux.HandleFunc("GET /api/reminders", s.requireAuth(s.handleReminders))
	s.mux.HandleFunc("GET /api/version", s.requireAuth(s.handleVersion))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
