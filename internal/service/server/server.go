package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/port"
	"github.com/oocloud/oocloud/internal/service/auth"
	"github.com/oocloud/oocloud/internal/service/drive"
	"github.com/oocloud/oocloud/internal/service/shared"
)

// Config contains HTTP server configuration
type Config struct {
	BindAddr     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "0.0.0.0:8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server represents the HTTP API server
type Server struct {
	config        *Config
	store         port.Store
	logger        *zap.Logger
	server        *http.Server
	authHandler   *AuthHandler
	driveHandler  *DriveHandler
	sharedHandler *SharedHandler
	adminHandler  *AdminHandler
}

// New creates a new HTTP server. thumbs may be nil.
func New(cfg *Config, store port.Store, authSvc *auth.Service, driveSvc *drive.Service,
	sharedSvc *shared.Service, thumbs port.Thumbnailer, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config: cfg,
		store:  store,
		logger: logger,
	}

	s.authHandler = NewAuthHandler(authSvc, logger)
	s.driveHandler = NewDriveHandler(driveSvc, thumbs, logger)
	s.sharedHandler = NewSharedHandler(sharedSvc, logger)
	s.adminHandler = NewAdminHandler(store, logger)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Auth endpoints
	mux.HandleFunc("/api/auth/register", s.authHandler.HandleRegister)
	mux.HandleFunc("/api/auth/login", s.authHandler.HandleLogin)
	mux.HandleFunc("/api/auth/otp/request", s.authHandler.HandleOTPRequest)
	mux.HandleFunc("/api/auth/otp/verify", s.authHandler.HandleOTPVerify)

	// Authenticated endpoints
	authed := AuthMiddleware(authSvc, logger)
	mux.HandleFunc("/api/files", authed(s.driveHandler.HandleFiles))
	mux.HandleFunc("/api/files/", authed(s.driveHandler.HandleFile))
	mux.HandleFunc("/api/trash", authed(s.driveHandler.HandleTrash))
	mux.HandleFunc("/api/browse", authed(s.driveHandler.HandleBrowse))
	mux.HandleFunc("/api/shared", authed(s.sharedHandler.HandleShared))
	mux.HandleFunc("/api/shared/file", authed(s.sharedHandler.HandleDownload))
	mux.HandleFunc("/api/shared/copy", authed(s.sharedHandler.HandleCopy))

	// Staff endpoints
	mux.HandleFunc("/api/admin/users", authed(StaffMiddleware(s.adminHandler.HandleUsers)))

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      LoggingMiddleware(logger)(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Ping(); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "Database connection failed", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy","time":"` + time.Now().Format(time.RFC3339) + `"}`))
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes
func writeError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidCategory):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUserExists):
		http.Error(w, "User already exists", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInvalidOTP):
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrUserDisabled):
		http.Error(w, "Account disabled", http.StatusForbidden)
	default:
		logger.Error(msg, zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
