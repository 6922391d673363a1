package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/stogden/crease/internal/auth"
	"github.com/stogden/crease/internal/config"
	"github.com/stogden/crease/internal/database"
	"github.com/stogden/crease/internal/handlers"
	middlewareCustom "github.com/stogden/crease/internal/middleware"
	"github.com/stogden/crease/internal/routes"
	"github.com/stogden/crease/internal/services"
	pkghttp "github.com/stogden/crease/pkg/http"
	pkglogger "github.com/stogden/crease/pkg/logger"
)

// SentEmail represents a captured reset-code email
type SentEmail struct {
	To   string
	Code string
}

// CapturingEmailService implements services.EmailService and records every
// code instead of dispatching it
type CapturingEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

func (m *CapturingEmailService) SendResetCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Code: code})
	return nil
}

// LastCode returns the most recently captured reset code
func (m *CapturingEmailService) LastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return ""
	}
	return m.SentEmails[len(m.SentEmails)-1].Code
}

// TestServer wraps httptest.Server with the full service stack on a real database
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *CapturingEmailService
	Config       *config.Config
}

// NewTestServer initializes a complete HTTP server with real database plus captured email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-32-characters-long-for-testing",
			TokenExpiry:          7 * 24 * time.Hour,
			MaxFailedLogins:      5,
			LockoutDuration:      15 * time.Minute,
			PasswordHistoryDepth: 5,
			ResetCodeExpiry:      15 * time.Minute,
			CleanupInterval:      1 * time.Hour,
			AttemptRetention:     90 * 24 * time.Hour,
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			TrustedProxies: []string{},
		},
	}

	accountRepo, attemptRepo, historyRepo, resetTokenRepo, auditRepo := InitializeRepositories(db)

	emailService := &CapturingEmailService{}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	auditService := services.NewAuditService(auditRepo, logger, pkglogger.NewAuditLogger(logger))
	resetTokenService := services.NewResetTokenService(resetTokenRepo, cfg.Auth.ResetCodeExpiry, logger)

	authService := services.NewAuthService(
		accountRepo,
		attemptRepo,
		historyRepo,
		resetTokenService,
		auditService,
		emailService,
		tokenManager,
		db,
		services.LockoutPolicy{
			Threshold: cfg.Auth.MaxFailedLogins,
			Duration:  cfg.Auth.LockoutDuration,
		},
		cfg.Auth.PasswordHistoryDepth,
		logger,
	)
	adminService := services.NewAdminService(accountRepo, auditService, logger)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	adminHandler := handlers.NewAdminHandler(adminService, auditService, ipConfig)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, adminHandler, tokenManager)

	return &TestServer{
		Server:       httptest.NewServer(r),
		DB:           db,
		EmailService: emailService,
		Config:       cfg,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses a JSON response body into the target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorMessage extracts the error message from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
