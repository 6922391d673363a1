package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/stogden/crease/internal/auth"
	"github.com/stogden/crease/internal/models"
	"github.com/stogden/crease/internal/services"
	pkghttp "github.com/stogden/crease/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds token claims to the request context for testing
// authenticated endpoints
func WithAuthContext(req *http.Request, accountID, email, role string) *http.Request {
	claims := &models.TokenClaims{
		AccountID: accountID,
		Email:     email,
		Role:      role,
	}
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam adds a chi route parameter to the request context
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	RegisterFunc       func(ctx context.Context, in services.RegisterInput, ipAddress string) (*services.AuthResponse, error)
	ChangePasswordFunc func(ctx context.Context, accountID, currentPassword, newPassword, ipAddress string) error
	ForgotPasswordFunc func(ctx context.Context, email, ipAddress string) error
	ResetPasswordFunc  func(ctx context.Context, email, code, newPassword, ipAddress string) error
	MeFunc             func(ctx context.Context, accountID string) (*services.AccountResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput, ipAddress string) (*services.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in, ipAddress)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword, ipAddress string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, accountID, currentPassword, newPassword, ipAddress)
	}
	return models.ErrInternalServer
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email, ipAddress string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email, ipAddress)
	}
	return models.ErrInternalServer
}

func (m *MockAuthService) ResetPassword(ctx context.Context, email, code, newPassword, ipAddress string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, code, newPassword, ipAddress)
	}
	return models.ErrInternalServer
}

func (m *MockAuthService) Me(ctx context.Context, accountID string) (*services.AccountResponse, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx, accountID)
	}
	return nil, models.ErrInternalServer
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	UnlockFunc  func(ctx context.Context, actorID, accountID, ipAddress string) error
	ApproveFunc func(ctx context.Context, actorID, accountID, ipAddress string) (*services.AccountResponse, error)
	RejectFunc  func(ctx context.Context, actorID, accountID, ipAddress string) (*services.AccountResponse, error)
}

func (m *MockAdminService) Unlock(ctx context.Context, actorID, accountID, ipAddress string) error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, actorID, accountID, ipAddress)
	}
	return models.ErrInternalServer
}

func (m *MockAdminService) Approve(ctx context.Context, actorID, accountID, ipAddress string) (*services.AccountResponse, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, actorID, accountID, ipAddress)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAdminService) Reject(ctx context.Context, actorID, accountID, ipAddress string) (*services.AccountResponse, error) {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, actorID, accountID, ipAddress)
	}
	return nil, models.ErrInternalServer
}

// MockAuditReader implements AuditReader for testing
type MockAuditReader struct {
	ListByTargetFunc func(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error)
}

func (m *MockAuditReader) ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error) {
	if m.ListByTargetFunc != nil {
		return m.ListByTargetFunc(ctx, targetID, limit)
	}
	return nil, models.ErrInternalServer
}
