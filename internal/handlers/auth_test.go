package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stogden/crease/internal/handlers"
	"github.com/stogden/crease/internal/models"
	"github.com/stogden/crease/internal/services"
)

func TestLogin_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			assert.Equal(t, "parent@example.com", email, "email should be normalized")
			return &services.AuthResponse{
				Token: "token_123",
				Account: &services.AccountResponse{
					ID:    "acct-1",
					Email: email,
					Role:  models.RoleParent,
				},
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "  Parent@Example.com ",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "token_123", resp.Token)
	assert.Equal(t, "acct-1", resp.Account.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return nil, &models.CredentialsError{}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "parent@example.com",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestLogin_HintPreservedInMessage(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return nil, &models.CredentialsError{AttemptsRemaining: 2}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "parent@example.com",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "2 attempt(s) remaining")
}

func TestLogin_Locked(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return nil, &models.LockedError{
				RemainingMinutes: 15,
				Until:            time.Now().Add(15 * time.Minute),
			}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "parent@example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusLocked, "account_locked")
	assert.Equal(t, "900", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "15 minute(s)")
}

func TestLogin_PendingAccount(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
			return nil, &models.StatusError{Status: models.StatusPending}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "parent@example.com",
		Password: "password123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
	assert.Contains(t, w.Body.String(), "pending approval")
}

func TestLogin_MalformedBody(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", nil)

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRegister_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, in services.RegisterInput, ipAddress string) (*services.AuthResponse, error) {
			assert.Equal(t, models.RolePlayer, in.Role)
			return &services.AuthResponse{
				Token: "token_123",
				Account: &services.AccountResponse{
					ID:     "acct-1",
					Email:  in.Email,
					Status: models.StatusPending,
				},
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "player@example.com",
		Password: "Str0ng!Pass",
		Name:     "Rohit Verma",
		Role:     models.RolePlayer,
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, models.StatusPending, resp.Account.Status)
}

func TestRegister_RejectsOperatorRoles(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)

	for _, role := range []string{models.RoleAdmin, models.RoleCoach, "umpire"} {
		req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
			Email:    "someone@example.com",
			Password: "Str0ng!Pass",
			Name:     "Someone",
			Role:     role,
		})

		w := httptest.NewRecorder()
		handler.Register(w, req)

		handlers.AssertErrorResponse(t, w, 400, "bad_request")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, in services.RegisterInput, ipAddress string) (*services.AuthResponse, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "taken@example.com",
		Password: "Str0ng!Pass",
		Name:     "Someone",
		Role:     models.RoleParent,
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestChangePassword_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, accountID, currentPassword, newPassword, ipAddress string) error {
			assert.Equal(t, "acct-1", accountID)
			return nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/change-password", handlers.ChangePasswordRequest{
		CurrentPassword: "Current1!pass",
		NewPassword:     "Brand-New1A!",
	})
	req = handlers.WithAuthContext(req, "acct-1", "parent@example.com", models.RoleParent)

	w := httptest.NewRecorder()
	handler.ChangePassword(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestChangePassword_Unauthenticated(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/change-password", handlers.ChangePasswordRequest{
		CurrentPassword: "Current1!pass",
		NewPassword:     "Brand-New1A!",
	})

	w := httptest.NewRecorder()
	handler.ChangePassword(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestChangePassword_Reused(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, accountID, currentPassword, newPassword, ipAddress string) error {
			return models.ErrPasswordReused
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/change-password", handlers.ChangePasswordRequest{
		CurrentPassword: "Current1!pass",
		NewPassword:     "OldPass1!x",
	})
	req = handlers.WithAuthContext(req, "acct-1", "parent@example.com", models.RoleParent)

	w := httptest.NewRecorder()
	handler.ChangePassword(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestForgotPassword_IdenticalResponses(t *testing.T) {
	// Known and unknown emails must produce byte-identical bodies. The
	// service returns nil in both cases; the handler body is the same either
	// way, so two calls with different emails are compared here.
	bodies := make([]string, 0, 2)

	for _, email := range []string{"registered@example.com", "ghost@example.com"} {
		mockAuth := &handlers.MockAuthService{
			ForgotPasswordFunc: func(ctx context.Context, email, ipAddress string) error {
				return nil
			},
		}

		handler := handlers.NewAuthHandler(mockAuth, nil)
		req := handlers.NewTestRequest(t, "POST", "/auth/forgot-password", handlers.ForgotPasswordRequest{
			Email: email,
		})

		w := httptest.NewRecorder()
		handler.ForgotPassword(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		bodies = append(bodies, w.Body.String())
	}

	assert.Equal(t, bodies[0], bodies[1])
}

func TestForgotPassword_DeliveryFailure(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ForgotPasswordFunc: func(ctx context.Context, email, ipAddress string) error {
			return models.ErrEmailDelivery
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/forgot-password", handlers.ForgotPasswordRequest{
		Email: "parent@example.com",
	})

	w := httptest.NewRecorder()
	handler.ForgotPassword(w, req)

	handlers.AssertErrorResponse(t, w, 503, "service_unavailable")
}

func TestResetPassword_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ResetPasswordFunc: func(ctx context.Context, email, code, newPassword, ipAddress string) error {
			assert.Equal(t, "482913", code)
			return nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/reset-password", handlers.ResetPasswordRequest{
		Email:       "parent@example.com",
		Code:        "482913",
		NewPassword: "Brand-New1A!",
	})

	w := httptest.NewRecorder()
	handler.ResetPassword(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestResetPassword_CodeFormatValidated(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)

	for _, code := range []string{"12345", "1234567", "12a456", ""} {
		req := handlers.NewTestRequest(t, "POST", "/auth/reset-password", handlers.ResetPasswordRequest{
			Email:       "parent@example.com",
			Code:        code,
			NewPassword: "Brand-New1A!",
		})

		w := httptest.NewRecorder()
		handler.ResetPassword(w, req)

		handlers.AssertErrorResponse(t, w, 400, "bad_request")
	}
}

func TestResetPassword_InvalidAndExpiredCodes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"invalid", models.ErrInvalidResetToken, "Invalid or expired reset code"},
		{"expired", models.ErrResetTokenExpired, "expired"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				ResetPasswordFunc: func(ctx context.Context, email, code, newPassword, ipAddress string) error {
					return tc.err
				},
			}

			handler := handlers.NewAuthHandler(mockAuth, nil)
			req := handlers.NewTestRequest(t, "POST", "/auth/reset-password", handlers.ResetPasswordRequest{
				Email:       "parent@example.com",
				Code:        "482913",
				NewPassword: "Brand-New1A!",
			})

			w := httptest.NewRecorder()
			handler.ResetPassword(w, req)

			handlers.AssertErrorResponse(t, w, 400, "bad_request")
			assert.Contains(t, w.Body.String(), tc.message)
		})
	}
}

func TestMe_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		MeFunc: func(ctx context.Context, accountID string) (*services.AccountResponse, error) {
			return &services.AccountResponse{
				ID:    accountID,
				Email: "parent@example.com",
				Role:  models.RoleParent,
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := httptest.NewRequest("GET", "/auth/me", nil)
	req = handlers.WithAuthContext(req, "acct-1", "parent@example.com", models.RoleParent)

	w := httptest.NewRecorder()
	handler.Me(w, req)

	var resp services.AccountResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "acct-1", resp.ID)
}

func TestMe_Unauthenticated(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := httptest.NewRequest("GET", "/auth/me", nil)

	w := httptest.NewRecorder()
	handler.Me(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}
