package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/atinyakov/ContactKeeper/internal/auth"
	"github.com/atinyakov/ContactKeeper/internal/middleware"
	"github.com/atinyakov/ContactKeeper/internal/models"
	"github.com/atinyakov/ContactKeeper/internal/service"
	"go.uber.org/zap"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	registerUser *models.User
	registerErr  error
	loginPair    service.TokenPair
	loginErr     error
	refreshToken string
	refreshErr   error
	updateErr    error
	deleteErr    error

	gotEmail    string
	gotPassword string
	gotToken    string
	gotUpdate   service.ProfileUpdate
	gotDeleteID int64
}

func (f *fakeAuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.registerUser, f.registerErr
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (service.TokenPair, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.loginPair, f.loginErr
}

func (f *fakeAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.gotToken = refreshToken
	return f.refreshToken, f.refreshErr
}

func (f *fakeAuthService) UpdateProfile(ctx context.Context, userID int64, upd service.ProfileUpdate) (*models.User, error) {
	f.gotUpdate = upd
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u := &models.User{ID: userID, Email: "a@example.com", IsActive: true}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	return u, nil
}

func (f *fakeAuthService) DeleteAccount(ctx context.Context, userID int64) error {
	f.gotDeleteID = userID
	return f.deleteErr
}

// staticResolver authenticates every request as user.
type staticResolver struct{ user *models.User }

func (s staticResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	return s.user, nil
}

// asUser wraps h so that it runs with user as the authenticated identity.
func asUser(h http.HandlerFunc, user *models.User) http.Handler {
	return middleware.BearerAuth(staticResolver{user: user}, zap.NewNop())(h)
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeAuthService
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "missing password",
			body:           `{"email":"a@example.com"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "malformed email",
			body:           `{"email":"nope","password":"pw123"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "password over 72 bytes",
			body:           `{"email":"a@example.com","password":"` + strings.Repeat("é", 40) + `"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "hasher refuses password",
			body:           `{"email":"a@example.com","password":"pw123"}`,
			service:        &fakeAuthService{registerErr: fmt.Errorf("hash password: %w", auth.ErrPasswordTooLong)},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "User already exists",
			body:           `{"email":"a@example.com","password":"pw123"}`,
			service:        &fakeAuthService{registerErr: fmt.Errorf("create user: %w", models.ErrEmailTaken)},
			expectedCode:   http.StatusConflict,
			expectedSubstr: "email already registered",
		},
		{
			name:           "repository failure",
			body:           `{"email":"a@example.com","password":"pw123"}`,
			service:        &fakeAuthService{registerErr: errors.New("db down")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
		{
			name:           "created",
			body:           `{"email":"a@example.com","password":"pw123"}`,
			service:        &fakeAuthService{registerUser: &models.User{ID: 1, Email: "a@example.com", HashedPassword: "$2a$secret", IsActive: true}},
			expectedCode:   http.StatusCreated,
			expectedSubstr: `"email":"a@example.com"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: tt.service, Logger: zap.NewNop()}
			h.Register(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, res.StatusCode)
			}

			buf := new(bytes.Buffer)
			if _, err := buf.ReadFrom(res.Body); err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.expectedSubstr)) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, buf.String())
			}
			if bytes.Contains(buf.Bytes(), []byte("secret")) {
				t.Errorf("response leaks the password hash: %q", buf.String())
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	pair := service.TokenPair{AccessToken: "acc", RefreshToken: "ref", TokenType: "bearer"}

	tests := []struct {
		name         string
		contentType  string
		body         string
		service      *fakeAuthService
		expectedCode int
		wantEmail    string
	}{
		{
			name:         "json success",
			contentType:  "application/json",
			body:         `{"email":"a@example.com","password":"pw123"}`,
			service:      &fakeAuthService{loginPair: pair},
			expectedCode: http.StatusCreated,
			wantEmail:    "a@example.com",
		},
		{
			name:         "oauth2 form success",
			contentType:  "application/x-www-form-urlencoded",
			body:         url.Values{"username": {"a@example.com"}, "password": {"pw123"}}.Encode(),
			service:      &fakeAuthService{loginPair: pair},
			expectedCode: http.StatusCreated,
			wantEmail:    "a@example.com",
		},
		{
			name:         "wrong password",
			contentType:  "application/json",
			body:         `{"email":"a@example.com","password":"bad"}`,
			service:      &fakeAuthService{loginErr: service.ErrInvalidCredentials},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "missing fields",
			contentType:  "application/json",
			body:         `{"email":"a@example.com"}`,
			service:      &fakeAuthService{},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "broken json",
			contentType:  "application/json",
			body:         `{`,
			service:      &fakeAuthService{},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			h := &AuthHandler{AuthService: tt.service, Logger: zap.NewNop()}
			h.Login(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("%s: expected status %d, got %d", tt.name, tt.expectedCode, res.StatusCode)
			}
			if tt.wantEmail != "" && tt.service.gotEmail != tt.wantEmail {
				t.Errorf("service received email %q; want %q", tt.service.gotEmail, tt.wantEmail)
			}
			if tt.expectedCode == http.StatusCreated {
				var payload map[string]string
				if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
					t.Fatalf("failed to decode JSON: %v", err)
				}
				want := map[string]string{"access_token": "acc", "refresh_token": "ref", "token_type": "bearer"}
				for k, v := range want {
					if payload[k] != v {
						t.Errorf("expected %s=%q, got %q", k, v, payload[k])
					}
				}
			}
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	tests := []struct {
		name         string
		header       string
		body         string
		service      *fakeAuthService
		expectedCode int
		wantToken    string
	}{
		{
			name:         "token in header",
			header:       "Bearer ref",
			service:      &fakeAuthService{refreshToken: "new-acc"},
			expectedCode: http.StatusOK,
			wantToken:    "ref",
		},
		{
			name:         "token in body",
			body:         `{"refresh_token":"ref"}`,
			service:      &fakeAuthService{refreshToken: "new-acc"},
			expectedCode: http.StatusOK,
			wantToken:    "ref",
		},
		{
			name:         "body wins over header",
			header:       "Bearer acc",
			body:         `{"refresh_token":"ref"}`,
			service:      &fakeAuthService{refreshToken: "new-acc"},
			expectedCode: http.StatusOK,
			wantToken:    "ref",
		},
		{
			name:         "empty body token falls back to header",
			header:       "Bearer ref",
			body:         `{"refresh_token":""}`,
			service:      &fakeAuthService{refreshToken: "new-acc"},
			expectedCode: http.StatusOK,
			wantToken:    "ref",
		},
		{
			name:         "no token",
			service:      &fakeAuthService{},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "access token presented",
			header:       "Bearer acc",
			service:      &fakeAuthService{refreshErr: fmt.Errorf("%w: got %q", auth.ErrInvalidScope, "access_token")},
			expectedCode: http.StatusUnauthorized,
			wantToken:    "acc",
		},
		{
			name:         "expired token",
			header:       "Bearer old",
			service:      &fakeAuthService{refreshErr: fmt.Errorf("%w: %w", service.ErrUnauthenticated, auth.ErrInvalidToken)},
			expectedCode: http.StatusUnauthorized,
			wantToken:    "old",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/refresh", strings.NewReader(tt.body))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			h := &AuthHandler{AuthService: tt.service, Logger: zap.NewNop()}
			h.Refresh(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if tt.service.gotToken != tt.wantToken {
				t.Errorf("service received token %q; want %q", tt.service.gotToken, tt.wantToken)
			}
			if tt.expectedCode == http.StatusUnauthorized {
				if rec.Header().Get("WWW-Authenticate") != "Bearer" {
					t.Error("expected WWW-Authenticate challenge")
				}
				if strings.Contains(rec.Body.String(), "scope") {
					t.Errorf("body reveals failure detail: %q", rec.Body.String())
				}
				return
			}
			var resp AccessTokenResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode JSON: %v", err)
			}
			if resp.AccessToken != "new-acc" || resp.TokenType != "bearer" {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestAuthHandler_Profile(t *testing.T) {
	user := &models.User{ID: 9, Email: "a@example.com", IsActive: true}

	t.Run("me", func(t *testing.T) {
		h := &AuthHandler{AuthService: &fakeAuthService{}, Logger: zap.NewNop()}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer any")
		asUser(h.Me, user).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got models.User
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode JSON: %v", err)
		}
		if got.ID != 9 || got.Email != "a@example.com" {
			t.Errorf("unexpected user %+v", got)
		}
	})

	t.Run("me without authentication", func(t *testing.T) {
		h := &AuthHandler{AuthService: &fakeAuthService{}, Logger: zap.NewNop()}
		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest("GET", "/api/users/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		svc := &fakeAuthService{}
		h := &AuthHandler{AuthService: svc, Logger: zap.NewNop()}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("PATCH", "/api/users/me", strings.NewReader(`{"email":"new@example.com","password":"pw456"}`))
		req.Header.Set("Authorization", "Bearer any")
		asUser(h.UpdateMe, user).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if svc.gotUpdate.Email == nil || *svc.gotUpdate.Email != "new@example.com" {
			t.Errorf("unexpected update %+v", svc.gotUpdate)
		}
		if svc.gotUpdate.Password == nil || *svc.gotUpdate.Password != "pw456" {
			t.Errorf("password not forwarded: %+v", svc.gotUpdate)
		}
	})

	t.Run("update rejects", func(t *testing.T) {
		for body, code := range map[string]int{
			`{}`:                        http.StatusBadRequest,
			`{"email":"not-email"}`:     http.StatusBadRequest,
			`{"email":"b@example.com"}`: http.StatusConflict,
			`{"password":"` + strings.Repeat("é", 40) + `"}`: http.StatusBadRequest,
		} {
			svc := &fakeAuthService{}
			if code == http.StatusConflict {
				svc.updateErr = models.ErrEmailTaken
			}
			h := &AuthHandler{AuthService: svc, Logger: zap.NewNop()}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("PATCH", "/api/users/me", strings.NewReader(body))
			req.Header.Set("Authorization", "Bearer any")
			asUser(h.UpdateMe, user).ServeHTTP(rec, req)
			if rec.Code != code {
				t.Errorf("body %s: expected %d, got %d", body, code, rec.Code)
			}
		}
	})

	t.Run("delete", func(t *testing.T) {
		svc := &fakeAuthService{}
		h := &AuthHandler{AuthService: svc, Logger: zap.NewNop()}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer any")
		asUser(h.DeleteMe, user).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if svc.gotDeleteID != 9 {
			t.Errorf("deleted id %d; want 9", svc.gotDeleteID)
		}
	})
}
