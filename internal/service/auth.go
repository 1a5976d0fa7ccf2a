// Package service provides authentication and contact business logic,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atinyakov/ContactKeeper/internal/auth"
	"github.com/atinyakov/ContactKeeper/internal/models"
)

var (
	// ErrInvalidCredentials is returned by login when the email is unknown,
	// the account is inactive or the password does not match. The three
	// cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned when a bearer token cannot be resolved
	// to a user. The wrapped error tells which check failed.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// UserRepository defines the user persistence operations
// required by the authentication service.
type UserRepository interface {
	// FindUserByEmail returns models.ErrNotFound when no user has email.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindUserByID returns models.ErrNotFound when no user has id.
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	// CreateUser returns models.ErrEmailTaken for a duplicate email.
	CreateUser(ctx context.Context, email, hashedPassword string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenCodec issues and decodes signed bearer tokens.
type TokenCodec interface {
	Issue(subject string, scope auth.Scope) (string, auth.Claims, error)
	Decode(token string) (auth.Claims, error)
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ProfileUpdate carries the optional fields a user may change on their own
// account. The password is plaintext here and hashed before storage.
type ProfileUpdate struct {
	Email    *string
	Password *string
	IsActive *bool
}

// AuthService implements registration, login, token refresh and bearer
// token resolution. It keeps no per-session state.
type AuthService struct {
	repo   UserRepository
	hasher PasswordHasher
	tokens TokenCodec

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService constructs a new AuthService using the provided repository,
// password hasher and token codec.
func NewAuthService(repo UserRepository, hasher PasswordHasher, tokens TokenCodec) *AuthService {
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens}
}

// Register creates an active user with a hashed copy of password.
// It returns models.ErrEmailTaken if the email is already registered.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, email, hash)
}

// Authenticate checks email and password against the stored hash.
// Any mismatch yields ErrInvalidCredentials; repository failures other than
// a missing user are returned as is.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		// Spend the same hashing time as for a real account.
		s.hasher.Verify(password, s.decoy())
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueTokens returns a fresh access and refresh token for user.
func (s *AuthService) IssueTokens(user *models.User) (TokenPair, error) {
	access, _, err := s.tokens.Issue(user.Email, auth.ScopeAccess)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, err := s.tokens.Issue(user.Email, auth.ScopeRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}, nil
}

// Login authenticates the credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return TokenPair{}, err
	}
	return s.IssueTokens(user)
}

// Resolve maps an access token to the active user it was issued for.
// Every failure wraps ErrUnauthenticated and the specific cause; there is
// no fallback identity.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.Scope != auth.ScopeAccess {
		return nil, fmt.Errorf("%w: %w: got %q", ErrUnauthenticated, auth.ErrInvalidScope, claims.Scope)
	}
	return s.subjectUser(ctx, claims.Subject)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.Scope != auth.ScopeRefresh {
		return "", fmt.Errorf("%w: got %q", auth.ErrInvalidScope, claims.Scope)
	}
	user, err := s.subjectUser(ctx, claims.Subject)
	if err != nil {
		return "", err
	}
	access, _, err := s.tokens.Issue(user.Email, auth.ScopeAccess)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// UpdateProfile changes the caller's own account. A new password is hashed
// before it reaches the repository.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*models.User, error) {
	change := models.UserUpdate{Email: upd.Email, IsActive: upd.IsActive}
	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		change.HashedPassword = &hash
	}
	return s.repo.UpdateUser(ctx, userID, change)
}

// DeleteAccount removes the user and everything they own.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	return s.repo.DeleteUser(ctx, userID)
}

func (s *AuthService) subjectUser(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrUnauthenticated)
	}
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user inactive", ErrUnauthenticated)
	}
	return user, nil
}

// decoy returns a hash of a random-looking value, computed once, so unknown
// emails cost a full verification.
func (s *AuthService) decoy() string {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash("decoy-password-for-unknown-users")
		if err == nil {
			s.decoyHash = hash
		}
	})
	return s.decoyHash
}
