package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/session"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// Revoker blacklists session token ids until they expire.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService issues and revokes sessions for password accounts.
type AuthService struct {
	users   repository.UserRepository
	issuer  *session.Issuer
	revoker Revoker
	now     func() time.Time
}

// SignupInput is the payload of a password signup.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is the payload of a password login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is a freshly issued session.
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func NewAuthService(users repository.UserRepository, issuer *session.Issuer, revoker Revoker) *AuthService {
	return &AuthService{users: users, issuer: issuer, revoker: revoker, now: time.Now}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	fields := map[string]string{}
	if err := validation.ValidateDisplayName(in.Name); err != nil {
		fields["name"] = err.Error()
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, models.NewFieldErrors(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	hashed := string(hash)

	user := &models.User{
		Name:   in.Name,
		Email:  in.Email,
		Passwd: &hashed,
		Role:   models.RoleUser,
		State:  models.AccountActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	invalid := models.NewUnauthorizedError("Invalid email or password")

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Passwd == nil {
		return nil, invalid
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(*user.Passwd), []byte(in.Password)); cmpErr != nil {
		return nil, invalid
	}
	if user.IsDeleted() {
		return nil, models.NewUnauthorizedError("This account has been withdrawn")
	}
	return s.issue(user)
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *session.Claims) error {
	if claims == nil || claims.ID == "" {
		return models.NewUnauthorizedError("Authentication required")
	}
	if s.revoker == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Me returns the caller's own account.
func (s *AuthService) Me(ctx context.Context, sess session.Session) (*models.User, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewUnauthorizedError("Authentication required")
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, claims, err := s.issuer.Issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}
