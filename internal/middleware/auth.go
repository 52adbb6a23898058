// Package middleware provides session resolution, authorization gates,
// logging, tracing and rate limiting for the HTTP layer.
package middleware

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/session"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the cookie that carries the session token for browser clients.
const SessionCookie = "session"

const (
	localsSession = "session"
	localsClaims  = "claims"
)

// AccountLookup loads the account a token refers to.
type AccountLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// RevocationChecker reports whether a token id has been logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SessionResolver turns a bearer header or session cookie into a session.Session.
type SessionResolver struct {
	issuer  *session.Issuer
	users   AccountLookup
	revoked RevocationChecker
}

// NewSessionResolver creates a resolver. revoked may be nil when Redis is not configured.
func NewSessionResolver(issuer *session.Issuer, users AccountLookup, revoked RevocationChecker) *SessionResolver {
	return &SessionResolver{issuer: issuer, users: users, revoked: revoked}
}

// Handler resolves the caller for every request. Requests without a usable
// token continue as anonymous; gates further down decide what that means.
func (r *SessionResolver) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, claims := r.resolve(c)
		c.Locals(localsSession, sess)
		if sess.Authenticated() {
			c.Locals("userID", sess.UserID)
			c.Locals(localsClaims, claims)
		}
		c.SetUserContext(session.WithSession(c.UserContext(), sess))
		return c.Next()
	}
}

func (r *SessionResolver) resolve(c *fiber.Ctx) (session.Session, *session.Claims) {
	raw := tokenFrom(c)
	if raw == "" {
		return session.Anonymous, nil
	}

	ctx := c.UserContext()
	claims, err := r.issuer.Parse(raw)
	if err != nil {
		return session.Anonymous, nil
	}
	userID, err := claims.UserID()
	if err != nil {
		return session.Anonymous, nil
	}

	if r.revoked != nil {
		revoked, err := r.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			Logger.WarnContext(ctx, "session revocation check failed", slog.String("error", err.Error()))
		} else if revoked {
			return session.Anonymous, nil
		}
	}

	// The role is read from the account, not the token, so demotions and
	// withdrawals take effect immediately.
	user, err := r.users.GetByID(ctx, userID)
	if err != nil || user == nil || user.IsDeleted() {
		return session.Anonymous, nil
	}
	return session.Session{UserID: user.ID, Role: user.Role}, claims
}

func tokenFrom(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(SessionCookie)
}

// SessionFrom returns the session resolved for this request.
func SessionFrom(c *fiber.Ctx) session.Session {
	if s, ok := c.Locals(localsSession).(session.Session); ok {
		return s
	}
	return session.Anonymous
}

// ClaimsFrom returns the token claims of an authenticated request.
func ClaimsFrom(c *fiber.Ctx) *session.Claims {
	claims, _ := c.Locals(localsClaims).(*session.Claims)
	return claims
}

// AuthRequired rejects anonymous API callers with 401.
func AuthRequired(c *fiber.Ctx) error {
	if !SessionFrom(c).Authenticated() {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Error: "Authentication required",
			Code:  models.CodeUnauthorized,
		})
	}
	return c.Next()
}

// AdminRequired rejects non-admin API callers.
func AdminRequired(c *fiber.Ctx) error {
	sess := SessionFrom(c)
	if !sess.Authenticated() {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Error: "Authentication required",
			Code:  models.CodeUnauthorized,
		})
	}
	if !sess.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
			Error: "Admin access required",
			Code:  models.CodeForbidden,
		})
	}
	return c.Next()
}

// AdminPageGate guards the /admin area with redirects: anonymous callers go
// to the login page with a callback to the original URL, signed-in
// non-admins go home.
func AdminPageGate(c *fiber.Ctx) error {
	sess := SessionFrom(c)
	if !sess.Authenticated() {
		return c.Redirect("/login?callbackUrl="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}
	if !sess.IsAdmin() {
		return c.Redirect("/", fiber.StatusFound)
	}
	return c.Next()
}
