package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"backoffice/internal/authz"
	"backoffice/internal/logger"
	"backoffice/internal/metrics"
	"backoffice/internal/model"
	"backoffice/internal/security"
	"backoffice/internal/session"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// AccessTokenCookie is read when no Authorization header is sent
	AccessTokenCookie = "access_token"

	principalKey = "principal"
)

// ErrUnauthenticated is every authentication failure as the caller sees it
var ErrUnauthenticated = errors.New("invalid credentials")

// PrincipalLoader finds an active user; inactive and missing users look the same
type PrincipalLoader interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Principal is what the gate binds to an authenticated request
type Principal struct {
	User    *model.User
	Session *security.Session
	// Granted is filled by the authorization gate; nil until a permission check ran
	Granted authz.PermissionSet
}

// Gate runs the authentication and authorization steps in front of handlers
type Gate struct {
	codec    *security.TokenCodec
	users    PrincipalLoader
	denylist *session.Denylist
	resolver *authz.Resolver
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

func NewGate(codec *security.TokenCodec, users PrincipalLoader, denylist *session.Denylist, resolver *authz.Resolver, m *metrics.Metrics, log logrus.FieldLogger) *Gate {
	if log == nil {
		log = logger.Discard()
	}
	return &Gate{codec: codec, users: users, denylist: denylist, resolver: resolver, metrics: m, log: log}
}

// BearerToken returns the access token from the Authorization header, falling back to the
// cookie, or ""
func BearerToken(c *gin.Context) string {
	scheme, tok, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok
		}
	}
	if tok, err := c.Cookie(AccessTokenCookie); err == nil && tok != "" {
		return tok
	}
	return ""
}

// Authenticate verifies raw and loads its active principal. Every failure is ErrUnauthenticated;
// the underlying reason is only logged at debug level.
func (g *Gate) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	sess, err := g.codec.Verify(raw)
	if err != nil {
		return nil, g.reject(ctx, err)
	}
	revoked, err := g.denylist.IsRevoked(ctx, sess.TokenID)
	if err != nil {
		logger.WithContext(g.log, ctx).WithError(err).Warn("revocation lookup failed")
	}
	if revoked {
		return nil, g.reject(ctx, errors.New("token revoked"))
	}
	user, err := g.users.FindActiveByID(ctx, sess.PrincipalID)
	if err != nil {
		return nil, g.reject(ctx, err)
	}
	return &Principal{User: user, Session: sess}, nil
}

func (g *Gate) reject(ctx context.Context, reason error) error {
	logger.WithContext(g.log, ctx).WithField("reason", reason.Error()).Debug("authentication rejected")
	return ErrUnauthenticated
}

func (g *Gate) bind(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
	ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, p.User.ID.String())
	c.Request = c.Request.WithContext(ctx)
}

// authenticate binds the principal or aborts with 401; it reports whether the chain may continue
func (g *Gate) authenticate(c *gin.Context) bool {
	if _, ok := CurrentPrincipal(c); ok {
		return true
	}
	raw := BearerToken(c)
	if raw == "" {
		g.metrics.Gate("authn", metrics.OutcomeRejected)
		abortUnauthenticated(c)
		return false
	}
	p, err := g.Authenticate(c.Request.Context(), raw)
	if err != nil {
		g.metrics.Gate("authn", metrics.OutcomeRejected)
		abortUnauthenticated(c)
		return false
	}
	g.metrics.Gate("authn", metrics.OutcomeAuthenticated)
	g.bind(c, p)
	return true
}

// RequireAuth rejects with 401 invalid_credentials unless a valid token for an active user is presented
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.authenticate(c) {
			c.Next()
		}
	}
}

// OptionalAuth binds a principal when a valid token is presented and otherwise continues anonymously
func (g *Gate) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := BearerToken(c); raw != "" {
			if p, err := g.Authenticate(c.Request.Context(), raw); err == nil {
				g.metrics.Gate("authn", metrics.OutcomeAuthenticated)
				g.bind(c, p)
				c.Next()
				return
			}
		}
		g.metrics.Gate("authn", metrics.OutcomeAnonymous)
		c.Next()
	}
}

// RequirePermission authenticates if needed, then denies with 403 and the missing codes
// unless the principal holds every code in req
func (g *Gate) RequirePermission(req authz.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.authenticate(c) {
			g.authorize(c, req)
		}
	}
}

func (g *Gate) authorize(c *gin.Context, req authz.Requirement) {
	p, _ := CurrentPrincipal(c)
	decision, err := g.resolver.Authorize(c.Request.Context(), p.User, req)
	if err != nil {
		g.metrics.Gate("authz", metrics.OutcomeError)
		logger.WithContext(g.log, c.Request.Context()).WithError(err).Error("permission resolution failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Fail(http.StatusInternalServerError, response.CodeInternal, "failed to verify permissions"))
		return
	}
	if !decision.Allowed() {
		g.metrics.Gate("authz", metrics.OutcomeDenied)
		logger.WithContext(g.log, c.Request.Context()).
			WithField("required", req.String()).
			WithField("missing", strings.Join(decision.Missing, ",")).
			Info("permission denied")
		c.AbortWithStatusJSON(http.StatusForbidden, response.Denied(http.StatusForbidden, decision.Missing))
		return
	}
	g.metrics.Gate("authz", metrics.OutcomeGranted)
	p.Granted = decision.Granted
	c.Next()
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail(http.StatusUnauthorized, response.CodeInvalidCredentials, ErrUnauthenticated.Error()))
}

// CurrentPrincipal returns the principal bound by the gate
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

// CurrentUserID returns the authenticated user id, or uuid.Nil for anonymous requests
func CurrentUserID(c *gin.Context) uuid.UUID {
	if p, ok := CurrentPrincipal(c); ok {
		return p.User.ID
	}
	return uuid.Nil
}

// SetTokenCookie stores the access token as an HttpOnly cookie. secure is set in production,
// where the frontend is served cross-site.
func SetTokenCookie(c *gin.Context, token string, maxAge int, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, token, maxAge, "/", "", secure, true)
}

// ClearTokenCookie removes the access token cookie
func ClearTokenCookie(c *gin.Context, secure bool) {
	SetTokenCookie(c, "", -1, secure)
}
