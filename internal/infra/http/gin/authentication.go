package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	domainuser "rentdesk/internal/domain/user"
)

const principalContextKey = "rentdesk.principal"

type principal struct {
	ID   string
	Name string
	Role string
}

func (p principal) HasRole(role string) bool {
	return strings.EqualFold(p.Role, strings.TrimSpace(role))
}

// IdentityResolver maps a bearer token to a user.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*domainuser.User, error)
}

// RepositoryResolver treats the bearer token as a user id. It backs the
// local and test setups; a gateway in front of the service owns real
// credential checking.
type RepositoryResolver struct {
	Users domainuser.Repository
}

func (r RepositoryResolver) Resolve(ctx context.Context, token string) (*domainuser.User, error) {
	return r.Users.ByID(ctx, domainuser.ID(token))
}

type AuthMiddleware struct {
	Resolver IdentityResolver
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Resolver == nil {
		c.Next()
		return
	}
	user, err := m.Resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token resolution failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{
		ID:   string(user.ID),
		Name: user.Name,
		Role: string(user.Role),
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
