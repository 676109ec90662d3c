package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rideshare/internal/auth"
	"rideshare/internal/domain"
)

// Context keys set by the auth middleware.
const (
	ContextUserID    = "userID"
	ContextCaptainID = "captainID"
	ContextActorID   = "actorID"
	ContextActorRole = "actorRole"
	ContextToken     = "authToken"
)

// TokenVerifier parses and validates session tokens.
type TokenVerifier interface {
	Parse(token string) (*auth.Claims, error)
}

// TokenBlacklist reports whether a token has been revoked by logout.
type TokenBlacklist interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// AuthUser returns middleware that requires a valid rider session.
func AuthUser(verifier TokenVerifier, blacklist TokenBlacklist) gin.HandlerFunc {
	return requireRole(verifier, blacklist, domain.RoleUser, ContextUserID)
}

// AuthCaptain returns middleware that requires a valid captain session.
func AuthCaptain(verifier TokenVerifier, blacklist TokenBlacklist) gin.HandlerFunc {
	return requireRole(verifier, blacklist, domain.RoleCaptain, ContextCaptainID)
}

// AuthAny returns middleware that accepts either role and records the
// actor's identity and role for the handler to dispatch on.
func AuthAny(verifier TokenVerifier, blacklist TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			unauthorized(c)
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.Contains(c.Request.Context(), token)
			if err == nil && revoked {
				unauthorized(c)
				return
			}
		}

		claims, err := verifier.Parse(token)
		if err != nil || (claims.Role != domain.RoleUser && claims.Role != domain.RoleCaptain) {
			unauthorized(c)
			return
		}

		c.Set(ContextActorID, claims.Subject)
		c.Set(ContextActorRole, string(claims.Role))
		c.Set(ContextToken, token)
		c.Next()
	}
}

func requireRole(verifier TokenVerifier, blacklist TokenBlacklist, role domain.ActorRole, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			unauthorized(c)
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.Contains(c.Request.Context(), token)
			if err == nil && revoked {
				unauthorized(c)
				return
			}
		}

		claims, err := verifier.Parse(token)
		if err != nil || claims.Role != role {
			unauthorized(c)
			return
		}

		c.Set(contextKey, claims.Subject)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// extractToken pulls the session token from the Authorization header or,
// failing that, the token cookie.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie("token"); err == nil {
		return cookie
	}
	return ""
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
