package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	errUnauthorized = "Unauthorized"
	errForbidden    = "Forbidden"

	scopesContextKey = "scopes"
)

// Auth validates a Bearer JWT signed with HS256 against jwtKey. Unlike
// the Clerk-facing variant this scheduler's auth layer bridges from, there
// is no external identity provider to federate with — every caller is an
// operator holding the shared admin secret, so HMAC verification alone is
// sufficient.
//
// A token's "scope" claim — a space-delimited list, the same convention
// OAuth2 access tokens use — carries the set of admin-API capabilities
// that operator's token was minted with (e.g. "jobs:read jobs:write").
// A token with no "scope" claim at all is treated as a legacy full-access
// credential: every admin operator originally held one bare bearer
// secret, and RequireScope must not lock those out retroactively.
func Auth(jwtKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		rawToken := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(rawToken, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		subject, ok := claims["sub"].(string)
		if !ok || subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set("subject", subject)
		c.Set(scopesContextKey, parseScopes(claims))
		c.Next()
	}
}

// parseScopes reads the space-delimited "scope" claim into a set. A nil
// return (no claim present) is distinct from an empty-but-present claim —
// RequireScope treats nil as "unrestricted" and an empty set as "no
// capabilities granted."
func parseScopes(claims jwt.MapClaims) map[string]bool {
	raw, ok := claims["scope"].(string)
	if !ok {
		return nil
	}
	scopes := make(map[string]bool)
	for _, s := range strings.Fields(raw) {
		scopes[s] = true
	}
	return scopes
}

// RequireScope gates a route group on an admin-API capability (e.g.
// "jobs:read", "jobs:write"). Must be chained after Auth, which populates
// the scope set RequireScope inspects. A token minted with no "scope"
// claim at all passes every RequireScope check (see Auth's doc comment);
// a token that does carry scopes must include the one requested here.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(scopesContextKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		scopes, ok := v.(map[string]bool)
		if !ok || scopes == nil {
			c.Next()
			return
		}
		if !scopes[scope] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errForbidden})
			return
		}
		c.Next()
	}
}
