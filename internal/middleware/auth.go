package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
)

const ContextActor = "actor"

// AuthMiddleware extracts the acting user from a bearer token minted
// by the external authentication service. The claims are trusted as
// given; this service performs no credential handling of its own.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

type identityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"reason": "UNAUTHORIZED", "message": "missing bearer token"}})
			return
		}

		var claims identityClaims
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"reason": "UNAUTHORIZED", "message": "invalid token"}})
			return
		}

		id, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"reason": "UNAUTHORIZED", "message": "invalid subject"}})
			return
		}

		role := model.Role(claims.Role)
		switch role {
		case model.RolePatient, model.RoleDoctor, model.RoleAdmin:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"reason": "UNAUTHORIZED", "message": "unknown role"}})
			return
		}

		c.Set(ContextActor, model.Actor{ID: id, Role: role})
		c.Next()
	}
}

// ActorFrom returns the authenticated actor stored by Authenticate.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
