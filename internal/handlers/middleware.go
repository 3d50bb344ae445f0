package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/config"
	"github.com/propertymesh/listing-governance/internal/governance"
)

const actorContextKey = "governance_actor"

// ActorAuth resolves the acting user for every request. With
// authentication enabled it requires a bearer JWT carrying sub, roles and
// broker_id claims. With it disabled (development, trusted internal
// callers), the actor is read from X-Actor-* headers instead.
func ActorAuth(cfg config.SecurityConfig, logger *zap.Logger) gin.HandlerFunc {
	if !cfg.EnableAuthentication {
		return headerActor()
	}
	return jwtActor(cfg.JWTSecret, logger)
}

func headerActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := &governance.User{
			ID:       c.GetHeader("X-Actor-ID"),
			BrokerID: c.GetHeader("X-Broker-ID"),
		}
		if roles := c.GetHeader("X-Actor-Roles"); roles != "" {
			actor.Roles = strings.Split(roles, ",")
		}
		if actor.ID == "" {
			actor.ID = "anonymous"
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func jwtActor(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.Warn("Rejected invalid token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		actor := &governance.User{}
		if sub, _ := claims.GetSubject(); sub != "" {
			actor.ID = sub
		}
		if brokerID, ok := claims["broker_id"].(string); ok {
			actor.BrokerID = brokerID
		}
		if rawRoles, ok := claims["roles"].([]interface{}); ok {
			for _, r := range rawRoles {
				if role, ok := r.(string); ok {
					actor.Roles = append(actor.Roles, role)
				}
			}
		}
		if actor.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// actorFrom returns the resolved actor, never nil.
func actorFrom(c *gin.Context) *governance.User {
	if v, exists := c.Get(actorContextKey); exists {
		if actor, ok := v.(*governance.User); ok {
			return actor
		}
	}
	return &governance.User{ID: "anonymous"}
}
