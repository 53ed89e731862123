package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/recovahq/recova/internal/actorcontext"
)

const actorContextKey = "recova.actor"

// AuthRequired resolves the bearer token to an actor and injects it into the
// request context so services downstream can read it.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		actor, err := s.authSvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(actorContextKey, actor)
		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func actorFromGin(c *gin.Context) (actorcontext.Actor, bool) {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return actorcontext.Actor{}, false
	}
	actor, ok := value.(actorcontext.Actor)
	return actor, ok
}

// authorizeAction gates the route on a casbin capability check. Row-level
// scoping happens in the services.
func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromGin(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RequireAdmin restricts the token-management surface to admin roles.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromGin(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		switch actor.Role {
		case actorcontext.RoleSuperAdmin, actorcontext.RoleEnterpriseAdmin:
			c.Next()
		default:
			AbortWithError(c, ErrForbidden)
		}
	}
}
