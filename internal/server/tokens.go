package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/recovahq/recova/internal/actorcontext"
	authdomain "github.com/recovahq/recova/internal/auth/domain"
)

type issueTokenRequest struct {
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	ActorID   string     `json:"actor_id"`
	AgencyID  string     `json:"agency_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// IssueToken mints a bearer token bound to the caller's enterprise; there is
// no cross-enterprise minting, each tenant issues its own tokens.
func (s *Server) IssueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFromGin(c)

	var actorID snowflake.ID
	if raw := strings.TrimSpace(req.ActorID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("actor_id", "invalid_actor_id", "invalid actor_id"))
			return
		}
		actorID = parsed
	}
	var agencyID snowflake.ID
	if raw := strings.TrimSpace(req.AgencyID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("agency_id", "invalid_agency_id", "invalid agency_id"))
			return
		}
		agencyID = parsed
	}

	resp, err := s.authSvc.Issue(c.Request.Context(), authdomain.IssueRequest{
		Name:         strings.TrimSpace(req.Name),
		ActorID:      actorID,
		Role:         actorcontext.Role(strings.TrimSpace(req.Role)),
		EnterpriseID: actor.EnterpriseID,
		AgencyID:     agencyID,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListTokens(c *gin.Context) {
	actor, _ := actorFromGin(c)

	resp, err := s.authSvc.List(c.Request.Context(), actor.EnterpriseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevokeToken(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, authdomain.ErrInvalidID)
		return
	}

	if err := s.authSvc.Revoke(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"revoked": true}})
}

func isTokenValidationError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidName),
		errors.Is(err, authdomain.ErrInvalidRole),
		errors.Is(err, authdomain.ErrInvalidEnterprise),
		errors.Is(err, authdomain.ErrInvalidAgency),
		errors.Is(err, authdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}
