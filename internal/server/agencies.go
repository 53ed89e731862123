package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	agencydomain "github.com/recovahq/recova/internal/agency/domain"
)

type createAgencyRequest struct {
	Name               string   `json:"name"`
	Code               string   `json:"code"`
	ContactPerson      string   `json:"contact_person"`
	Email              string   `json:"email"`
	PerformanceScore   float64  `json:"performance_score"`
	MaxConcurrentCases int      `json:"max_concurrent_cases"`
	Specializations    []string `json:"specializations"`
}

func (s *Server) CreateAgency(c *gin.Context) {
	var req createAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agencySvc.Create(c.Request.Context(), agencydomain.CreateAgencyRequest{
		Name:               strings.TrimSpace(req.Name),
		Code:               strings.TrimSpace(req.Code),
		ContactPerson:      strings.TrimSpace(req.ContactPerson),
		Email:              strings.TrimSpace(req.Email),
		PerformanceScore:   req.PerformanceScore,
		MaxConcurrentCases: req.MaxConcurrentCases,
		Specializations:    normalizeSpecializations(req.Specializations),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListAgencies(c *gin.Context) {
	var query struct {
		ActiveOnly    bool `form:"active_only"`
		AcceptingOnly bool `form:"accepting_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agencySvc.List(c.Request.Context(), agencydomain.ListAgencyRequest{
		ActiveOnly:    query.ActiveOnly,
		AcceptingOnly: query.AcceptingOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAgencyByID(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, agencydomain.ErrInvalidID)
		return
	}

	resp, err := s.agencySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateAgencyRequest struct {
	ContactPerson      *string  `json:"contact_person"`
	Email              *string  `json:"email"`
	PerformanceScore   *float64 `json:"performance_score"`
	RecoveryRate       *float64 `json:"recovery_rate"`
	MaxConcurrentCases *int     `json:"max_concurrent_cases"`
	Specializations    []string `json:"specializations"`
	IsActive           *bool    `json:"is_active"`
	IsAcceptingCases   *bool    `json:"is_accepting_cases"`
}

func (s *Server) UpdateAgency(c *gin.Context) {
	var req updateAgencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agencySvc.Update(c.Request.Context(), agencydomain.UpdateAgencyRequest{
		ID:                 strings.TrimSpace(c.Param("id")),
		ContactPerson:      req.ContactPerson,
		Email:              req.Email,
		PerformanceScore:   req.PerformanceScore,
		RecoveryRate:       req.RecoveryRate,
		MaxConcurrentCases: req.MaxConcurrentCases,
		Specializations:    normalizeSpecializations(req.Specializations),
		IsActive:           req.IsActive,
		IsAcceptingCases:   req.IsAcceptingCases,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResetAgencyBreaches(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, agencydomain.ErrInvalidID)
		return
	}

	resp, err := s.agencySvc.ResetBreaches(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func normalizeSpecializations(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isAgencyValidationError(err error) bool {
	switch {
	case errors.Is(err, agencydomain.ErrInvalidEnterprise),
		errors.Is(err, agencydomain.ErrInvalidName),
		errors.Is(err, agencydomain.ErrInvalidCode),
		errors.Is(err, agencydomain.ErrInvalidCapacity),
		errors.Is(err, agencydomain.ErrInvalidID):
		return true
	default:
		return false
	}
}
