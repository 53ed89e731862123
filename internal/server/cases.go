package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	casedomain "github.com/recovahq/recova/internal/case/domain"
	"github.com/recovahq/recova/pkg/db/pagination"
)

type createCaseRequest struct {
	AccountID      string  `json:"account_id"`
	DebtorName     string  `json:"debtor_name"`
	DebtorEmail    string  `json:"debtor_email"`
	DebtorPhone    string  `json:"debtor_phone"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	DebtType       string  `json:"debt_type"`
	DaysDelinquent int     `json:"days_delinquent"`
}

func (s *Server) CreateCase(c *gin.Context) {
	var req createCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.caseSvc.Create(c.Request.Context(), casedomain.CreateCaseRequest{
		AccountID:      strings.TrimSpace(req.AccountID),
		DebtorName:     strings.TrimSpace(req.DebtorName),
		DebtorEmail:    strings.TrimSpace(req.DebtorEmail),
		DebtorPhone:    strings.TrimSpace(req.DebtorPhone),
		Amount:         req.Amount,
		Currency:       strings.TrimSpace(req.Currency),
		DebtType:       strings.TrimSpace(strings.ToLower(req.DebtType)),
		DaysDelinquent: req.DaysDelinquent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// A case that found no agency still persists as pending; surface that
	// to the caller without failing the request.
	if resp.Status == casedomain.StatusPending {
		c.JSON(http.StatusCreated, gin.H{
			"data":   resp,
			"detail": gin.H{"type": "allocation_error", "message": "no eligible agency; case pending"},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCases(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		Priority string `form:"priority"`
		AgencyID string `form:"agency_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.caseSvc.List(c.Request.Context(), casedomain.ListCaseRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Status:    strings.TrimSpace(query.Status),
		Priority:  strings.TrimSpace(query.Priority),
		AgencyID:  strings.TrimSpace(query.AgencyID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCaseByID(c *gin.Context) {
	resp, err := s.caseSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type transitionCaseRequest struct {
	Status         string `json:"status"`
	Remarks        string `json:"remarks"`
	ProofType      string `json:"proof_type"`
	ProofReference string `json:"proof_reference"`
}

func (s *Server) TransitionCase(c *gin.Context) {
	var req transitionCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := strings.TrimSpace(strings.ToLower(req.Status))
	if status == "" {
		AbortWithError(c, newValidationError("status", "invalid_status", "status is required"))
		return
	}

	resp, err := s.caseSvc.Transition(c.Request.Context(), casedomain.TransitionRequest{
		CaseID:         strings.TrimSpace(c.Param("id")),
		ToStatus:       casedomain.Status(status),
		Remarks:        strings.TrimSpace(req.Remarks),
		ProofType:      strings.TrimSpace(req.ProofType),
		ProofReference: strings.TrimSpace(req.ProofReference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReassignCase(c *gin.Context) {
	resp, err := s.caseSvc.Reassign(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReopenCase(c *gin.Context) {
	resp, err := s.caseSvc.Reopen(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RescoreCase(c *gin.Context) {
	resp, err := s.caseSvc.Rescore(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RetryCaseAllocation(c *gin.Context) {
	resp, err := s.caseSvc.RetryAllocation(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCaseValidationError(err error) bool {
	switch {
	case errors.Is(err, casedomain.ErrInvalidEnterprise),
		errors.Is(err, casedomain.ErrInvalidID),
		errors.Is(err, casedomain.ErrInvalidDebtorName),
		errors.Is(err, casedomain.ErrInvalidAmount),
		errors.Is(err, casedomain.ErrInvalidDelinquent),
		errors.Is(err, casedomain.ErrInvalidStatus),
		errors.Is(err, casedomain.ErrInvalidNote):
		return true
	default:
		return false
	}
}
