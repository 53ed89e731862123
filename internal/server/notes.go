package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	casedomain "github.com/recovahq/recova/internal/case/domain"
)

type addNoteRequest struct {
	Body string `json:"body"`
}

func (s *Server) AddCaseNote(c *gin.Context) {
	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.caseSvc.AddNote(c.Request.Context(), casedomain.AddNoteRequest{
		CaseID: strings.TrimSpace(c.Param("id")),
		Body:   strings.TrimSpace(req.Body),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCaseNotes(c *gin.Context) {
	resp, err := s.caseSvc.ListNotes(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
