package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunSLACheck triggers the breach scan on demand, outside the scheduler
// cadence. The scan is idempotent, so overlapping runs are harmless.
func (s *Server) RunSLACheck(c *gin.Context) {
	breaches, err := s.slaMonitor.CheckBreaches(c.Request.Context(), s.clock.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"new_breaches": len(breaches),
		"breaches":     breaches,
	}})
}
