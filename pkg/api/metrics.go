package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMetrics handles GET /metrics, the §4.9 aggregator payload.
func (s *Server) GetMetrics(c *gin.Context) {
	snapshot, err := s.metrics.Compute(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
