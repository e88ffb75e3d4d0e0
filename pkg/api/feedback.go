package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/5knew/deskcore/pkg/errs"
)

type createFeedbackRequest struct {
	UserID  *string `json:"user_id"`
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment"`
}

// CreateFeedback handles POST /tickets/{id}/feedback. A second
// submission for the same ticket is rejected by the store's unique
// index; this handler only validates the rating range.
func (s *Server) CreateFeedback(c *gin.Context) {
	var req createFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.Wrap(errs.InvalidInput, "invalid request body", err))
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(c, errs.New(errs.InvalidInput, "rating must be between 1 and 5"))
		return
	}

	feedback, err := s.store.CreateFeedback(c.Request.Context(), c.Param("id"), req.UserID, req.Rating, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedback)
}

// GetFeedback handles GET /tickets/{id}/feedback.
func (s *Server) GetFeedback(c *gin.Context) {
	feedback, err := s.store.GetFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}
