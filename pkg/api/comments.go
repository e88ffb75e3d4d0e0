package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/5knew/deskcore/pkg/errs"
)

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddComment handles POST /tickets/{id}/comments.
func (s *Server) AddComment(c *gin.Context) {
	actor, err := s.actor(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.Wrap(errs.InvalidInput, "invalid request body", err))
		return
	}

	msg, _, err := s.store.AddComment(c.Request.Context(), c.Param("id"), actor, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListComments handles GET /tickets/{id}/comments.
func (s *Server) ListComments(c *gin.Context) {
	comments, err := s.store.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}
