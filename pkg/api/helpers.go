package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// actor resolves the caller's identity from the X-User-Id header.
// Authentication itself is an external collaborator (§1); this layer
// only trusts whatever identity the upstream gateway has already
// verified and forwarded.
func (s *Server) actor(c *gin.Context) (*models.User, error) {
	id := c.GetHeader("X-User-Id")
	if id == "" {
		return nil, errs.New(errs.InvalidInput, "X-User-Id header is required")
	}
	return s.store.GetUser(c.Request.Context(), id)
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "invalid "+name, err)
	}
	return &t, nil
}

func parseIntQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
