package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/5knew/deskcore/pkg/errs"
)

// writeError maps an errs.Kind to an HTTP status and writes a uniform
// {kind, message} body, per the propagation policy: Internal is the only
// opaque kind, everything else is safe to return verbatim.
func writeError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	var e *errs.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	if kind == errs.Internal {
		slog.Error("api: internal error", "error", err)
		message = "internal error"
	}

	c.JSON(status, gin.H{"kind": kind, "message": message})
}

func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.InvalidInput:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Forbidden:
		return http.StatusForbidden
	case errs.Conflict:
		return http.StatusConflict
	case errs.Degraded:
		return http.StatusOK
	case errs.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
