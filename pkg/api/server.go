// Package api exposes the HTTP/JSON surface of §6: a thin gin router
// over pkg/store, pkg/orchestrator, and pkg/metrics. Authentication and
// token issuance are an external collaborator; handlers trust the
// X-User-Id header as the caller's identity.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/5knew/deskcore/pkg/metrics"
	"github.com/5knew/deskcore/pkg/orchestrator"
	"github.com/5knew/deskcore/pkg/store"
)

// Server wires the HTTP surface to its backing components.
type Server struct {
	store   *store.Store
	orch    *orchestrator.Orchestrator
	metrics *metrics.Aggregator
}

// NewServer builds a Server.
func NewServer(st *store.Store, orch *orchestrator.Orchestrator, agg *metrics.Aggregator) *Server {
	return &Server{store: st, orch: orch, metrics: agg}
}

// NewRouter builds the gin engine with every route in §6 registered.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), securityHeaders(), instrumentation())

	r.GET("/health", s.Health)
	r.GET("/metrics/prometheus", prometheusHandler())

	tickets := r.Group("/tickets")
	{
		tickets.POST("/create", s.CreateTicket)
		tickets.GET("", s.ListTickets)
		tickets.GET("/search", s.SearchTickets)
		tickets.GET("/overdue", s.ListOverdue)
		tickets.GET("/:id", s.GetTicket)
		tickets.PUT("/:id", s.UpdateTicket)
		tickets.DELETE("/:id", s.CloseTicket)
		tickets.GET("/:id/history", s.ListHistory)
		tickets.POST("/:id/comments", s.AddComment)
		tickets.GET("/:id/comments", s.ListComments)
		tickets.POST("/:id/feedback", s.CreateFeedback)
		tickets.GET("/:id/feedback", s.GetFeedback)
	}

	notifications := r.Group("/notifications")
	{
		notifications.GET("", s.ListNotifications)
		notifications.GET("/unread/count", s.CountUnreadNotifications)
		notifications.PUT("/:id/read", s.MarkNotificationRead)
		notifications.PUT("/read-all", s.MarkAllNotificationsRead)
	}

	r.GET("/categories", s.ListCategories)
	r.GET("/departments", s.ListDepartments)
	r.GET("/metrics", s.GetMetrics)

	return r
}

// Health reports process liveness; database reachability is reported
// separately by database.Health through GET /health/deep, which
// cmd/deskcore registers.
func (s *Server) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
