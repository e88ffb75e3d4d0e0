package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
	"github.com/5knew/deskcore/pkg/orchestrator"
	"github.com/5knew/deskcore/pkg/store"
)

// createTicketRequest is the ingestion envelope of §4.6's entry point.
type createTicketRequest struct {
	Source       models.Source `json:"source" binding:"required"`
	AuthorUserID string        `json:"author_user_id" binding:"required"`
	AuthorEmail  string        `json:"author_email"`
	AuthorName   string        `json:"author_name"`
	Subject      string        `json:"subject"`
	Body         string        `json:"body" binding:"required"`
	Language     *string       `json:"language"`
}

// CreateTicket handles POST /tickets/create.
func (s *Server) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.Wrap(errs.InvalidInput, "invalid request body", err))
		return
	}

	var lang *models.Language
	if req.Language != nil {
		l := models.Language(*req.Language)
		lang = &l
	}

	ticket, err := s.orch.Submit(c.Request.Context(), orchestrator.SubmitRequest{
		Source:       req.Source,
		AuthorUserID: req.AuthorUserID,
		AuthorEmail:  req.AuthorEmail,
		AuthorName:   req.AuthorName,
		Subject:      req.Subject,
		Body:         req.Body,
		Language:     lang,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// ListTickets handles GET /tickets.
func (s *Server) ListTickets(c *gin.Context) {
	dateFrom, err := parseTimeQuery(c, "date-from")
	if err != nil {
		writeError(c, err)
		return
	}
	dateTo, err := parseTimeQuery(c, "date-to")
	if err != nil {
		writeError(c, err)
		return
	}

	tickets, err := s.store.ListTickets(c.Request.Context(), store.TicketFilters{
		Status:       c.Query("status"),
		CategoryID:   c.Query("category-id"),
		CategoryName: c.Query("category-name"),
		DateFrom:     dateFrom,
		DateTo:       dateTo,
		Skip:         parseIntQuery(c, "skip", 0),
		Limit:        parseIntQuery(c, "limit", 50),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// SearchTickets handles GET /tickets/search?q=.
func (s *Server) SearchTickets(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		writeError(c, errs.New(errs.InvalidInput, "q is required"))
		return
	}
	tickets, err := s.store.SearchTickets(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// ListOverdue handles GET /tickets/overdue.
func (s *Server) ListOverdue(c *gin.Context) {
	tickets, err := s.store.ListOverdue(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// GetTicket handles GET /tickets/{id}.
func (s *Server) GetTicket(c *gin.Context) {
	ticket, err := s.store.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// updateTicketRequest mirrors store.TicketPatch for JSON binding; a nil
// field leaves that column unchanged.
type updateTicketRequest struct {
	Status               *models.Status   `json:"status"`
	Priority             *models.Priority `json:"priority"`
	CategoryID           *string          `json:"category_id"`
	AssignedOperatorID   *string          `json:"assigned_operator_id"`
	AssignedDepartmentID *string          `json:"assigned_department_id"`
}

// UpdateTicket handles PUT /tickets/{id}.
func (s *Server) UpdateTicket(c *gin.Context) {
	actor, err := s.actor(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errs.Wrap(errs.InvalidInput, "invalid request body", err))
		return
	}

	ticket, _, err := s.store.UpdateTicket(c.Request.Context(), c.Param("id"), store.TicketPatch{
		Status:               req.Status,
		Priority:             req.Priority,
		CategoryID:           req.CategoryID,
		AssignedOperatorID:   req.AssignedOperatorID,
		AssignedDepartmentID: req.AssignedDepartmentID,
	}, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// CloseTicket handles DELETE /tickets/{id}: a soft-close via the same
// patch path UpdateTicket uses, never a row deletion.
func (s *Server) CloseTicket(c *gin.Context) {
	actor, err := s.actor(c)
	if err != nil {
		writeError(c, err)
		return
	}

	closed := models.StatusClosed
	ticket, _, err := s.store.UpdateTicket(c.Request.Context(), c.Param("id"), store.TicketPatch{Status: &closed}, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ListHistory handles GET /tickets/{id}/history.
func (s *Server) ListHistory(c *gin.Context) {
	history, err := s.store.ListHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ListCategories handles GET /categories.
func (s *Server) ListCategories(c *gin.Context) {
	categories, err := s.store.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// ListDepartments handles GET /departments.
func (s *Server) ListDepartments(c *gin.Context) {
	departments, err := s.store.ListDepartments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, departments)
}
