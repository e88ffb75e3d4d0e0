package models

import "time"

// User is a ticket author, operator account, or admin.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	Phone        string
	CreatedAt    time.Time
}

// Ticket is the core mutable entity of the system. Every field past
// Body is optional until the ingestion pipeline or an operator fills it
// in; see pkg/store for the transactional invariants that govern writes.
type Ticket struct {
	ID                   string
	Source               Source
	AuthorUserID         string
	Subject              string
	Body                 string
	Language             Language
	CategoryID           *string
	Priority             *Priority
	IssueType            *IssueType
	AIConfidence         float64
	AssignedDepartmentID *string
	AssignedOperatorID   *string
	Status               Status
	AutoResolved         bool
	NeedsClarification   bool
	ConfidenceWarning    *string
	SLADeadline          *time.Time
	IsEscalated          bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ClosedAt             *time.Time
}

// Category is a ticket classification label with an optional SLA override.
type Category struct {
	ID          string
	Name        string
	Description string
	SLAMinutes  *int
}

// Department is a routing destination. Tickets reference departments by
// id; a department with referencing tickets cannot be deleted.
type Department struct {
	ID   string
	Name string
}

// Operator is a User acting as a ticket handler within a Department.
type Operator struct {
	ID           string
	UserID       string
	DepartmentID *string
	IsActive     bool
}

// TicketMessage is an append-only comment thread entry.
type TicketMessage struct {
	ID           string
	TicketID     string
	SenderUserID string
	Text         string
	Attachments  []byte
	CreatedAt    time.Time
}

// TicketHistory is an append-only audit row. Every status, priority, or
// assignment change produces exactly one row.
type TicketHistory struct {
	ID          string
	TicketID    string
	ActorUserID *string
	Action      HistoryAction
	OldValue    *string
	NewValue    *string
	Description *string
	CreatedAt   time.Time
}

// Notification is a per-recipient fanout row produced by C8.
type Notification struct {
	ID          string
	RecipientID string
	TicketID    *string
	Type        NotificationType
	Title       string
	Message     string
	IsRead      bool
	CreatedAt   time.Time
}

// Feedback is the one-shot CSAT rating attached to a closed ticket.
type Feedback struct {
	ID        string
	TicketID  string
	UserID    *string
	Rating    int
	Comment   *string
	CreatedAt time.Time
}

// AIPrediction is the classifier's output for a ticket, written once per
// ingestion by C6.
type AIPrediction struct {
	ID                  string
	TicketID            string
	ModelID             string
	PredictedCategoryID *string
	PredictedPriority   *Priority
	PredictedIssueType  *IssueType
	Confidence          float64
	CreatedAt           time.Time
}

// AutoResponse records a canned reply actually delivered by C3, written
// only when the auto-reply path fires.
type AutoResponse struct {
	ID           string
	TicketID     string
	ResponseText string
	IsSuccessful bool
	CreatedAt    time.Time
}

// ResponseTemplate is a content-addressable canned answer loaded into C1
// at startup. Not mutated in the hot path.
type ResponseTemplate struct {
	ID       string
	Category string
	Language Language
	Text     string
	Keywords []string
}

// MLModel identifies which classifier model version produced a given
// AIPrediction; a foreign row referenced by AIPrediction.ModelID.
type MLModel struct {
	ID      string
	Name    string
	Version string
}

// DailyStat is a materialized per-day rollup feeding the C9 trend chart,
// refreshed by a daily cron job rather than computed on every read.
type DailyStat struct {
	Day                time.Time
	TotalTickets       int
	AutoResolved       int
	AIAccuracy         float64
	Misroutes          int
	AvgResponseTimeSec float64
}
