package events

import (
	"time"

	"github.com/investinkids/feedback-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportSubmitted EventType = "report_submitted"
	EventReportClaimed   EventType = "report_claimed"
	EventReportCompleted EventType = "report_completed"
)

// Event represents a domain event emitted after a report mutation committed.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ReportID  int64       `json:"report_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ReportSubmittedPayload payload.
type ReportSubmittedPayload struct {
	ReporterID    int64                 `json:"reporter_id"`
	ReporterName  string                `json:"reporter_name"`
	Category      domain.ReportCategory `json:"category"`
	Text          string                `json:"text"`
	AttachmentRef *string               `json:"attachment_ref,omitempty"`
}

// ReportClaimedPayload payload.
type ReportClaimedPayload struct {
	AssigneeID   int64  `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
}

// ReportCompletedPayload payload.
type ReportCompletedPayload struct {
	AssigneeID     int64  `json:"assignee_id"`
	AssigneeName   string `json:"assignee_name"`
	ResolutionText string `json:"resolution_text"`
}
