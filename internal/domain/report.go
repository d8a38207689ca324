package domain

import (
	"fmt"
	"time"
)

// ReportStatus enumerates lifecycle states for reports.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusCompleted  ReportStatus = "completed"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (ReportStatus, error) {
	switch ReportStatus(raw) {
	case ReportStatusPending, ReportStatusInProgress, ReportStatusCompleted:
		return ReportStatus(raw), nil
	}
	return "", fmt.Errorf("unknown report status %q", raw)
}

// ReportCategory enumerates what kind of feedback a report carries.
type ReportCategory string

const (
	CategoryProblemFacility  ReportCategory = "problem_facility"
	CategoryProblemEducation ReportCategory = "problem_education"
	CategoryProblemStaff     ReportCategory = "problem_staff"
	CategorySuggestion       ReportCategory = "suggestion"
	CategoryFeedback         ReportCategory = "feedback"
)

// ParseCategory validates a raw category value.
func ParseCategory(raw string) (ReportCategory, error) {
	switch ReportCategory(raw) {
	case CategoryProblemFacility, CategoryProblemEducation, CategoryProblemStaff,
		CategorySuggestion, CategoryFeedback:
		return ReportCategory(raw), nil
	}
	return "", fmt.Errorf("unknown report category %q", raw)
}

// Label returns a human-readable name for outbound messages.
func (c ReportCategory) Label() string {
	switch c {
	case CategoryProblemFacility:
		return "Facility / equipment problem"
	case CategoryProblemEducation:
		return "Education process problem"
	case CategoryProblemStaff:
		return "Staff problem"
	case CategorySuggestion:
		return "Suggestion"
	case CategoryFeedback:
		return "Feedback"
	}
	return string(c)
}

// Report is the aggregate tracked through the feedback lifecycle.
//
// Invariants: status=pending iff the assignee fields and ClaimedAt are unset;
// status=in_progress iff an assignee is set and ResolutionText is unset;
// status=completed iff ResolutionText and CompletedAt are set. Assignee and
// resolution are written exactly once, by the store's conditional updates.
type Report struct {
	ID             int64
	ReporterID     int64
	ReporterName   string
	Category       ReportCategory
	Text           string
	AttachmentRef  *string
	Status         ReportStatus
	AssigneeID     *int64
	AssigneeName   *string
	ResolutionText *string
	// AnnouncementMessageID is the chat message id of the admin-group
	// announcement, kept so the claim flow can edit it in place.
	AnnouncementMessageID *int
	CreatedAt             time.Time
	ClaimedAt             *time.Time
	CompletedAt           *time.Time
}

// CanTransition reports whether the status change is legal.
// The only reachable path is pending -> in_progress -> completed.
func CanTransition(current, next ReportStatus) bool {
	switch current {
	case ReportStatusPending:
		return next == ReportStatusInProgress
	case ReportStatusInProgress:
		return next == ReportStatusCompleted
	}
	return false
}

// ReportStats aggregates report counts by status.
type ReportStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}
