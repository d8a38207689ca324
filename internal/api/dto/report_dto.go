package dto

import (
	"time"

	"github.com/investinkids/feedback-service/internal/domain"
)

// SubmitReportRequest payload.
type SubmitReportRequest struct {
	ReporterID    int64   `json:"reporter_id"`
	ReporterName  string  `json:"reporter_name"`
	Category      string  `json:"category"`
	Text          string  `json:"text"`
	AttachmentRef *string `json:"attachment_ref,omitempty"`
}

// ClaimReportRequest payload.
type ClaimReportRequest struct {
	ActorID   int64  `json:"actor_id"`
	ActorName string `json:"actor_name"`
}

// CompleteReportRequest payload.
type CompleteReportRequest struct {
	ActorID        int64  `json:"actor_id"`
	ResolutionText string `json:"resolution_text"`
}

// ReportResponse mirrors the persistent report record.
type ReportResponse struct {
	ID             int64                 `json:"id"`
	ReporterID     int64                 `json:"reporter_id"`
	ReporterName   string                `json:"reporter_name"`
	Category       domain.ReportCategory `json:"category"`
	Text           string                `json:"text"`
	AttachmentRef  *string               `json:"attachment_ref,omitempty"`
	Status         domain.ReportStatus   `json:"status"`
	AssigneeID     *int64                `json:"assignee_id,omitempty"`
	AssigneeName   *string               `json:"assignee_name,omitempty"`
	ResolutionText *string               `json:"resolution_text,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	ClaimedAt      *time.Time            `json:"claimed_at,omitempty"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
}

// FromReport maps a domain report onto the response shape.
func FromReport(report *domain.Report) ReportResponse {
	return ReportResponse{
		ID:             report.ID,
		ReporterID:     report.ReporterID,
		ReporterName:   report.ReporterName,
		Category:       report.Category,
		Text:           report.Text,
		AttachmentRef:  report.AttachmentRef,
		Status:         report.Status,
		AssigneeID:     report.AssigneeID,
		AssigneeName:   report.AssigneeName,
		ResolutionText: report.ResolutionText,
		CreatedAt:      report.CreatedAt,
		ClaimedAt:      report.ClaimedAt,
		CompletedAt:    report.CompletedAt,
	}
}

// AttachmentUploadResponse returns the opaque ref for an uploaded object.
type AttachmentUploadResponse struct {
	AttachmentRef string `json:"attachment_ref"`
}
