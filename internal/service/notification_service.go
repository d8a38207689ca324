package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/investinkids/feedback-service/internal/domain"
	"github.com/investinkids/feedback-service/internal/events"
	"github.com/investinkids/feedback-service/internal/gateway"
	"github.com/investinkids/feedback-service/internal/observability"
	"github.com/investinkids/feedback-service/internal/repository"
)

const timeLayout = "02.01.2006 15:04"

// NotificationService renders outbound messages for lifecycle events and
// drives the notification gateway. Every delivery failure here is absorbed:
// logged and counted, never propagated back into the lifecycle.
type NotificationService struct {
	store       repository.ReportStore
	notifier    gateway.Notifier
	adminChatID int64
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(store repository.ReportStore, notifier gateway.Notifier, adminChatID int64, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		store:       store,
		notifier:    notifier,
		adminChatID: adminChatID,
		logger:      logger,
		metrics:     metrics,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventReportSubmitted, n.handleReportSubmitted)
	dispatcher.Subscribe(events.EventReportClaimed, n.handleReportClaimed)
	dispatcher.Subscribe(events.EventReportCompleted, n.handleReportCompleted)
}

// handleReportSubmitted announces the report to the admin group and
// acknowledges the reporter. The report is already persisted; an undeliverable
// announcement only earns the reporter a fallback notice.
func (n *NotificationService) handleReportSubmitted(ctx context.Context, event events.Event) error {
	report, err := n.store.GetByID(ctx, event.ReportID)
	if err != nil || report == nil {
		n.logger.Error("announce: report lookup failed", zap.Int64("report_id", event.ReportID), zap.Error(err))
		return nil
	}

	messageID, err := n.notifier.Send(ctx, n.adminChatID, renderAnnouncement(report), attachmentOf(report))
	if err != nil {
		n.record("announcement", false)
		n.logger.Warn("admin-group announcement failed",
			zap.Int64("report_id", report.ID), zap.Error(err))
		n.send(ctx, report.ReporterID,
			fmt.Sprintf("Your report #%d was saved, but delivery to our staff is delayed. They will still see it.", report.ID),
			"", "fallback_notice")
	} else {
		n.record("announcement", true)
		if err := n.store.SetAnnouncement(ctx, report.ID, messageID); err != nil {
			n.logger.Warn("failed to record announcement message id",
				zap.Int64("report_id", report.ID), zap.Error(err))
		}
	}

	n.send(ctx, report.ReporterID, renderReporterAck(report), "", "reporter_ack")
	return nil
}

// handleReportClaimed confirms to the new assignee and rewrites the original
// admin-group announcement in place so the group sees who took it.
func (n *NotificationService) handleReportClaimed(ctx context.Context, event events.Event) error {
	report, err := n.store.GetByID(ctx, event.ReportID)
	if err != nil || report == nil {
		n.logger.Error("claim notice: report lookup failed", zap.Int64("report_id", event.ReportID), zap.Error(err))
		return nil
	}

	if report.AssigneeID != nil {
		n.send(ctx, *report.AssigneeID, renderClaimConfirmation(report), attachmentOf(report), "claim_confirmation")
	}

	if report.AnnouncementMessageID != nil {
		if err := n.notifier.Edit(ctx, n.adminChatID, *report.AnnouncementMessageID, renderAnnouncementClaimed(report)); err != nil {
			n.record("announcement_edit", false)
			n.logger.Warn("failed to update admin-group announcement",
				zap.Int64("report_id", report.ID), zap.Error(err))
		} else {
			n.record("announcement_edit", true)
		}
	}
	return nil
}

// handleReportCompleted sends the resolution to the reporter and a short
// acknowledgment to the resolving administrator.
func (n *NotificationService) handleReportCompleted(ctx context.Context, event events.Event) error {
	report, err := n.store.GetByID(ctx, event.ReportID)
	if err != nil || report == nil {
		n.logger.Error("completion notice: report lookup failed", zap.Int64("report_id", event.ReportID), zap.Error(err))
		return nil
	}

	n.send(ctx, report.ReporterID, renderResolutionNotice(report), "", "resolution_notice")
	if report.AssigneeID != nil {
		n.send(ctx, *report.AssigneeID,
			fmt.Sprintf("Report #%d closed. The reporter has been notified.", report.ID),
			"", "completion_ack")
	}
	return nil
}

// NotifyStale sends a single admin-group reminder for an overdue pending
// report. Unlike the event handlers this returns the delivery error, so the
// scheduler can retry on the next sweep instead of marking the report
// reminded.
func (n *NotificationService) NotifyStale(ctx context.Context, report domain.Report, elapsed time.Duration) error {
	_, err := n.notifier.Send(ctx, n.adminChatID, renderReminder(&report, elapsed), attachmentOf(&report))
	n.record("reminder", err == nil)
	return err
}

func (n *NotificationService) send(ctx context.Context, chatID int64, text, attachmentRef, kind string) {
	if _, err := n.notifier.Send(ctx, chatID, text, attachmentRef); err != nil {
		n.record(kind, false)
		n.logger.Warn("notification delivery failed",
			zap.String("kind", kind), zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	n.record(kind, true)
}

func (n *NotificationService) record(kind string, delivered bool) {
	if n.metrics != nil {
		n.metrics.RecordNotification(kind, delivered)
	}
}

func attachmentOf(report *domain.Report) string {
	if report.AttachmentRef == nil {
		return ""
	}
	return *report.AttachmentRef
}

func renderAnnouncement(report *domain.Report) string {
	return fmt.Sprintf(
		"New report #%d\nFrom: %s (id %d)\nCategory: %s\nCreated: %s\n\n%s\n\nClaim it with /claim_%d",
		report.ID,
		report.ReporterName,
		report.ReporterID,
		report.Category.Label(),
		report.CreatedAt.Format(timeLayout),
		report.Text,
		report.ID,
	)
}

func renderAnnouncementClaimed(report *domain.Report) string {
	claimedAt := ""
	if report.ClaimedAt != nil {
		claimedAt = report.ClaimedAt.Format(timeLayout)
	}
	return fmt.Sprintf(
		"Report #%d\nFrom: %s (id %d)\nCategory: %s\nCreated: %s\n\n%s\n\nIn progress: %s (since %s)",
		report.ID,
		report.ReporterName,
		report.ReporterID,
		report.Category.Label(),
		report.CreatedAt.Format(timeLayout),
		report.Text,
		deref(report.AssigneeName),
		claimedAt,
	)
}

func renderReporterAck(report *domain.Report) string {
	return fmt.Sprintf(
		"Your report #%d has been received.\nCategory: %s\n\nWe will get back to you as soon as possible.",
		report.ID,
		report.Category.Label(),
	)
}

func renderClaimConfirmation(report *domain.Report) string {
	return fmt.Sprintf(
		"You took report #%d.\nFrom: %s (id %d)\nCategory: %s\nCreated: %s\n\n%s\n\nWhen done, complete it with:\n/complete_%d <your resolution>",
		report.ID,
		report.ReporterName,
		report.ReporterID,
		report.Category.Label(),
		report.CreatedAt.Format(timeLayout),
		report.Text,
		report.ID,
	)
}

func renderResolutionNotice(report *domain.Report) string {
	return fmt.Sprintf(
		"Your report #%d is resolved.\nCategory: %s\n\nYour message:\n%s\n\nResolution (%s):\n%s\n\nThank you for your feedback.",
		report.ID,
		report.Category.Label(),
		report.Text,
		deref(report.AssigneeName),
		deref(report.ResolutionText),
	)
}

func renderReminder(report *domain.Report, elapsed time.Duration) string {
	return fmt.Sprintf(
		"Reminder: report #%d has been pending for %s.\nFrom: %s\nCategory: %s\nCreated: %s\n\n%s\n\nClaim it with /claim_%d",
		report.ID,
		formatElapsed(elapsed),
		report.ReporterName,
		report.Category.Label(),
		report.CreatedAt.Format(timeLayout),
		preview(report.Text, 150),
		report.ID,
	)
}

func formatElapsed(elapsed time.Duration) string {
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
