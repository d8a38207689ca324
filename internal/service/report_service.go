package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/investinkids/feedback-service/internal/domain"
	"github.com/investinkids/feedback-service/internal/events"
	"github.com/investinkids/feedback-service/internal/repository"
	apperrors "github.com/investinkids/feedback-service/pkg/util"
)

// listDisplayCap bounds how many rows the read operations hand back to the
// chat front end. The store itself is uncapped for these queries.
const listDisplayCap = 20

const (
	statsCacheKey = "reports:stats"
	statsCacheTTL = 30 * time.Second
)

// ReportService drives the report lifecycle: pending -> in_progress ->
// completed, with the store's conditional updates as the only concurrency
// guard. Notifications ride on events published strictly after the store
// mutation committed.
type ReportService struct {
	store      repository.ReportStore
	dispatcher events.Dispatcher
	cache      *redis.Client
	logger     *zap.Logger
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	Store      repository.ReportStore
	Dispatcher events.Dispatcher
	Cache      *redis.Client
	Logger     *zap.Logger
}

// SubmitInput describes a new report.
type SubmitInput struct {
	ReporterID    int64
	ReporterName  string
	Category      string
	Text          string
	AttachmentRef *string
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		logger:     deps.Logger,
	}
}

// Submit persists a new pending report and announces it. The report is
// committed before any notification goes out; delivery problems are the
// notification side's to absorb.
func (s *ReportService) Submit(ctx context.Context, input SubmitInput) (*domain.Report, error) {
	if input.ReporterID == 0 || strings.TrimSpace(input.ReporterName) == "" {
		return nil, apperrors.NewValidationError("reporter_id and reporter_name required", nil)
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("text required", nil)
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": input.Category})
	}

	report := &domain.Report{
		ReporterID:    input.ReporterID,
		ReporterName:  strings.TrimSpace(input.ReporterName),
		Category:      category,
		Text:          text,
		AttachmentRef: input.AttachmentRef,
		Status:        domain.ReportStatusPending,
	}
	if err := s.store.Create(ctx, report); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateStats(ctx)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportSubmitted,
		ReportID: report.ID,
		Payload: events.ReportSubmittedPayload{
			ReporterID:    report.ReporterID,
			ReporterName:  report.ReporterName,
			Category:      report.Category,
			Text:          report.Text,
			AttachmentRef: report.AttachmentRef,
		},
	})
	return report, nil
}

// Claim makes the actor the sole assignee of a pending report. The store's
// conditional update decides the race; on loss the current row is read only
// to name the winner in the rejection.
func (s *ReportService) Claim(ctx context.Context, id, actorID int64, actorName string) (*domain.Report, error) {
	if id <= 0 {
		return nil, apperrors.NewValidationError("invalid report id", nil)
	}
	if actorID == 0 || strings.TrimSpace(actorName) == "" {
		return nil, apperrors.NewValidationError("actor_id and actor_name required", nil)
	}

	claimed, err := s.store.Claim(ctx, id, actorID, strings.TrimSpace(actorName))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !claimed {
		report, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if report == nil {
			return nil, apperrors.NewNotFound("report", map[string]any{"report_id": id})
		}
		holder := ""
		if report.AssigneeName != nil {
			holder = *report.AssigneeName
		}
		return nil, apperrors.NewConflict("already taken by "+holder, map[string]any{
			"report_id":     id,
			"assignee_name": holder,
			"status":        report.Status,
		})
	}

	report, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateStats(ctx)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportClaimed,
		ReportID: id,
		Payload: events.ReportClaimedPayload{
			AssigneeID:   actorID,
			AssigneeName: strings.TrimSpace(actorName),
		},
	})
	return report, nil
}

// Complete records the resolution. Only the recorded assignee may complete;
// there is no administrative override.
func (s *ReportService) Complete(ctx context.Context, id, actorID int64, resolution string) (*domain.Report, error) {
	if id <= 0 {
		return nil, apperrors.NewValidationError("invalid report id", nil)
	}
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, apperrors.NewValidationError("resolution_text required", nil)
	}

	report, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if report == nil {
		return nil, apperrors.NewNotFound("report", map[string]any{"report_id": id})
	}
	if report.Status == domain.ReportStatusCompleted {
		details := map[string]any{"report_id": id}
		if report.AssigneeName != nil {
			details["assignee_name"] = *report.AssigneeName
		}
		if report.CompletedAt != nil {
			details["completed_at"] = *report.CompletedAt
		}
		return nil, apperrors.NewConflict("already completed", details)
	}
	if report.AssigneeID == nil || *report.AssigneeID != actorID {
		holder := ""
		if report.AssigneeName != nil {
			holder = *report.AssigneeName
		}
		return nil, apperrors.NewForbidden("not your assignment; assigned to " + holder)
	}

	done, err := s.store.Complete(ctx, id, resolution)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !done {
		// Lost a race with another completion between the read above and
		// the conditional update.
		return nil, apperrors.NewConflict("already completed", map[string]any{"report_id": id})
	}

	report, err = s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateStats(ctx)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportCompleted,
		ReportID: id,
		Payload: events.ReportCompletedPayload{
			AssigneeID:     actorID,
			AssigneeName:   deref(report.AssigneeName),
			ResolutionText: resolution,
		},
	})
	return report, nil
}

// Get fetches one report.
func (s *ReportService) Get(ctx context.Context, id int64) (*domain.Report, error) {
	report, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if report == nil {
		return nil, apperrors.NewNotFound("report", map[string]any{"report_id": id})
	}
	return report, nil
}

// ListByStatus returns the newest reports in the given status.
func (s *ReportService) ListByStatus(ctx context.Context, status domain.ReportStatus) ([]domain.Report, error) {
	reports, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return capList(reports), nil
}

// ListByReporter returns the newest reports submitted by a reporter.
func (s *ReportService) ListByReporter(ctx context.Context, reporterID int64) ([]domain.Report, error) {
	reports, err := s.store.ListByReporter(ctx, reporterID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return capList(reports), nil
}

// ListByAssignee returns the newest reports claimed by an administrator.
func (s *ReportService) ListByAssignee(ctx context.Context, assigneeID int64) ([]domain.Report, error) {
	reports, err := s.store.ListByAssignee(ctx, assigneeID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return capList(reports), nil
}

// Search matches text, reporter name and category; the store caps results.
func (s *ReportService) Search(ctx context.Context, term string) ([]domain.Report, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.NewValidationError("search term required", nil)
	}
	reports, err := s.store.Search(ctx, term)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reports, nil
}

// Stats returns report counts, served from a short-lived Redis cache when
// one is configured. Cache trouble falls through to the store.
func (s *ReportService) Stats(ctx context.Context) (*domain.ReportStats, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, statsCacheKey).Bytes()
		if err == nil {
			var cached domain.ReportStats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Debug("stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, raw, statsCacheTTL).Err(); err != nil {
				s.logger.Debug("stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// Purge permanently removes a report. Administrative operation, not part of
// the lifecycle.
func (s *ReportService) Purge(ctx context.Context, id int64) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !deleted {
		return apperrors.NewNotFound("report", map[string]any{"report_id": id})
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *ReportService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Debug("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *ReportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func capList(reports []domain.Report) []domain.Report {
	if len(reports) > listDisplayCap {
		return reports[:listDisplayCap]
	}
	return reports
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
