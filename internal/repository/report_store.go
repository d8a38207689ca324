package repository

import (
	"context"
	"time"

	"github.com/investinkids/feedback-service/internal/domain"
)

// SearchLimit caps the number of rows returned by Search.
const SearchLimit = 50

// ReportStore encapsulates report persistence.
//
// Claim and Complete are conditional updates: they mutate the row only when
// it is in the expected state and report success through the bool result.
// This affected-row check is the single concurrency guard for the
// at-most-one-assignee invariant; callers must never read-then-write status
// around it.
type ReportStore interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id int64) (*domain.Report, error)
	Claim(ctx context.Context, id, assigneeID int64, assigneeName string) (bool, error)
	Complete(ctx context.Context, id int64, resolution string) (bool, error)
	SetAnnouncement(ctx context.Context, id int64, messageID int) error
	ListByStatus(ctx context.Context, status domain.ReportStatus) ([]domain.Report, error)
	ListByReporter(ctx context.Context, reporterID int64) ([]domain.Report, error)
	ListByAssignee(ctx context.Context, assigneeID int64) ([]domain.Report, error)
	ListStalePending(ctx context.Context, threshold time.Duration) ([]domain.Report, error)
	Search(ctx context.Context, term string) ([]domain.Report, error)
	Stats(ctx context.Context) (*domain.ReportStats, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
