package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investinkids/feedback-service/internal/domain"
)

const reportColumns = `id, reporter_id, reporter_name, category, report_text, attachment_ref,
	status, assignee_id, assignee_name, resolution_text, announcement_message_id,
	created_at, claimed_at, completed_at`

type postgresReportStore struct {
	pool *pgxpool.Pool
}

// NewPostgresReportStore instantiates the pgx-backed store.
func NewPostgresReportStore(pool *pgxpool.Pool) ReportStore {
	return &postgresReportStore{pool: pool}
}

func (r *postgresReportStore) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (reporter_id, reporter_name, category, report_text, attachment_ref, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		report.ReporterID,
		report.ReporterName,
		report.Category,
		report.Text,
		report.AttachmentRef,
		domain.ReportStatusPending,
	).Scan(&report.ID, &report.CreatedAt)
}

func (r *postgresReportStore) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id=$1`
	report, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return report, nil
}

// Claim transitions pending -> in_progress only when the row is still
// pending. The WHERE guard makes concurrent claims race at the database,
// not in application code.
func (r *postgresReportStore) Claim(ctx context.Context, id, assigneeID int64, assigneeName string) (bool, error) {
	const query = `
        UPDATE reports
        SET status=$2, assignee_id=$3, assignee_name=$4, claimed_at=NOW()
        WHERE id=$1 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query,
		id, domain.ReportStatusInProgress, assigneeID, assigneeName, domain.ReportStatusPending)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresReportStore) Complete(ctx context.Context, id int64, resolution string) (bool, error) {
	const query = `
        UPDATE reports
        SET status=$2, resolution_text=$3, completed_at=NOW()
        WHERE id=$1 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query,
		id, domain.ReportStatusCompleted, resolution, domain.ReportStatusInProgress)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresReportStore) SetAnnouncement(ctx context.Context, id int64, messageID int) error {
	const query = `UPDATE reports SET announcement_message_id=$2 WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id, messageID)
	return err
}

func (r *postgresReportStore) ListByStatus(ctx context.Context, status domain.ReportStatus) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE status=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, status)
}

func (r *postgresReportStore) ListByReporter(ctx context.Context, reporterID int64) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE reporter_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, reporterID)
}

func (r *postgresReportStore) ListByAssignee(ctx context.Context, assigneeID int64) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE assignee_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, assigneeID)
}

// ListStalePending returns pending reports at least threshold old,
// oldest-first so the most overdue are surfaced before the rest.
func (r *postgresReportStore) ListStalePending(ctx context.Context, threshold time.Duration) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + `
        FROM reports
        WHERE status=$1 AND created_at <= $2
        ORDER BY created_at ASC`
	cutoff := time.Now().Add(-threshold)
	return r.list(ctx, query, domain.ReportStatusPending, cutoff)
}

func (r *postgresReportStore) Search(ctx context.Context, term string) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + `
        FROM reports
        WHERE report_text ILIKE $1 OR reporter_name ILIKE $1 OR category ILIKE $1
        ORDER BY created_at DESC
        LIMIT $2`
	return r.list(ctx, query, "%"+term+"%", SearchLimit)
}

func (r *postgresReportStore) Stats(ctx context.Context) (*domain.ReportStats, error) {
	const query = `
        SELECT
            COUNT(*),
            COUNT(CASE WHEN status=$1 THEN 1 END),
            COUNT(CASE WHEN status=$2 THEN 1 END),
            COUNT(CASE WHEN status=$3 THEN 1 END)
        FROM reports`
	var stats domain.ReportStats
	err := r.pool.QueryRow(ctx, query,
		domain.ReportStatusPending, domain.ReportStatusInProgress, domain.ReportStatusCompleted,
	).Scan(&stats.Total, &stats.Pending, &stats.InProgress, &stats.Completed)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *postgresReportStore) Delete(ctx context.Context, id int64) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresReportStore) list(ctx context.Context, query string, args ...any) ([]domain.Report, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&report.ReporterName,
		&report.Category,
		&report.Text,
		&report.AttachmentRef,
		&report.Status,
		&report.AssigneeID,
		&report.AssigneeName,
		&report.ResolutionText,
		&report.AnnouncementMessageID,
		&report.CreatedAt,
		&report.ClaimedAt,
		&report.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}
