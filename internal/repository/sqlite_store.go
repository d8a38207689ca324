package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/investinkids/feedback-service/internal/domain"
)

// sqliteReportStore is the embedded backend used for development and tests.
// Timestamps are assigned in Go (UTC) because SQLite has no NOW() with
// timezone semantics worth relying on.
type sqliteReportStore struct {
	db *sql.DB
}

// NewSQLiteReportStore instantiates the database/sql-backed store.
func NewSQLiteReportStore(db *sql.DB) ReportStore {
	return &sqliteReportStore{db: db}
}

func (r *sqliteReportStore) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (reporter_id, reporter_name, category, report_text, attachment_ref, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query,
		report.ReporterID,
		report.ReporterName,
		report.Category,
		report.Text,
		report.AttachmentRef,
		domain.ReportStatusPending,
		now,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	report.ID = id
	report.CreatedAt = now
	report.Status = domain.ReportStatusPending
	return nil
}

func (r *sqliteReportStore) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id=?`
	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return report, nil
}

func (r *sqliteReportStore) Claim(ctx context.Context, id, assigneeID int64, assigneeName string) (bool, error) {
	const query = `
        UPDATE reports
        SET status=?, assignee_id=?, assignee_name=?, claimed_at=?
        WHERE id=? AND status=?`
	res, err := r.db.ExecContext(ctx, query,
		domain.ReportStatusInProgress, assigneeID, assigneeName, time.Now().UTC(),
		id, domain.ReportStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *sqliteReportStore) Complete(ctx context.Context, id int64, resolution string) (bool, error) {
	const query = `
        UPDATE reports
        SET status=?, resolution_text=?, completed_at=?
        WHERE id=? AND status=?`
	res, err := r.db.ExecContext(ctx, query,
		domain.ReportStatusCompleted, resolution, time.Now().UTC(),
		id, domain.ReportStatusInProgress)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *sqliteReportStore) SetAnnouncement(ctx context.Context, id int64, messageID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reports SET announcement_message_id=? WHERE id=?`, messageID, id)
	return err
}

func (r *sqliteReportStore) ListByStatus(ctx context.Context, status domain.ReportStatus) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE status=? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, status)
}

func (r *sqliteReportStore) ListByReporter(ctx context.Context, reporterID int64) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE reporter_id=? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, reporterID)
}

func (r *sqliteReportStore) ListByAssignee(ctx context.Context, assigneeID int64) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE assignee_id=? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, assigneeID)
}

func (r *sqliteReportStore) ListStalePending(ctx context.Context, threshold time.Duration) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + `
        FROM reports
        WHERE status=? AND created_at <= ?
        ORDER BY created_at ASC, id ASC`
	cutoff := time.Now().UTC().Add(-threshold)
	return r.list(ctx, query, domain.ReportStatusPending, cutoff)
}

func (r *sqliteReportStore) Search(ctx context.Context, term string) ([]domain.Report, error) {
	// LIKE is case-insensitive for ASCII in SQLite by default; LOWER keeps
	// the behavior aligned with the Postgres ILIKE variant.
	query := `SELECT ` + reportColumns + `
        FROM reports
        WHERE LOWER(report_text) LIKE ? OR LOWER(reporter_name) LIKE ? OR LOWER(category) LIKE ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?`
	pattern := "%" + strings.ToLower(term) + "%"
	return r.list(ctx, query, pattern, pattern, pattern, SearchLimit)
}

func (r *sqliteReportStore) Stats(ctx context.Context) (*domain.ReportStats, error) {
	const query = `
        SELECT
            COUNT(*),
            COUNT(CASE WHEN status=? THEN 1 END),
            COUNT(CASE WHEN status=? THEN 1 END),
            COUNT(CASE WHEN status=? THEN 1 END)
        FROM reports`
	var stats domain.ReportStats
	err := r.db.QueryRowContext(ctx, query,
		domain.ReportStatusPending, domain.ReportStatusInProgress, domain.ReportStatusCompleted,
	).Scan(&stats.Total, &stats.Pending, &stats.InProgress, &stats.Completed)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *sqliteReportStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *sqliteReportStore) list(ctx context.Context, query string, args ...any) ([]domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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
