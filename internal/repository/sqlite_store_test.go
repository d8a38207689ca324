package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/investinkids/feedback-service/internal/domain"
	"github.com/investinkids/feedback-service/internal/persistence"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) (ReportStore, *sql.DB) {
	t.Helper()

	db, err := persistence.NewSQLite(":memory:")
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})

	return NewSQLiteReportStore(db), db
}

func createReport(t *testing.T, store ReportStore, reporterID int64, reporterName, text string) *domain.Report {
	t.Helper()

	report := &domain.Report{
		ReporterID:   reporterID,
		ReporterName: reporterName,
		Category:     domain.CategoryProblemFacility,
		Text:         text,
	}
	require.NoError(t, store.Create(context.Background(), report))
	return report
}

// backdate rewrites created_at so staleness and ordering can be tested
// without sleeping.
func backdate(t *testing.T, db *sql.DB, id int64, age time.Duration) {
	t.Helper()

	_, err := db.Exec(`UPDATE reports SET created_at=? WHERE id=?`,
		time.Now().UTC().Add(-age), id)
	require.NoError(t, err)
}

func TestCreateAssignsIDAndPendingStatus(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	report := createReport(t, store, 100, "Alice", "broken door")
	require.Equal(t, int64(1), report.ID)
	require.Equal(t, domain.ReportStatusPending, report.Status)
	require.False(t, report.CreatedAt.IsZero())

	second := createReport(t, store, 100, "Alice", "another one")
	require.Equal(t, int64(2), second.ID)

	loaded, err := store.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, report.ReporterID, loaded.ReporterID)
	require.Equal(t, report.Text, loaded.Text)
	require.Nil(t, loaded.AssigneeID)
	require.Nil(t, loaded.ClaimedAt)
	require.Nil(t, loaded.ResolutionText)
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	report, err := store.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.Nil(t, report)
}

func TestClaimIsConditional(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	report := createReport(t, store, 100, "Alice", "broken door")

	claimed, err := store.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)
	require.True(t, claimed)

	// Second claim loses: the row is no longer pending.
	claimed, err = store.Claim(ctx, report.ID, 201, "Admin B")
	require.NoError(t, err)
	require.False(t, claimed)

	loaded, err := store.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusInProgress, loaded.Status)
	require.Equal(t, int64(200), *loaded.AssigneeID)
	require.Equal(t, "Admin A", *loaded.AssigneeName)
	require.NotNil(t, loaded.ClaimedAt)
	require.False(t, loaded.ClaimedAt.Before(loaded.CreatedAt))
}

func TestClaimMissingReport(t *testing.T) {
	store, _ := newTestStore(t)

	claimed, err := store.Claim(context.Background(), 42, 200, "Admin A")
	require.NoError(t, err)
	require.False(t, claimed)
}

func TestCompleteRequiresInProgress(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	report := createReport(t, store, 100, "Alice", "broken door")

	// Completing a pending report must not mutate it.
	done, err := store.Complete(ctx, report.ID, "fixed")
	require.NoError(t, err)
	require.False(t, done)

	claimed, err := store.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)
	require.True(t, claimed)

	done, err = store.Complete(ctx, report.ID, "fixed")
	require.NoError(t, err)
	require.True(t, done)

	// Second completion loses the conditional update.
	done, err = store.Complete(ctx, report.ID, "fixed again")
	require.NoError(t, err)
	require.False(t, done)

	loaded, err := store.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusCompleted, loaded.Status)
	require.Equal(t, "fixed", *loaded.ResolutionText)
	require.NotNil(t, loaded.CompletedAt)
	require.False(t, loaded.CompletedAt.Before(*loaded.ClaimedAt))
}

func TestSetAnnouncement(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	report := createReport(t, store, 100, "Alice", "broken door")
	require.NoError(t, store.SetAnnouncement(ctx, report.ID, 777))

	loaded, err := store.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, 777, *loaded.AnnouncementMessageID)
}

func TestListByStatusNewestFirst(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	oldest := createReport(t, store, 100, "Alice", "first")
	middle := createReport(t, store, 101, "Bob", "second")
	newest := createReport(t, store, 102, "Carol", "third")
	backdate(t, db, oldest.ID, 3*time.Hour)
	backdate(t, db, middle.ID, 2*time.Hour)
	backdate(t, db, newest.ID, time.Hour)

	pending, err := store.ListByStatus(ctx, domain.ReportStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, newest.ID, pending[0].ID)
	require.Equal(t, middle.ID, pending[1].ID)
	require.Equal(t, oldest.ID, pending[2].ID)

	claimed, err := store.Claim(ctx, middle.ID, 200, "Admin A")
	require.NoError(t, err)
	require.True(t, claimed)

	pending, err = store.ListByStatus(ctx, domain.ReportStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	inProgress, err := store.ListByStatus(ctx, domain.ReportStatusInProgress)
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	require.Equal(t, middle.ID, inProgress[0].ID)
}

func TestListByReporterAndAssignee(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	mine := createReport(t, store, 100, "Alice", "mine")
	createReport(t, store, 101, "Bob", "not mine")
	alsoMine := createReport(t, store, 100, "Alice", "also mine")

	byReporter, err := store.ListByReporter(ctx, 100)
	require.NoError(t, err)
	require.Len(t, byReporter, 2)
	require.Equal(t, alsoMine.ID, byReporter[0].ID)
	require.Equal(t, mine.ID, byReporter[1].ID)

	claimed, err := store.Claim(ctx, mine.ID, 200, "Admin A")
	require.NoError(t, err)
	require.True(t, claimed)

	byAssignee, err := store.ListByAssignee(ctx, 200)
	require.NoError(t, err)
	require.Len(t, byAssignee, 1)
	require.Equal(t, mine.ID, byAssignee[0].ID)

	byAssignee, err = store.ListByAssignee(ctx, 999)
	require.NoError(t, err)
	require.Empty(t, byAssignee)
}

func TestListStalePendingThresholdBoundary(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	stale := createReport(t, store, 100, "Alice", "sixty-one minutes old")
	fresh := createReport(t, store, 101, "Bob", "fifty-nine minutes old")
	backdate(t, db, stale.ID, 61*time.Minute)
	backdate(t, db, fresh.ID, 59*time.Minute)

	results, err := store.ListStalePending(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, stale.ID, results[0].ID)
}

func TestListStalePendingOldestFirstAndSkipsClaimed(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	older := createReport(t, store, 100, "Alice", "very old")
	newer := createReport(t, store, 101, "Bob", "old")
	claimedOne := createReport(t, store, 102, "Carol", "old but claimed")
	backdate(t, db, older.ID, 5*time.Hour)
	backdate(t, db, newer.ID, 2*time.Hour)
	backdate(t, db, claimedOne.ID, 4*time.Hour)

	ok, err := store.Claim(ctx, claimedOne.ID, 200, "Admin A")
	require.NoError(t, err)
	require.True(t, ok)

	results, err := store.ListStalePending(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, older.ID, results[0].ID)
	require.Equal(t, newer.ID, results[1].ID)
}

func TestSearchMatchesAcrossFieldsCaseInsensitive(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	createReport(t, store, 100, "Alice", "the BROKEN door")
	createReport(t, store, 101, "BrokenRecordBob", "all fine here")
	createReport(t, store, 102, "Carol", "nothing to see")

	results, err := store.Search(ctx, "broken")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Category substring matches too.
	results, err = store.Search(ctx, "FACILITY")
	require.NoError(t, err)
	require.Len(t, results, 3)

	results, err = store.Search(ctx, "no such thing")
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchCappedAt50NewestFirst(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		report := createReport(t, store, int64(100+i), "Reporter", fmt.Sprintf("needle item %d", i))
		backdate(t, db, report.ID, time.Duration(60-i)*time.Minute)
	}

	results, err := store.Search(ctx, "needle")
	require.NoError(t, err)
	require.Len(t, results, SearchLimit)
	// Newest first: the last inserted report was backdated the least.
	require.Equal(t, int64(60), results[0].ID)
}

func TestStats(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := createReport(t, store, 100, "Alice", "one")
	second := createReport(t, store, 101, "Bob", "two")
	createReport(t, store, 102, "Carol", "three")

	ok, err := store.Claim(ctx, first.ID, 200, "Admin A")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = store.Claim(ctx, second.ID, 200, "Admin A")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = store.Complete(ctx, second.ID, "done")
	require.NoError(t, err)
	require.True(t, ok)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.Total)
	require.Equal(t, int64(1), stats.Pending)
	require.Equal(t, int64(1), stats.InProgress)
	require.Equal(t, int64(1), stats.Completed)
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	report := createReport(t, store, 100, "Alice", "to be purged")

	deleted, err := store.Delete(ctx, report.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	loaded, err := store.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Nil(t, loaded)

	deleted, err = store.Delete(ctx, report.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}
