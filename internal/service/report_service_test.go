package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/investinkids/feedback-service/internal/domain"
	"github.com/investinkids/feedback-service/internal/events"
	"github.com/investinkids/feedback-service/internal/observability"
	"github.com/investinkids/feedback-service/internal/persistence"
	"github.com/investinkids/feedback-service/internal/repository"
	apperrors "github.com/investinkids/feedback-service/pkg/util"
)

type sentMessage struct {
	ChatID        int64
	Text          string
	AttachmentRef string
	MessageID     int
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
}

// fakeNotifier records deliveries and can be told to fail for specific chats.
type fakeNotifier struct {
	mu        sync.Mutex
	sends     []sentMessage
	edits     []editedMessage
	failChats map[int64]bool
	nextID    int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failChats: make(map[int64]bool)}
}

func (f *fakeNotifier) Send(_ context.Context, chatID int64, text, attachmentRef string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChats[chatID] {
		return 0, errors.New("delivery refused")
	}
	f.nextID++
	f.sends = append(f.sends, sentMessage{ChatID: chatID, Text: text, AttachmentRef: attachmentRef, MessageID: f.nextID})
	return f.nextID, nil
}

func (f *fakeNotifier) Edit(_ context.Context, chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChats[chatID] {
		return errors.New("edit refused")
	}
	f.edits = append(f.edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (f *fakeNotifier) failChat(chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failChats[chatID] = true
}

func (f *fakeNotifier) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sends {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

const testAdminChat int64 = -500

type testEnv struct {
	service  *ReportService
	store    repository.ReportStore
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := persistence.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := repository.NewSQLiteReportStore(db)
	notifier := newFakeNotifier()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(store, notifier, testAdminChat, logger, metrics).RegisterHandlers(dispatcher)

	svc := NewReportService(ReportDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	return &testEnv{service: svc, store: store, notifier: notifier}
}

func submit(t *testing.T, env *testEnv, reporterID int64, reporterName, text string) *domain.Report {
	t.Helper()

	report, err := env.service.Submit(context.Background(), SubmitInput{
		ReporterID:   reporterID,
		ReporterName: reporterName,
		Category:     "problem_facility",
		Text:         text,
	})
	require.NoError(t, err)
	return report
}

func requireDomainError(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
	return domainErr
}

func TestSubmitAnnouncesAndAcknowledges(t *testing.T) {
	env := newTestEnv(t)

	report := submit(t, env, 100, "Alice", "the gym door is broken")
	require.Equal(t, domain.ReportStatusPending, report.Status)

	adminMsgs := env.notifier.sentTo(testAdminChat)
	require.Len(t, adminMsgs, 1)
	require.Contains(t, adminMsgs[0].Text, "New report #1")
	require.Contains(t, adminMsgs[0].Text, "/claim_1")
	require.Contains(t, adminMsgs[0].Text, "Alice")

	reporterMsgs := env.notifier.sentTo(100)
	require.Len(t, reporterMsgs, 1)
	require.Contains(t, reporterMsgs[0].Text, "has been received")

	// The announcement message id is recorded for later in-place edits.
	loaded, err := env.store.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.AnnouncementMessageID)
	require.Equal(t, adminMsgs[0].MessageID, *loaded.AnnouncementMessageID)
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Submit(ctx, SubmitInput{ReporterID: 100, ReporterName: "Alice", Category: "problem_facility", Text: "   "})
	requireDomainError(t, err, "VALIDATION_FAILED")

	_, err = env.service.Submit(ctx, SubmitInput{ReporterID: 100, ReporterName: "Alice", Category: "not_a_category", Text: "hello"})
	requireDomainError(t, err, "VALIDATION_FAILED")

	_, err = env.service.Submit(ctx, SubmitInput{ReporterName: "Alice", Category: "problem_facility", Text: "hello"})
	requireDomainError(t, err, "VALIDATION_FAILED")
}

func TestSubmitSurvivesAnnouncementFailure(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.failChat(testAdminChat)

	report := submit(t, env, 100, "Alice", "broken door")

	// The report is persisted despite the undeliverable announcement.
	loaded, err := env.store.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, domain.ReportStatusPending, loaded.Status)
	require.Nil(t, loaded.AnnouncementMessageID)

	// The reporter gets a fallback notice plus the usual acknowledgment.
	reporterMsgs := env.notifier.sentTo(100)
	require.Len(t, reporterMsgs, 2)
	require.Contains(t, reporterMsgs[0].Text, "delivery to our staff is delayed")
	require.Contains(t, reporterMsgs[1].Text, "has been received")
}

func TestClaimAssignsAndEditsAnnouncement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "broken door")

	claimed, err := env.service.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusInProgress, claimed.Status)
	require.Equal(t, int64(200), *claimed.AssigneeID)

	// The assignee gets a confirmation with the completion affordance.
	assigneeMsgs := env.notifier.sentTo(200)
	require.Len(t, assigneeMsgs, 1)
	require.Contains(t, assigneeMsgs[0].Text, "/complete_1")

	// The original admin-group announcement is rewritten in place.
	require.Len(t, env.notifier.edits, 1)
	require.Equal(t, testAdminChat, env.notifier.edits[0].ChatID)
	require.Equal(t, *claimed.AnnouncementMessageID, env.notifier.edits[0].MessageID)
	require.Contains(t, env.notifier.edits[0].Text, "In progress: Admin A")
}

func TestClaimRejectsSecondClaimant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "broken door")

	_, err := env.service.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)

	_, err = env.service.Claim(ctx, report.ID, 201, "Admin B")
	domainErr := requireDomainError(t, err, "CONFLICT")
	require.Contains(t, domainErr.Message, "already taken by Admin A")
	require.Equal(t, "Admin A", domainErr.Details["assignee_name"])

	// The loser's attempt leaves the assignment untouched.
	loaded, err := env.store.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, int64(200), *loaded.AssigneeID)
}

func TestClaimMissingReport(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Claim(context.Background(), 42, 200, "Admin A")
	requireDomainError(t, err, "NOT_FOUND")
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "broken door")

	const claimants = 8
	var wg sync.WaitGroup
	errs := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.service.Claim(ctx, report.ID, int64(200+i), "Admin")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			requireDomainError(t, err, "CONFLICT")
		}
	}
	require.Equal(t, 1, winners)
}

func TestCompleteHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "broken door")
	_, err := env.service.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)

	completed, err := env.service.Complete(ctx, report.ID, 200, "replaced the hinge")
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusCompleted, completed.Status)
	require.Equal(t, "replaced the hinge", *completed.ResolutionText)

	// Reporter sees the resolution, assignee gets a closing ack.
	reporterMsgs := env.notifier.sentTo(100)
	last := reporterMsgs[len(reporterMsgs)-1]
	require.Contains(t, last.Text, "is resolved")
	require.Contains(t, last.Text, "replaced the hinge")

	assigneeMsgs := env.notifier.sentTo(200)
	require.Contains(t, assigneeMsgs[len(assigneeMsgs)-1].Text, "Report #1 closed")
}

func TestCompleteByWrongActorForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "broken door")
	_, err := env.service.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)

	_, err = env.service.Complete(ctx, report.ID, 201, "not mine to close")
	domainErr := requireDomainError(t, err, "FORBIDDEN")
	require.Contains(t, domainErr.Message, "Admin A")

	// Rejected completion leaves the report in progress.
	loaded, err := env.store.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusInProgress, loaded.Status)
	require.Nil(t, loaded.ResolutionText)
}

func TestCompleteUnclaimedForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "broken door")

	_, err := env.service.Complete(ctx, report.ID, 200, "too eager")
	requireDomainError(t, err, "FORBIDDEN")
}

func TestCompleteTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "broken door")
	_, err := env.service.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)
	_, err = env.service.Complete(ctx, report.ID, 200, "fixed")
	require.NoError(t, err)

	_, err = env.service.Complete(ctx, report.ID, 200, "fixed again")
	domainErr := requireDomainError(t, err, "CONFLICT")
	require.Contains(t, domainErr.Message, "already completed")
	require.Equal(t, "Admin A", domainErr.Details["assignee_name"])

	// First resolution text wins.
	loaded, err := env.store.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, "fixed", *loaded.ResolutionText)
}

func TestLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "the water fountain leaks")

	_, err := env.service.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)

	_, err = env.service.Claim(ctx, report.ID, 201, "Admin B")
	requireDomainError(t, err, "CONFLICT")

	_, err = env.service.Complete(ctx, report.ID, 200, "tightened the valve")
	require.NoError(t, err)

	final, err := env.service.Get(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusCompleted, final.Status)
	require.Equal(t, "Admin A", *final.AssigneeName)
	require.Equal(t, "tightened the valve", *final.ResolutionText)
	require.NotNil(t, final.ClaimedAt)
	require.NotNil(t, final.CompletedAt)
}

func TestListByStatusCapped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < listDisplayCap+5; i++ {
		submit(t, env, int64(100+i), "Reporter", "report body")
	}

	reports, err := env.service.ListByStatus(ctx, domain.ReportStatusPending)
	require.NoError(t, err)
	require.Len(t, reports, listDisplayCap)
}

func TestSearchRequiresTerm(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Search(context.Background(), "   ")
	requireDomainError(t, err, "VALIDATION_FAILED")
}

func TestStatsWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	submit(t, env, 100, "Alice", "one")
	report := submit(t, env, 101, "Bob", "two")
	_, err := env.service.Claim(ctx, report.ID, 200, "Admin A")
	require.NoError(t, err)

	stats, err := env.service.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.Pending)
	require.Equal(t, int64(1), stats.InProgress)
	require.Equal(t, int64(0), stats.Completed)
}

func TestPurge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := submit(t, env, 100, "Alice", "remove me")

	require.NoError(t, env.service.Purge(ctx, report.ID))

	_, err := env.service.Get(ctx, report.ID)
	requireDomainError(t, err, "NOT_FOUND")

	err = env.service.Purge(ctx, report.ID)
	requireDomainError(t, err, "NOT_FOUND")
}

func TestPreview(t *testing.T) {
	require.Equal(t, "short", preview("short", 150))
	long := strings.Repeat("x", 200)
	got := preview(long, 150)
	require.Len(t, got, 150)
	require.True(t, strings.HasSuffix(got, "..."))
}
