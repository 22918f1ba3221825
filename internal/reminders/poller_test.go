package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/dbtest"
	"github.com/uof-cases/incident-service/internal/events"
	"github.com/uof-cases/incident-service/internal/models"
	"go.uber.org/goleak"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var tickTime = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type sentReminder struct {
	StatementID uuid.UUID
	Email       string
	Overdue     bool
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentReminder
	failOn map[uuid.UUID]bool
}

func (s *fakeSender) SendReminder(_ context.Context, _ *gorm.DB, st models.Statement, overdue bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[st.ID] {
		return errors.New("notify returned 500")
	}
	s.sent = append(s.sent, sentReminder{StatementID: st.ID, Email: st.Email, Overdue: overdue})
	return nil
}

type fakeResolver struct {
	emails map[string]string
	err    error
}

func (r *fakeResolver) ResolveEmail(_ context.Context, _ *gorm.DB, userID string, _ uuid.UUID) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.emails[userID], nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type pollerFixture struct {
	db       *gorm.DB
	poller   *Poller
	sender   *fakeSender
	resolver *fakeResolver
	events   *recorder
	reportID uuid.UUID
}

func newPollerFixture(t *testing.T) *pollerFixture {
	t.Helper()

	db := dbtest.New(t)
	f := &pollerFixture{
		db:       db,
		sender:   &fakeSender{failOn: map[uuid.UUID]bool{}},
		resolver: &fakeResolver{emails: map[string]string{}},
		events:   &recorder{},
		reportID: uuid.New(),
	}
	cfg := &config.Config{ReminderInterval: 24 * time.Hour, ReminderMaxIterations: 50}
	f.poller = NewPoller(db, cfg, f.sender, f.resolver, f.events).
		WithClock(func() time.Time { return tickTime })
	return f
}

func (f *pollerFixture) addStatement(t *testing.T, userID, email string, due time.Time, mutate ...func(*models.Statement)) models.Statement {
	t.Helper()
	st := models.Statement{
		ReportID:         f.reportID,
		UserID:           userID,
		Name:             userID,
		Email:            email,
		Status:           models.StatementPending,
		NextReminderDate: due,
		OverdueDate:      tickTime.Add(48 * time.Hour),
	}
	for _, m := range mutate {
		m(&st)
	}
	require.NoError(t, f.db.Create(&st).Error)
	return st
}

func (f *pollerFixture) nextReminder(t *testing.T, id uuid.UUID) time.Time {
	t.Helper()
	var st models.Statement
	require.NoError(t, f.db.Unscoped().First(&st, "id = ?", id).Error)
	return st.NextReminderDate
}

func TestRun_BoundedAndContinuesNextTick(t *testing.T) {
	f := newPollerFixture(t)
	for i := 0; i < 100; i++ {
		f.addStatement(t, fmt.Sprintf("USER%03d", i), fmt.Sprintf("user%03d@example.com", i),
			tickTime.Add(-time.Duration(i+1)*time.Minute))
	}
	ctx := context.Background()

	sent, err := f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, sent)

	sent, err = f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, sent)

	sent, err = f.poller.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	seen := map[uuid.UUID]bool{}
	for _, r := range f.sender.sent {
		assert.False(t, seen[r.StatementID], "statement %s reminded twice", r.StatementID)
		seen[r.StatementID] = true
	}
	assert.Len(t, seen, 100)

	var stillDue int64
	f.db.Model(&models.Statement{}).Where("next_reminder_date <= ?", tickTime).Count(&stillDue)
	assert.Zero(t, stillDue)
}

func TestRun_OldestFirstAndAdvancesDate(t *testing.T) {
	f := newPollerFixture(t)
	newer := f.addStatement(t, "NEWER", "newer@example.com", tickTime.Add(-time.Minute))
	older := f.addStatement(t, "OLDER", "older@example.com", tickTime.Add(-time.Hour))
	notDue := f.addStatement(t, "LATER", "later@example.com", tickTime.Add(time.Minute))

	sent, err := f.poller.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, older.ID, f.sender.sent[0].StatementID)
	assert.Equal(t, newer.ID, f.sender.sent[1].StatementID)

	assert.True(t, f.nextReminder(t, older.ID).Equal(tickTime.Add(24*time.Hour)))
	assert.True(t, f.nextReminder(t, notDue.ID).Equal(tickTime.Add(time.Minute)))
}

func TestRun_IgnoresSubmittedAndDeleted(t *testing.T) {
	f := newPollerFixture(t)
	now := tickTime
	f.addStatement(t, "DONE", "done@example.com", tickTime.Add(-time.Hour), func(st *models.Statement) {
		st.Status = models.StatementSubmitted
		st.SubmittedDate = &now
	})
	gone := f.addStatement(t, "GONE", "gone@example.com", tickTime.Add(-time.Hour))
	require.NoError(t, f.db.Delete(&gone).Error)

	sent, err := f.poller.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, f.sender.sent)
}

func TestRun_ResolvesOrSkipsMissingEmails(t *testing.T) {
	f := newPollerFixture(t)
	f.resolver.emails["FOUND"] = "found@example.com"
	unknown := f.addStatement(t, "UNKNOWN", "", tickTime.Add(-3*time.Hour))
	found := f.addStatement(t, "FOUND", "", tickTime.Add(-2*time.Hour))
	known := f.addStatement(t, "KNOWN", "known@example.com", tickTime.Add(-time.Hour))

	sent, err := f.poller.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, sentReminder{StatementID: found.ID, Email: "found@example.com"}, f.sender.sent[0])
	assert.Equal(t, known.ID, f.sender.sent[1].StatementID)

	assert.True(t, f.nextReminder(t, unknown.ID).Equal(unknown.NextReminderDate), "skipped statement keeps its date")
}

func TestRun_SkipsCountTowardsBound(t *testing.T) {
	f := newPollerFixture(t)
	f.poller.maxIterations = 3
	for i := 0; i < 3; i++ {
		f.addStatement(t, fmt.Sprintf("NOEMAIL%d", i), "", tickTime.Add(-time.Duration(10-i)*time.Minute))
	}
	f.addStatement(t, "KNOWN", "known@example.com", tickTime.Add(-time.Minute))

	sent, err := f.poller.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestRun_SendFailureRollsBackAndAborts(t *testing.T) {
	f := newPollerFixture(t)
	first := f.addStatement(t, "FIRST", "first@example.com", tickTime.Add(-3*time.Hour))
	failing := f.addStatement(t, "FAILING", "failing@example.com", tickTime.Add(-2*time.Hour))
	last := f.addStatement(t, "LAST", "last@example.com", tickTime.Add(-time.Hour))
	f.sender.failOn[failing.ID] = true

	sent, err := f.poller.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, sent)

	assert.True(t, f.nextReminder(t, first.ID).Equal(tickTime.Add(24*time.Hour)))
	assert.True(t, f.nextReminder(t, failing.ID).Equal(failing.NextReminderDate))
	assert.True(t, f.nextReminder(t, last.ID).Equal(last.NextReminderDate))

	for _, e := range f.events.events {
		assert.NotEqual(t, "StatementReminders.Finished", e.Name)
	}
}

func TestRun_ResolverErrorAborts(t *testing.T) {
	f := newPollerFixture(t)
	f.resolver.err = errors.New("database is closed")
	f.addStatement(t, "UNKNOWN", "", tickTime.Add(-time.Hour))

	_, err := f.poller.Run(context.Background())
	assert.ErrorContains(t, err, "database is closed")
}

func TestRun_OverdueFlag(t *testing.T) {
	f := newPollerFixture(t)
	f.addStatement(t, "LATE", "late@example.com", tickTime.Add(-time.Hour), func(st *models.Statement) {
		st.OverdueDate = tickTime.Add(-time.Minute)
	})
	f.addStatement(t, "ONTIME", "ontime@example.com", tickTime.Add(-time.Minute))

	_, err := f.poller.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.sender.sent, 2)
	assert.True(t, f.sender.sent[0].Overdue)
	assert.False(t, f.sender.sent[1].Overdue)
}

func TestRun_PublishesStartAndFinished(t *testing.T) {
	f := newPollerFixture(t)
	f.addStatement(t, "KNOWN", "known@example.com", tickTime.Add(-time.Hour))

	_, err := f.poller.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.events.events, 2)
	assert.Equal(t, "StatementReminders.Start", f.events.events[0].Name)
	assert.Equal(t, "StatementReminders.Finished", f.events.events[1].Name)
	assert.Equal(t, 1, f.events.events[1].Properties["totalSent"])
}

func TestRun_ConcurrentPollersRemindOnce(t *testing.T) {
	f := newPollerFixture(t)
	for i := 0; i < 20; i++ {
		f.addStatement(t, fmt.Sprintf("USER%02d", i), fmt.Sprintf("u%02d@example.com", i), tickTime.Add(-time.Minute))
	}

	other := NewPoller(f.db, &config.Config{ReminderInterval: 24 * time.Hour}, f.sender, f.resolver, f.events).
		WithClock(func() time.Time { return tickTime })

	var wg sync.WaitGroup
	totals := make([]int, 2)
	for i, p := range []*Poller{f.poller, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := p.Run(context.Background())
			assert.NoError(t, err)
			totals[i] = n
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, totals[0]+totals[1])
	assert.Len(t, f.sender.sent, 20)
}
