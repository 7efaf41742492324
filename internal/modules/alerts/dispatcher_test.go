package alerts

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/internal/events"
	"github.com/aristath/newsguard/internal/modules/calendar"
	"github.com/aristath/newsguard/pkg/logger"
)

const testSchema = `
CREATE TABLE notification_ledger (
	key          TEXT PRIMARY KEY,
	event_id     TEXT NOT NULL,
	event_time   TEXT NOT NULL,
	delivered_at TEXT NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

type fakePrefs struct {
	mu    sync.Mutex
	prefs domain.Preferences
}

func (f *fakePrefs) Current() domain.Preferences {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs.Clone()
}

func (f *fakePrefs) SetNotificationsEnabled(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs.NotificationsEnabled = enabled
	return nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	permission Permission
	delivered  []string
	err        error
}

func (f *fakeNotifier) Permission() Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission
}

func (f *fakeNotifier) Notify(ctx context.Context, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, body)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

func newTestDispatcher(t *testing.T, prefs *fakePrefs, notifier *fakeNotifier) (*Dispatcher, *calendar.Repository) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	cal := calendar.New(log)
	ledger := NewLedger(setupTestDB(t), log)
	manager := events.NewManager(events.NewBus(), log)

	d := NewDispatcher(DispatcherConfig{
		Log:          log,
		Calendar:     cal,
		Prefs:        prefs,
		Ledger:       ledger,
		Notifier:     notifier,
		Events:       manager,
		PollInterval: 20 * time.Second,
		PollSlack:    30 * time.Second,
	})
	return d, cal
}

func enabledPrefs(leadMinutes int) *fakePrefs {
	return &fakePrefs{prefs: domain.Preferences{
		NotificationsEnabled: true,
		NotifyMinutesBefore:  leadMinutes,
	}}
}

func putEvent(cal *calendar.Repository, at time.Time) domain.NewsEvent {
	ev := domain.NewsEvent{
		ID:       "ev-1",
		Title:    "US Core CPI m/m",
		Currency: domain.USD,
		Impact:   domain.ImpactHigh,
		Time:     at,
	}
	cal.ReplaceSynced([]domain.NewsEvent{ev}, nil, at.Add(-time.Hour))
	return ev
}

func TestRunCycle_FiresInsideWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{permission: PermissionGranted}
	d, cal := newTestDispatcher(t, enabledPrefs(15), notifier)

	// Exactly at the top of the window: a 15m lead and an event in 15m.
	putEvent(cal, now.Add(15*time.Minute))

	d.RunCycle(context.Background(), now)
	assert.Equal(t, 1, notifier.count())

	// The same event never fires twice at the same lead.
	d.RunCycle(context.Background(), now.Add(5*time.Second))
	assert.Equal(t, 1, notifier.count())
}

func TestRunCycle_OutsideWindowStaysSilent(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{permission: PermissionGranted}
	d, cal := newTestDispatcher(t, enabledPrefs(10), notifier)

	// One second outside the window.
	putEvent(cal, now.Add(10*time.Minute+time.Second))
	d.RunCycle(context.Background(), now)
	assert.Equal(t, 0, notifier.count())

	// Deep inside the window, past the slack band: the moment was missed,
	// stay silent instead of alerting late.
	d.RunCycle(context.Background(), now.Add(2*time.Minute))
	assert.Equal(t, 0, notifier.count())
}

func TestRunCycle_PastEventsNeverFire(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{permission: PermissionGranted}
	d, cal := newTestDispatcher(t, enabledPrefs(15), notifier)

	putEvent(cal, now.Add(-time.Minute))
	d.RunCycle(context.Background(), now)
	assert.Equal(t, 0, notifier.count())

	// An event firing right now is not "upcoming" either.
	putEvent(cal, now)
	d.RunCycle(context.Background(), now)
	assert.Equal(t, 0, notifier.count())
}

func TestRunCycle_DisabledIsInert(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{permission: PermissionGranted}
	prefs := &fakePrefs{prefs: domain.Preferences{NotificationsEnabled: false, NotifyMinutesBefore: 15}}
	d, cal := newTestDispatcher(t, prefs, notifier)

	putEvent(cal, now.Add(15*time.Minute))
	d.RunCycle(context.Background(), now)
	assert.Equal(t, 0, notifier.count())
}

func TestRunCycle_PermissionRevokedSelfDisables(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{permission: PermissionDenied}
	prefs := enabledPrefs(15)
	d, cal := newTestDispatcher(t, prefs, notifier)

	putEvent(cal, now.Add(15*time.Minute))
	d.RunCycle(context.Background(), now)

	assert.Equal(t, 0, notifier.count())
	assert.False(t, prefs.Current().NotificationsEnabled)
}

func TestRunCycle_LeadChangeReArmsAlert(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{permission: PermissionGranted}
	prefs := enabledPrefs(30)
	d, cal := newTestDispatcher(t, prefs, notifier)

	putEvent(cal, now.Add(30*time.Minute))
	d.RunCycle(context.Background(), now)
	require.Equal(t, 1, notifier.count())

	// Shorten the lead: the dedup key changes, so the event alerts again
	// when it enters the new, tighter window.
	prefs.mu.Lock()
	prefs.prefs.NotifyMinutesBefore = 15
	prefs.mu.Unlock()

	d.RunCycle(context.Background(), now.Add(15*time.Minute))
	assert.Equal(t, 2, notifier.count())
}

func TestRunCycle_FailedDeliveryDoesNotRetry(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{permission: PermissionGranted, err: context.DeadlineExceeded}
	d, cal := newTestDispatcher(t, enabledPrefs(15), notifier)

	putEvent(cal, now.Add(15*time.Minute))
	d.RunCycle(context.Background(), now)

	// The ledger entry was written before delivery, so a flaky notifier
	// cannot cause a duplicate alert on the next poll.
	notifier.mu.Lock()
	notifier.err = nil
	notifier.mu.Unlock()
	d.RunCycle(context.Background(), now.Add(5*time.Second))
	assert.Equal(t, 0, notifier.count())
}

func TestStartStop(t *testing.T) {
	notifier := &fakeNotifier{permission: PermissionGranted}
	d, _ := newTestDispatcher(t, enabledPrefs(15), notifier)

	d.Start()
	d.Start() // second Start is a no-op
	d.Stop()
	d.Stop() // second Stop is a no-op
}
