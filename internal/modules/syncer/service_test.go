package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/internal/events"
	"github.com/aristath/newsguard/internal/modules/calendar"
	"github.com/aristath/newsguard/internal/modules/market"
	"github.com/aristath/newsguard/pkg/logger"
)

type fakeGateway struct {
	mu        sync.Mutex
	newsCalls int
	newsErr   error
	batch     domain.NewsBatch

	sentiments   []domain.SentimentData
	sentimentErr error
	riskScores   map[string]float64
	riskErr      error
	trade        *domain.TradeSetup
	tradeErr     error

	// When set, FetchNews blocks until the channel is closed.
	blockNews chan struct{}
}

func (f *fakeGateway) FetchNews(ctx context.Context, dateHint string, currencies []domain.Currency) (*domain.NewsBatch, error) {
	f.mu.Lock()
	f.newsCalls++
	block := f.blockNews
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.newsErr != nil {
		return nil, f.newsErr
	}
	batch := f.batch
	return &batch, nil
}

func (f *fakeGateway) FetchSentiment(ctx context.Context, evts []domain.NewsEvent, pairs []string, opts domain.AnalystOptions) ([]domain.SentimentData, error) {
	return f.sentiments, f.sentimentErr
}

func (f *fakeGateway) FetchRiskScores(ctx context.Context, evts []domain.NewsEvent, pairs []string, opts domain.AnalystOptions) (map[string]float64, error) {
	return f.riskScores, f.riskErr
}

func (f *fakeGateway) FetchTradeOfDay(ctx context.Context, evts []domain.NewsEvent, sentiments []domain.SentimentData, opts domain.AnalystOptions) (*domain.TradeSetup, error) {
	return f.trade, f.tradeErr
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newsCalls
}

type fakePrefs struct {
	prefs domain.Preferences
}

func (f *fakePrefs) Current() domain.Preferences {
	return f.prefs.Clone()
}

func testEvent(id string, at time.Time) domain.NewsEvent {
	return domain.NewsEvent{
		ID:       id,
		Title:    "US Core CPI m/m",
		Currency: domain.USD,
		Impact:   domain.ImpactHigh,
		Time:     at,
	}
}

func newTestService(t *testing.T, gw *fakeGateway, clock func() time.Time) (*Service, *calendar.Repository, *market.Store) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	cal := calendar.New(log)
	mkt := market.NewStore(log)
	manager := events.NewManager(events.NewBus(), log)

	svc := New(Config{
		Log:        log,
		Gateway:    gw,
		Calendar:   cal,
		Market:     mkt,
		Prefs:      &fakePrefs{prefs: domain.Preferences{SelectedPairs: []string{"EURUSD"}}},
		Events:     manager,
		StaleAfter: 4 * time.Hour,
		Clock:      clock,
	})
	return svc, cal, mkt
}

func TestRequestSync_ReplacesCollection(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	gw := &fakeGateway{
		batch: domain.NewsBatch{
			Events:  []domain.NewsEvent{testEvent("ev-1", now.Add(time.Hour))},
			Sources: []domain.Citation{{Title: "source", URL: "https://example.com"}},
		},
		riskScores: map[string]float64{"EURUSD": 6.5},
	}
	svc, cal, mkt := newTestService(t, gw, func() time.Time { return now })

	require.NoError(t, svc.RequestSync(context.Background(), true))

	assert.Len(t, cal.Events(), 1)
	assert.Len(t, cal.Sources(), 1)
	assert.Equal(t, now, cal.LastSync())
	assert.False(t, cal.IsPlaceholder())
	assert.Equal(t, map[string]float64{"EURUSD": 6.5}, mkt.RiskScores())

	// A second sync fully replaces the first batch, nothing is merged.
	gw.batch = domain.NewsBatch{
		Events: []domain.NewsEvent{
			testEvent("ev-2", now.Add(2*time.Hour)),
			testEvent("ev-3", now.Add(3*time.Hour)),
		},
	}
	require.NoError(t, svc.RequestSync(context.Background(), true))

	ids := []string{}
	for _, ev := range cal.Events() {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, []string{"ev-2", "ev-3"}, ids)
	_, found := cal.ByID("ev-1")
	assert.False(t, found)
}

func TestRequestSync_StalenessGate(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	gw := &fakeGateway{batch: domain.NewsBatch{Events: []domain.NewsEvent{testEvent("ev-1", now.Add(time.Hour))}}}
	svc, _, _ := newTestService(t, gw, clock)

	require.NoError(t, svc.RequestSync(context.Background(), true))
	require.Equal(t, 1, gw.calls())

	// Fresh data: a non-forced request is a no-op.
	now = now.Add(time.Hour)
	require.NoError(t, svc.RequestSync(context.Background(), false))
	assert.Equal(t, 1, gw.calls())

	// Force bypasses the gate.
	require.NoError(t, svc.RequestSync(context.Background(), true))
	assert.Equal(t, 2, gw.calls())

	// Past the threshold the gate opens on its own.
	now = now.Add(5 * time.Hour)
	require.NoError(t, svc.RequestSync(context.Background(), false))
	assert.Equal(t, 3, gw.calls())
}

func TestRequestSync_AtMostOneInFlight(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	block := make(chan struct{})
	gw := &fakeGateway{
		batch:     domain.NewsBatch{Events: []domain.NewsEvent{testEvent("ev-1", now.Add(time.Hour))}},
		blockNews: block,
	}
	svc, _, _ := newTestService(t, gw, func() time.Time { return now })

	done := make(chan error, 1)
	go func() {
		done <- svc.RequestSync(context.Background(), true)
	}()

	require.Eventually(t, svc.Syncing, time.Second, time.Millisecond)

	// Concurrent requests return immediately without a second fetch.
	require.NoError(t, svc.RequestSync(context.Background(), true))
	assert.Equal(t, 1, gw.calls())

	close(block)
	require.NoError(t, <-done)
	assert.False(t, svc.Syncing())

	// Once finished, the guard is released and a new sync can run.
	gw.mu.Lock()
	gw.blockNews = nil
	gw.mu.Unlock()
	require.NoError(t, svc.RequestSync(context.Background(), true))
	assert.Equal(t, 2, gw.calls())
}

func TestRequestSync_FirstFailureInstallsPlaceholder(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	gw := &fakeGateway{newsErr: errors.New("gateway down")}
	svc, cal, _ := newTestService(t, gw, func() time.Time { return now })

	err := svc.RequestSync(context.Background(), true)
	require.Error(t, err)

	// Placeholder data is installed but lastSync does not advance, so the
	// next trigger still performs a real sync.
	assert.NotEmpty(t, cal.Events())
	assert.True(t, cal.IsPlaceholder())
	assert.True(t, cal.LastSync().IsZero())
	assert.False(t, svc.Syncing())
}

func TestRequestSync_LaterFailureKeepsLastKnownGood(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	gw := &fakeGateway{batch: domain.NewsBatch{Events: []domain.NewsEvent{testEvent("ev-1", now.Add(time.Hour))}}}
	svc, cal, _ := newTestService(t, gw, func() time.Time { return now })

	require.NoError(t, svc.RequestSync(context.Background(), true))
	syncedAt := cal.LastSync()

	gw.newsErr = errors.New("gateway down")
	require.Error(t, svc.RequestSync(context.Background(), true))

	// Synced data survives; no placeholder overwrite.
	assert.Len(t, cal.Events(), 1)
	assert.False(t, cal.IsPlaceholder())
	assert.Equal(t, syncedAt, cal.LastSync())
}

func TestRequestSync_EnrichmentFailureDoesNotFailSync(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	gw := &fakeGateway{
		batch:        domain.NewsBatch{Events: []domain.NewsEvent{testEvent("ev-1", now.Add(time.Hour))}},
		sentimentErr: errors.New("sentiment down"),
		riskScores:   map[string]float64{"EURUSD": 3.0},
	}
	svc, cal, mkt := newTestService(t, gw, func() time.Time { return now })

	require.NoError(t, svc.RequestSync(context.Background(), true))

	// News applies even when an enrichment leg fails, and the surviving
	// legs still land.
	assert.Len(t, cal.Events(), 1)
	assert.Empty(t, mkt.Sentiments())
	assert.Equal(t, map[string]float64{"EURUSD": 3.0}, mkt.RiskScores())
}

type panicGateway struct{ fakeGateway }

func (p *panicGateway) FetchNews(ctx context.Context, dateHint string, currencies []domain.Currency) (*domain.NewsBatch, error) {
	panic("boom")
}

func TestRequestSync_GuardClearedAfterPanic(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(t, &fakeGateway{}, func() time.Time { return now })
	svc.gateway = &panicGateway{}

	func() {
		defer func() { _ = recover() }()
		_ = svc.RequestSync(context.Background(), true)
	}()

	assert.False(t, svc.Syncing())
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	cache := NewSnapshotCache(t.TempDir() + "/snapshot.bin")

	// Nothing persisted yet.
	snap, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)

	saved := Snapshot{
		Events:     []domain.NewsEvent{testEvent("ev-1", now.Add(time.Hour))},
		Sources:    []domain.Citation{{Title: "source", URL: "https://example.com"}},
		RiskScores: map[string]float64{"EURUSD": 4.2},
		TradeOfDay: &domain.TradeSetup{Pair: "EURUSD", Bias: domain.Bullish},
		LastSync:   now,
	}
	require.NoError(t, cache.Save(saved))

	loaded, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.RiskScores, loaded.RiskScores)
	assert.Equal(t, "ev-1", loaded.Events[0].ID)
	assert.True(t, saved.LastSync.Equal(loaded.LastSync))
}

func TestRestore(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	cache := NewSnapshotCache(t.TempDir() + "/snapshot.bin")
	require.NoError(t, cache.Save(Snapshot{
		Events:   []domain.NewsEvent{testEvent("ev-1", now.Add(time.Hour))},
		LastSync: now,
	}))

	gw := &fakeGateway{}
	svc, cal, _ := newTestService(t, gw, func() time.Time { return now })
	svc.snapshot = cache

	svc.Restore()

	assert.Len(t, cal.Events(), 1)
	assert.True(t, now.Equal(cal.LastSync()))

	// Restored data counts as fresh, so a non-forced sync stays local.
	require.NoError(t, svc.RequestSync(context.Background(), false))
	assert.Equal(t, 0, gw.calls())
}
