// Package syncer keeps the event calendar and market snapshot fresh. It owns
// all writes to the calendar repository and the market store, and guarantees
// that at most one sync is ever in flight.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/internal/events"
	"github.com/aristath/newsguard/internal/modules/calendar"
	"github.com/aristath/newsguard/internal/modules/market"
)

// Gateway is the analyst surface the syncer depends on.
type Gateway interface {
	FetchNews(ctx context.Context, dateHint string, currencies []domain.Currency) (*domain.NewsBatch, error)
	FetchSentiment(ctx context.Context, events []domain.NewsEvent, pairs []string, opts domain.AnalystOptions) ([]domain.SentimentData, error)
	FetchRiskScores(ctx context.Context, events []domain.NewsEvent, pairs []string, opts domain.AnalystOptions) (map[string]float64, error)
	FetchTradeOfDay(ctx context.Context, events []domain.NewsEvent, sentiments []domain.SentimentData, opts domain.AnalystOptions) (*domain.TradeSetup, error)
}

// PreferenceSource provides a read-only snapshot of the current preferences.
type PreferenceSource interface {
	Current() domain.Preferences
}

// Config holds syncer dependencies
type Config struct {
	Log        zerolog.Logger
	Gateway    Gateway
	Calendar   *calendar.Repository
	Market     *market.Store
	Prefs      PreferenceSource
	Events     *events.Manager
	Snapshot   *SnapshotCache // optional
	StaleAfter time.Duration
	Clock      func() time.Time // defaults to time.Now
}

// Service is the sync scheduler
type Service struct {
	log        zerolog.Logger
	gateway    Gateway
	calendar   *calendar.Repository
	market     *market.Store
	prefs      PreferenceSource
	events     *events.Manager
	snapshot   *SnapshotCache
	staleAfter time.Duration
	clock      func() time.Time

	mu       sync.Mutex
	inFlight bool
}

// New creates a new sync service
func New(cfg Config) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		log:        cfg.Log.With().Str("service", "syncer").Logger(),
		gateway:    cfg.Gateway,
		calendar:   cfg.Calendar,
		market:     cfg.Market,
		prefs:      cfg.Prefs,
		events:     cfg.Events,
		snapshot:   cfg.Snapshot,
		staleAfter: cfg.StaleAfter,
		clock:      clock,
	}
}

// Syncing reports whether a sync is currently in flight.
func (s *Service) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// RequestSync refreshes the calendar and market snapshot.
//
// The in-flight guard and the staleness gate are both checked synchronously,
// before any suspension point: a second caller arriving while a sync runs is
// a no-op (it neither queues nor cancels), and a non-forced call against
// fresh data returns without touching the network.
func (s *Service) RequestSync(ctx context.Context, force bool) error {
	now := s.clock()

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.log.Debug().Msg("Sync already in flight, skipping")
		return nil
	}
	if !force {
		if last := s.calendar.LastSync(); !last.IsZero() && now.Sub(last) < s.staleAfter {
			s.mu.Unlock()
			s.log.Debug().
				Time("last_sync", last).
				Dur("stale_after", s.staleAfter).
				Msg("Calendar still fresh, skipping sync")
			return nil
		}
	}
	s.inFlight = true
	s.mu.Unlock()

	// Cleared on every exit path, including panics mid-flow.
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	// Snapshot preference values once; collaborators receive them
	// explicitly instead of reading ambient state mid-flight.
	prefs := s.prefs.Current()
	opts := prefs.AnalystOpts()
	pairs := append([]string(nil), prefs.SelectedPairs...)
	currencies := prefs.FocusCurrencies()

	s.events.Emit(events.SyncStarted, "syncer", map[string]interface{}{"force": force})
	start := now

	batch, err := s.gateway.FetchNews(ctx, now.Format("2006-01-02"), currencies)
	if err != nil {
		s.handleNewsFailure(err)
		return fmt.Errorf("news fetch failed: %w", err)
	}

	// The repository is replaced strictly before the enrichment calls are
	// issued; they consume the freshly fetched events as context.
	s.calendar.ReplaceSynced(batch.Events, batch.Sources, s.clock())

	s.enrich(ctx, batch.Events, pairs, opts)

	if s.snapshot != nil {
		if err := s.snapshot.Save(s.buildSnapshot()); err != nil {
			s.log.Warn().Err(err).Msg("Failed to persist market snapshot")
		}
	}

	s.events.Emit(events.SyncCompleted, "syncer", map[string]interface{}{
		"events":      len(batch.Events),
		"sources":     len(batch.Sources),
		"duration_ms": s.clock().Sub(start).Milliseconds(),
	})

	return nil
}

// enrich issues the three independent enrichment calls concurrently. Each
// result is applied to the market store as it completes; failures degrade to
// stale data and are only logged.
func (s *Service) enrich(ctx context.Context, evts []domain.NewsEvent, pairs []string, opts domain.AnalystOptions) {
	var (
		g          errgroup.Group
		sentiments []domain.SentimentData
	)

	g.Go(func() error {
		data, err := s.gateway.FetchSentiment(ctx, evts, pairs, opts)
		if err != nil {
			return fmt.Errorf("sentiment: %w", err)
		}
		sentiments = data
		s.market.SetSentiments(data)
		return nil
	})

	g.Go(func() error {
		scores, err := s.gateway.FetchRiskScores(ctx, evts, pairs, opts)
		if err != nil {
			return fmt.Errorf("risk scores: %w", err)
		}
		s.market.SetRiskScores(scores)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Msg("Enrichment partially failed")
	}

	// The trade of the day consumes the sentiment readings, so it runs
	// after they have settled (possibly empty on sentiment failure).
	trade, err := s.gateway.FetchTradeOfDay(ctx, evts, sentiments, opts)
	if err != nil {
		s.log.Warn().Err(err).Msg("Trade-of-day fetch failed")
		return
	}
	s.market.SetTradeOfDay(trade)
}

// handleNewsFailure degrades gracefully: the first-ever failure installs
// placeholder events so the dashboard is never empty; later failures keep
// the last-known-good data. lastSync never advances on failure.
func (s *Service) handleNewsFailure(err error) {
	s.log.Error().Err(err).Msg("News fetch failed")

	if s.calendar.LastSync().IsZero() && len(s.calendar.Events()) == 0 {
		s.calendar.ReplacePlaceholder(calendar.PlaceholderEvents(s.clock()))
	}

	s.events.Emit(events.SyncFailed, "syncer", map[string]interface{}{"error": err.Error()})
}

func (s *Service) buildSnapshot() Snapshot {
	return Snapshot{
		Events:     s.calendar.Events(),
		Sources:    s.calendar.Sources(),
		Sentiments: s.market.Sentiments(),
		RiskScores: s.market.RiskScores(),
		TradeOfDay: s.market.TradeOfDay(),
		LastSync:   s.calendar.LastSync(),
	}
}

// Restore loads the last persisted snapshot into the calendar and market
// store so a restart shows last-known-good data immediately. Missing or
// unreadable snapshots are not errors.
func (s *Service) Restore() {
	if s.snapshot == nil {
		return
	}
	snap, err := s.snapshot.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to restore market snapshot")
		return
	}
	if snap == nil || snap.LastSync.IsZero() {
		return
	}

	s.calendar.ReplaceSynced(snap.Events, snap.Sources, snap.LastSync)
	s.market.SetSentiments(snap.Sentiments)
	s.market.SetRiskScores(snap.RiskScores)
	s.market.SetTradeOfDay(snap.TradeOfDay)

	s.log.Info().
		Int("events", len(snap.Events)).
		Time("last_sync", snap.LastSync).
		Msg("Restored market snapshot")
}
