// Package briefing produces on-demand narrative content: per-event risk
// assessments, the daily plan, and the spoken audio briefing.
package briefing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/internal/modules/calendar"
	"github.com/aristath/newsguard/internal/modules/market"
)

// Narrator is the analyst surface the briefing service depends on.
type Narrator interface {
	FetchEventRiskNarrative(ctx context.Context, event domain.NewsEvent, opts domain.AnalystOptions) (string, error)
	FetchDailyPlanNarrative(ctx context.Context, events []domain.NewsEvent, sentiments []domain.SentimentData, opts domain.AnalystOptions) (string, error)
	FetchAudioBriefing(ctx context.Context, events []domain.NewsEvent, opts domain.AnalystOptions) ([]byte, error)
}

// PreferenceSource provides a read-only snapshot of the current preferences.
type PreferenceSource interface {
	Current() domain.Preferences
}

// Service generates narratives from the current calendar and market state.
// Narratives are fetched fresh on every request; nothing here is cached.
type Service struct {
	narrator Narrator
	calendar *calendar.Repository
	market   *market.Store
	prefs    PreferenceSource
	log      zerolog.Logger
}

// New creates a new briefing service
func New(narrator Narrator, cal *calendar.Repository, mkt *market.Store, prefs PreferenceSource, log zerolog.Logger) *Service {
	return &Service{
		narrator: narrator,
		calendar: cal,
		market:   mkt,
		prefs:    prefs,
		log:      log.With().Str("service", "briefing").Logger(),
	}
}

// EventAssessment returns a markdown risk assessment for one event in the
// current collection.
func (s *Service) EventAssessment(ctx context.Context, eventID string) (string, error) {
	ev, ok := s.calendar.ByID(eventID)
	if !ok {
		return "", fmt.Errorf("event %s not found", eventID)
	}
	return s.narrator.FetchEventRiskNarrative(ctx, ev, s.prefs.Current().AnalystOpts())
}

// DailyPlan returns a markdown plan built from the full event collection and
// the current sentiment readings.
func (s *Service) DailyPlan(ctx context.Context) (string, error) {
	return s.narrator.FetchDailyPlanNarrative(ctx, s.calendar.Events(), s.market.Sentiments(), s.prefs.Current().AnalystOpts())
}

// AudioBriefing returns a spoken briefing covering today's high-impact
// events. (nil, nil) means there is nothing worth summarizing.
func (s *Service) AudioBriefing(ctx context.Context) ([]byte, error) {
	high := s.calendar.FilterByImpact([]domain.Impact{domain.ImpactHigh})
	if len(high) == 0 {
		s.log.Debug().Msg("No high-impact events, skipping audio briefing")
		return nil, nil
	}
	return s.narrator.FetchAudioBriefing(ctx, high, s.prefs.Current().AnalystOpts())
}
