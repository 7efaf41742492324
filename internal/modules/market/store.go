// Package market holds the AI-derived market snapshot: sentiment readings,
// per-pair risk scores, and the trade of the day. The sync service is the
// only writer; each piece is replaced wholesale by a sync.
package market

import (
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/newsguard/internal/domain"
)

// Store is the snapshot holder
type Store struct {
	mu         sync.RWMutex
	sentiments []domain.SentimentData
	riskScores map[string]float64
	tradeOfDay *domain.TradeSetup
	log        zerolog.Logger
}

// NewStore creates a new market store
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		riskScores: make(map[string]float64),
		log:        log.With().Str("store", "market").Logger(),
	}
}

// SetSentiments replaces all sentiment readings.
func (s *Store) SetSentiments(sentiments []domain.SentimentData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiments = append([]domain.SentimentData(nil), sentiments...)
}

// Sentiments returns a copy of the current readings.
func (s *Store) Sentiments() []domain.SentimentData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SentimentData(nil), s.sentiments...)
}

// SetRiskScores replaces the risk-score map.
func (s *Store) SetRiskScores(scores map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskScores = make(map[string]float64, len(scores))
	for pair, score := range scores {
		s.riskScores[pair] = score
	}
}

// RiskScores returns a copy of the risk-score map. An empty map is a
// legitimate state, not an error.
func (s *Store) RiskScores() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.riskScores))
	for pair, score := range s.riskScores {
		out[pair] = score
	}
	return out
}

// SetTradeOfDay replaces the trade of the day; nil clears it.
func (s *Store) SetTradeOfDay(trade *domain.TradeSetup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trade == nil {
		s.tradeOfDay = nil
		return
	}
	copied := *trade
	s.tradeOfDay = &copied
}

// TradeOfDay returns the current setup, or nil when the analyst declined to
// suggest one.
func (s *Store) TradeOfDay() *domain.TradeSetup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tradeOfDay == nil {
		return nil
	}
	copied := *s.tradeOfDay
	return &copied
}

// Reset drops all state, as on explicit app reset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiments = nil
	s.riskScores = make(map[string]float64)
	s.tradeOfDay = nil
}

// RiskSummary aggregates the per-pair risk scores for the dashboard header.
type RiskSummary struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Max     float64 `json:"max"`
	MaxPair string  `json:"max_pair"`
	Count   int     `json:"count"`
}

// Summary computes aggregate statistics over the current risk scores. The
// second return value is false when no scores are present.
func (s *Store) Summary() (RiskSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.riskScores) == 0 {
		return RiskSummary{}, false
	}

	values := make([]float64, 0, len(s.riskScores))
	summary := RiskSummary{Count: len(s.riskScores), Max: -1}
	for pair, score := range s.riskScores {
		values = append(values, score)
		if score > summary.Max {
			summary.Max = score
			summary.MaxPair = pair
		}
	}

	summary.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		summary.StdDev = stat.StdDev(values, nil)
	}

	return summary, true
}
