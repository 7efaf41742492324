package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/internal/modules/preferences"
	"github.com/aristath/newsguard/internal/modules/rules"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "newsguard",
	})
}

// handleNews returns the current event collection, filtered by the active
// impact preferences, plus its grounding sources and provenance flags.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	prefs := s.prefs.Current()

	events := s.calendar.FilterByImpact(prefs.ImpactFilters)
	lastSync := s.calendar.LastSync()

	response := map[string]interface{}{
		"events":      events,
		"sources":     s.calendar.Sources(),
		"placeholder": s.calendar.IsPlaceholder(),
	}
	if !lastSync.IsZero() {
		response["lastSync"] = lastSync.UTC().Format(time.RFC3339)
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleNextEvent returns the next upcoming event with countdown context.
func (s *Server) handleNextEvent(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	next, ok := s.calendar.NextUpcoming(now)
	if !ok {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"event": nil})
		return
	}

	prefs := s.prefs.Current()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"event":        next,
		"secondsUntil": int(next.Time.Sub(now).Seconds()),
		"restricted":   s.rules.IsRestrictedEvent(next, prefs.NoTradeRules),
	})
}

// handleEventAssessment returns the AI risk assessment for one event.
func (s *Server) handleEventAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	text, err := s.briefing.EventAssessment(r.Context(), id)
	if err != nil {
		if _, ok := s.calendar.ByID(id); !ok {
			s.writeError(w, http.StatusNotFound, "event not found")
			return
		}
		s.log.Error().Err(err).Str("event_id", id).Msg("Assessment failed")
		s.writeError(w, http.StatusBadGateway, "assessment unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"assessment": text})
}

// handleSentiments returns the current sentiment readings.
func (s *Server) handleSentiments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"sentiments": s.market.Sentiments()})
}

// handleRiskScores returns the per-pair risk scores.
func (s *Server) handleRiskScores(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"riskScores": s.market.RiskScores()})
}

// handleTradeOfDay returns the suggested setup, null when none exists.
func (s *Server) handleTradeOfDay(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"trade": s.market.TradeOfDay()})
}

// handleRiskSummary returns aggregate risk statistics over the score set.
func (s *Server) handleRiskSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.market.Summary()
	if !ok {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"summary": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"summary": summary})
}

// handleRestriction reports whether today is a restricted trading day.
func (s *Server) handleRestriction(w http.ResponseWriter, r *http.Request) {
	prefs := s.prefs.Current()
	events := s.calendar.Events()

	restricted := s.rules.IsRestrictedDay(events, prefs.NoTradeRules)

	triggering := []domain.NewsEvent{}
	if restricted {
		for _, ev := range events {
			if s.rules.IsRestrictedEvent(ev, prefs.NoTradeRules) {
				triggering = append(triggering, ev)
			}
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"restricted": restricted,
		"events":     triggering,
	})
}

// handleSync triggers a sync. ?force=true bypasses the staleness gate.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	if err := s.syncer.RequestSync(r.Context(), force); err != nil {
		s.log.Error().Err(err).Msg("Sync request failed")
		s.writeError(w, http.StatusBadGateway, "sync failed")
		return
	}

	s.writeSyncStatus(w)
}

// handleSyncStatus reports sync progress and data provenance.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	s.writeSyncStatus(w)
}

func (s *Server) writeSyncStatus(w http.ResponseWriter) {
	response := map[string]interface{}{
		"syncing":     s.syncer.Syncing(),
		"placeholder": s.calendar.IsPlaceholder(),
		"events":      len(s.calendar.Events()),
	}
	if last := s.calendar.LastSync(); !last.IsZero() {
		response["lastSync"] = last.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleGetPreferences returns the active preferences.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.prefs.Current())
}

// handleUpdatePreferences applies a partial preferences update.
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch preferences.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.prefs.Update(patch)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

// handleTogglePair adds or removes a tracked pair.
func (s *Server) handleTogglePair(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pair")
	if _, ok := domain.PairByID(pairID); !ok {
		s.writeError(w, http.StatusNotFound, "unknown pair")
		return
	}

	updated, err := s.prefs.TogglePair(pairID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

// handleToggleImpact adds or removes an impact filter.
func (s *Server) handleToggleImpact(w http.ResponseWriter, r *http.Request) {
	impact := domain.Impact(chi.URLParam(r, "impact"))

	updated, err := s.prefs.ToggleImpact(impact)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

// handleRules returns the built-in no-trade rules with their enabled state.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	prefs := s.prefs.Current()
	enabled := make(map[string]bool, len(prefs.NoTradeRules))
	for _, id := range prefs.NoTradeRules {
		enabled[id] = true
	}

	type ruleState struct {
		domain.NoTradeRule
		Enabled bool `json:"enabled"`
	}

	builtin := rules.Builtin()
	out := make([]ruleState, len(builtin))
	for i, rule := range builtin {
		out[i] = ruleState{NoTradeRule: rule, Enabled: enabled[rule.ID]}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": out})
}

// handlePairs returns the tradeable instrument catalogue.
func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"pairs": domain.TradingPairs})
}

// handleOnboardingStatus reports whether onboarding has been completed.
func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"onboarded": s.prefs.Onboarded()})
}

// handleCompleteOnboarding marks onboarding as finished and kicks off the
// first sync in the background.
func (s *Server) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs.CompleteOnboarding(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go func() {
		if err := s.syncer.RequestSync(context.Background(), true); err != nil {
			s.log.Warn().Err(err).Msg("Initial sync after onboarding failed")
		}
	}()

	s.writeJSON(w, http.StatusOK, map[string]bool{"onboarded": true})
}

// handleReset restores factory state: preferences, calendar and market data.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs.Reset(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.calendar.Reset()
	s.market.Reset()

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleDailyPlan returns the AI daily plan narrative.
func (s *Server) handleDailyPlan(w http.ResponseWriter, r *http.Request) {
	text, err := s.briefing.DailyPlan(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Daily plan failed")
		s.writeError(w, http.StatusBadGateway, "daily plan unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"plan": text})
}

// handleAudioBriefing streams the spoken briefing; 204 when there are no
// high-impact events to summarize.
func (s *Server) handleAudioBriefing(w http.ResponseWriter, r *http.Request) {
	audio, err := s.briefing.AudioBriefing(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Audio briefing failed")
		s.writeError(w, http.StatusBadGateway, "audio briefing unavailable")
		return
	}
	if audio == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "audio/pcm")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write audio response")
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
