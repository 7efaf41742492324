package rules

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/internal/events"
)

// EventSource yields the current event collection.
type EventSource interface {
	Events() []domain.NewsEvent
}

// PreferenceSource yields the enabled rule ids.
type PreferenceSource interface {
	Current() domain.Preferences
}

// Watcher re-evaluates the restricted-day flag whenever the inputs could have
// changed, and pushes a bus event only on actual transitions so the stream
// carries edges, not levels.
type Watcher struct {
	evaluator *Evaluator
	source    EventSource
	prefs     PreferenceSource
	events    *events.Manager
	log       zerolog.Logger

	mu         sync.Mutex
	known      bool
	restricted bool
}

// NewWatcher creates a restriction watcher and subscribes it to the bus.
func NewWatcher(evaluator *Evaluator, source EventSource, prefs PreferenceSource, manager *events.Manager, log zerolog.Logger) *Watcher {
	w := &Watcher{
		evaluator: evaluator,
		source:    source,
		prefs:     prefs,
		events:    manager,
		log:       log.With().Str("component", "restriction_watcher").Logger(),
	}

	manager.Bus().Subscribe(func(ev *events.Event) {
		switch ev.Type {
		case events.SyncCompleted, events.SyncFailed, events.PreferencesChanged, events.AppReset:
			w.Recheck()
		}
	})

	return w
}

// Recheck evaluates the flag and emits RestrictionChanged on a transition.
func (w *Watcher) Recheck() {
	restricted := w.evaluator.IsRestrictedDay(w.source.Events(), w.prefs.Current().NoTradeRules)

	w.mu.Lock()
	changed := !w.known || w.restricted != restricted
	w.known = true
	w.restricted = restricted
	w.mu.Unlock()

	if !changed {
		return
	}

	w.log.Info().Bool("restricted", restricted).Msg("Restriction state changed")
	w.events.Emit(events.RestrictionChanged, "rules", map[string]interface{}{
		"restricted": restricted,
	})
}

// Restricted returns the last evaluated state.
func (w *Watcher) Restricted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.restricted
}
