// Package calendar holds the in-memory repository of scheduled news events.
// A sync replaces the whole collection; there is no incremental merge.
package calendar

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/domain"
)

// Repository is the event store. The sync service is its only writer; every
// other component reads snapshots.
type Repository struct {
	mu          sync.RWMutex
	events      []domain.NewsEvent
	sources     []domain.Citation
	lastSync    time.Time
	placeholder bool
	log         zerolog.Logger
}

// New creates a new repository
func New(log zerolog.Logger) *Repository {
	return &Repository{
		log: log.With().Str("repository", "calendar").Logger(),
	}
}

// ReplaceSynced installs a freshly synced batch, discarding everything held
// before, and advances the last-sync timestamp.
func (r *Repository) ReplaceSynced(events []domain.NewsEvent, sources []domain.Citation, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append([]domain.NewsEvent(nil), events...)
	r.sources = append([]domain.Citation(nil), sources...)
	r.lastSync = at
	r.placeholder = false

	r.log.Info().
		Int("events", len(events)).
		Int("sources", len(sources)).
		Time("at", at).
		Msg("Event collection replaced")
}

// ReplacePlaceholder installs locally generated events so the UI is never
// empty on first run. The last-sync timestamp is deliberately not advanced:
// the next trigger must still perform a real sync.
func (r *Repository) ReplacePlaceholder(events []domain.NewsEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append([]domain.NewsEvent(nil), events...)
	r.sources = nil
	r.placeholder = true

	r.log.Warn().Int("events", len(events)).Msg("Placeholder events installed")
}

// Events returns a copy of the current collection.
func (r *Repository) Events() []domain.NewsEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.NewsEvent(nil), r.events...)
}

// Sources returns the grounding sources of the current batch.
func (r *Repository) Sources() []domain.Citation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Citation(nil), r.sources...)
}

// LastSync returns the time of the last successful sync; zero when no sync
// has ever succeeded.
func (r *Repository) LastSync() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync
}

// IsPlaceholder reports whether the current collection is locally generated
// fallback data rather than synced data.
func (r *Repository) IsPlaceholder() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.placeholder
}

// ByID finds an event in the current collection.
func (r *Repository) ByID(id string) (domain.NewsEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ev := range r.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return domain.NewsEvent{}, false
}

// NextUpcoming returns the earliest event strictly after now. The second
// return value is false when nothing is upcoming; callers render a neutral
// empty state in that case.
func (r *Repository) NextUpcoming(now time.Time) (domain.NewsEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var next domain.NewsEvent
	found := false
	for _, ev := range r.events {
		if !ev.Time.After(now) {
			continue
		}
		if !found || ev.Time.Before(next.Time) {
			next = ev
			found = true
		}
	}
	return next, found
}

// FilterByImpact returns the events whose impact is in the allowed set,
// preserving input order. Sorting by time is a presentation concern and is
// left to the display layer.
func (r *Repository) FilterByImpact(allowed []domain.Impact) []domain.NewsEvent {
	set := make(map[domain.Impact]bool, len(allowed))
	for _, i := range allowed {
		set[i] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.NewsEvent, 0, len(r.events))
	for _, ev := range r.events {
		if set[ev.Impact] {
			out = append(out, ev)
		}
	}
	return out
}

// Reset drops all state, as on explicit app reset.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.sources = nil
	r.lastSync = time.Time{}
	r.placeholder = false
}
