package preferences

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/internal/events"
	"github.com/aristath/newsguard/internal/modules/rules"
)

const (
	keyPreferences = "preferences"
	keyOnboarded   = "onboarded"
)

// Patch is a partial preferences update; nil fields are left untouched.
type Patch struct {
	SelectedPairs        *[]string             `json:"selectedPairs,omitempty"`
	ImpactFilters        *[]domain.Impact      `json:"impactFilters,omitempty"`
	AlwaysIncludeUSD     *bool                 `json:"alwaysIncludeUSD,omitempty"`
	Timezone             *string               `json:"timezone,omitempty"`
	NotificationsEnabled *bool                 `json:"notificationsEnabled,omitempty"`
	NotifyMinutesBefore  *int                  `json:"notifyMinutesBefore,omitempty"`
	Theme                *domain.Theme         `json:"theme,omitempty"`
	NoTradeRules         *[]string             `json:"noTradeRules,omitempty"`
	Language             *domain.Language      `json:"language,omitempty"`
	RiskTolerance        *domain.RiskTolerance `json:"riskTolerance,omitempty"`
}

// Service holds the current preferences in memory and persists every change.
type Service struct {
	mu        sync.RWMutex
	current   domain.Preferences
	onboarded bool

	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates the service and loads persisted state, falling back to
// defaults on first run.
func NewService(repo *Repository, evts *events.Manager, log zerolog.Logger) (*Service, error) {
	s := &Service{
		current: Defaults(),
		repo:    repo,
		events:  evts,
		log:     log.With().Str("service", "preferences").Logger(),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Defaults returns the first-run preferences.
func Defaults() domain.Preferences {
	return domain.Preferences{
		SelectedPairs:        []string{"EURUSD", "XAUUSD", "GBPUSD"},
		ImpactFilters:        []domain.Impact{domain.ImpactHigh, domain.ImpactMedium},
		AlwaysIncludeUSD:     true,
		Timezone:             "UTC",
		NotificationsEnabled: false,
		NotifyMinutesBefore:  15,
		Theme:                domain.ThemeDark,
		NoTradeRules:         rules.BuiltinIDs(),
		Language:             domain.LangEN,
		RiskTolerance:        domain.RiskMedium,
	}
}

// Current returns a copy of the active preferences.
func (s *Service) Current() domain.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Onboarded reports whether onboarding has been completed.
func (s *Service) Onboarded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onboarded
}

// CompleteOnboarding marks onboarding as finished.
func (s *Service) CompleteOnboarding() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboarded = true
	return s.repo.Set(keyOnboarded, "true")
}

// Update applies a partial update and persists the result.
func (s *Service) Update(patch Patch) (domain.Preferences, error) {
	if patch.NotifyMinutesBefore != nil && *patch.NotifyMinutesBefore <= 0 {
		return domain.Preferences{}, fmt.Errorf("notifyMinutesBefore must be positive")
	}

	s.mu.Lock()

	if patch.SelectedPairs != nil {
		s.current.SelectedPairs = append([]string(nil), *patch.SelectedPairs...)
	}
	if patch.ImpactFilters != nil {
		s.current.ImpactFilters = append([]domain.Impact(nil), *patch.ImpactFilters...)
	}
	if patch.AlwaysIncludeUSD != nil {
		s.current.AlwaysIncludeUSD = *patch.AlwaysIncludeUSD
	}
	if patch.Timezone != nil {
		s.current.Timezone = *patch.Timezone
	}
	if patch.NotificationsEnabled != nil {
		s.current.NotificationsEnabled = *patch.NotificationsEnabled
	}
	if patch.NotifyMinutesBefore != nil {
		s.current.NotifyMinutesBefore = *patch.NotifyMinutesBefore
	}
	if patch.Theme != nil {
		s.current.Theme = *patch.Theme
	}
	if patch.NoTradeRules != nil {
		s.current.NoTradeRules = append([]string(nil), *patch.NoTradeRules...)
	}
	if patch.Language != nil {
		s.current.Language = *patch.Language
	}
	if patch.RiskTolerance != nil {
		s.current.RiskTolerance = *patch.RiskTolerance
	}

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return domain.Preferences{}, err
	}
	updated := s.current.Clone()
	s.mu.Unlock()

	// Bus handlers run synchronously and may read back through Current(),
	// so the lock must be released before emitting.
	s.events.Emit(events.PreferencesChanged, "preferences", nil)
	return updated, nil
}

// TogglePair adds or removes a pair from the selection.
func (s *Service) TogglePair(pairID string) (domain.Preferences, error) {
	s.mu.Lock()

	selected := s.current.SelectedPairs[:0:0]
	removed := false
	for _, id := range s.current.SelectedPairs {
		if id == pairID {
			removed = true
			continue
		}
		selected = append(selected, id)
	}
	if !removed {
		selected = append(selected, pairID)
	}
	s.current.SelectedPairs = selected

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return domain.Preferences{}, err
	}
	updated := s.current.Clone()
	s.mu.Unlock()

	s.events.Emit(events.PreferencesChanged, "preferences", map[string]interface{}{"pair": pairID})
	return updated, nil
}

// ToggleImpact adds or removes an impact grade from the filters.
func (s *Service) ToggleImpact(impact domain.Impact) (domain.Preferences, error) {
	if !impact.Valid() {
		return domain.Preferences{}, fmt.Errorf("unknown impact %q", impact)
	}

	s.mu.Lock()

	filters := s.current.ImpactFilters[:0:0]
	removed := false
	for _, f := range s.current.ImpactFilters {
		if f == impact {
			removed = true
			continue
		}
		filters = append(filters, f)
	}
	if !removed {
		filters = append(filters, impact)
	}
	s.current.ImpactFilters = filters

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return domain.Preferences{}, err
	}
	updated := s.current.Clone()
	s.mu.Unlock()

	s.events.Emit(events.PreferencesChanged, "preferences", map[string]interface{}{"impact": string(impact)})
	return updated, nil
}

// SetNotificationsEnabled flips the notification flag. Also used by the
// alert dispatcher to self-disable when OS permission is revoked.
func (s *Service) SetNotificationsEnabled(enabled bool) error {
	s.mu.Lock()

	if s.current.NotificationsEnabled == enabled {
		s.mu.Unlock()
		return nil
	}
	s.current.NotificationsEnabled = enabled

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.events.Emit(events.PreferencesChanged, "preferences", map[string]interface{}{"notificationsEnabled": enabled})
	return nil
}

// Reset restores defaults and clears the onboarding flag.
func (s *Service) Reset() error {
	s.mu.Lock()

	s.current = Defaults()
	s.onboarded = false

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.repo.Delete(keyOnboarded); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.events.Emit(events.AppReset, "preferences", nil)
	return nil
}

// load restores persisted state; absent keys leave defaults in place.
func (s *Service) load() error {
	raw, err := s.repo.Get(keyPreferences)
	if err != nil {
		return err
	}
	if raw != nil {
		var stored domain.Preferences
		if err := json.Unmarshal([]byte(*raw), &stored); err != nil {
			// A corrupt blob should not brick startup; keep defaults.
			s.log.Warn().Err(err).Msg("Failed to decode stored preferences, using defaults")
		} else {
			s.current = stored
		}
	}

	onboarded, err := s.repo.Get(keyOnboarded)
	if err != nil {
		return err
	}
	s.onboarded = onboarded != nil && *onboarded == "true"

	return nil
}

// persistLocked writes the current preferences; callers hold s.mu.
func (s *Service) persistLocked() error {
	blob, err := json.Marshal(s.current)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return s.repo.Set(keyPreferences, string(blob))
}
