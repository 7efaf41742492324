package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/internal/events"
	"github.com/aristath/newsguard/internal/modules/calendar"
)

// PreferenceStore is the preference surface the dispatcher depends on.
type PreferenceStore interface {
	Current() domain.Preferences
	SetNotificationsEnabled(enabled bool) error
}

// DispatcherConfig holds dispatcher dependencies
type DispatcherConfig struct {
	Log          zerolog.Logger
	Calendar     *calendar.Repository
	Prefs        PreferenceStore
	Ledger       *Ledger
	Notifier     Notifier
	Events       *events.Manager
	PollInterval time.Duration
	PollSlack    time.Duration
	Clock        func() time.Time // defaults to time.Now
}

// Dispatcher polls the calendar and fires a notification once per event when
// it enters the configured lead window.
type Dispatcher struct {
	log       zerolog.Logger
	calendar  *calendar.Repository
	prefs     PreferenceStore
	ledger    *Ledger
	notifier  Notifier
	events    *events.Manager
	interval  time.Duration
	pollSlack time.Duration
	clock     func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher creates a new alert dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		log:       cfg.Log.With().Str("service", "alerts").Logger(),
		calendar:  cfg.Calendar,
		prefs:     cfg.Prefs,
		ledger:    cfg.Ledger,
		notifier:  cfg.Notifier,
		events:    cfg.Events,
		interval:  cfg.PollInterval,
		pollSlack: cfg.PollSlack,
		clock:     clock,
	}
}

// Start launches the polling loop. Calling Start twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.run(ctx)
	d.log.Info().Dur("interval", d.interval).Msg("Alert dispatcher started")
}

// Stop terminates the polling loop and waits for it to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.log.Info().Msg("Alert dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.RunCycle(ctx, d.clock())
		}
	}
}

// RunCycle executes one poll pass. Exported so the scheduler and tests can
// drive cycles without the ticker.
func (d *Dispatcher) RunCycle(ctx context.Context, now time.Time) {
	prefs := d.prefs.Current()
	if !prefs.NotificationsEnabled {
		return
	}

	// Revoked delivery capability flips the preference off rather than
	// silently failing every cycle.
	if d.notifier.Permission() == PermissionDenied {
		if err := d.prefs.SetNotificationsEnabled(false); err != nil {
			d.log.Error().Err(err).Msg("Failed to disable notifications")
			return
		}
		d.events.Emit(events.NotificationsDisabled, "alerts", map[string]interface{}{
			"reason": "permission denied",
		})
		d.log.Warn().Msg("Notification permission revoked, notifications disabled")
		return
	}

	next, ok := d.calendar.NextUpcoming(now)
	if !ok {
		return
	}

	until := next.Time.Sub(now)
	window := time.Duration(prefs.NotifyMinutesBefore) * time.Minute

	// Fire only inside the slack band at the top of the window: late
	// enough to be inside the lead time, early enough that we have not
	// drifted past it between polls. Events already inside the window at
	// startup (or after a lead-time change) do not retroactively alert.
	if until <= 0 || until > window || until <= window-d.pollSlack {
		return
	}

	key := Key(next.ID, prefs.NotifyMinutesBefore)
	delivered, err := d.ledger.Delivered(key)
	if err != nil {
		d.log.Error().Err(err).Str("key", key).Msg("Ledger lookup failed")
		return
	}
	if delivered {
		return
	}

	// Mark before delivering: a flaky notifier must never cause the same
	// alert to fire twice.
	if err := d.ledger.MarkDelivered(key, next.ID, next.Time, now); err != nil {
		d.log.Error().Err(err).Str("key", key).Msg("Failed to record delivery")
		return
	}

	title := fmt.Sprintf("%s %s %s", domain.CurrencyFlags[next.Currency], next.Currency, next.Impact)
	body := fmt.Sprintf("%s in %d min", next.Title, int(until.Round(time.Minute)/time.Minute))
	if err := d.notifier.Notify(ctx, title, body); err != nil {
		d.log.Error().Err(err).Str("event_id", next.ID).Msg("Notification delivery failed")
		return
	}

	d.events.Emit(events.AlertDelivered, "alerts", map[string]interface{}{
		"eventId":     next.ID,
		"title":       next.Title,
		"leadMinutes": prefs.NotifyMinutesBefore,
	})
}
