package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/pkg/logger"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(logger.New(logger.Config{Level: "error", Pretty: false}))
}

func event(title string, impact domain.Impact, noTrade bool) domain.NewsEvent {
	return domain.NewsEvent{
		ID:        title,
		Title:     title,
		Currency:  domain.USD,
		Impact:    impact,
		Time:      time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
		IsNoTrade: noTrade,
	}
}

func TestIsRestrictedEvent(t *testing.T) {
	e := newTestEvaluator()
	allRules := BuiltinIDs()

	tests := []struct {
		name    string
		event   domain.NewsEvent
		enabled []string
		want    bool
	}{
		{
			name:    "NFP keyword matches",
			event:   event("Non-Farm Payrolls", domain.ImpactHigh, false),
			enabled: allRules,
			want:    true,
		},
		{
			name:    "keyword match is case-insensitive",
			event:   event("fomc press conference", domain.ImpactHigh, false),
			enabled: allRules,
			want:    true,
		},
		{
			name:    "medium impact never restricts",
			event:   event("Non-Farm Payrolls", domain.ImpactMedium, false),
			enabled: allRules,
			want:    false,
		},
		{
			name:    "analyst no-trade flag restricts without keyword",
			event:   event("Surprise Rate Announcement", domain.ImpactHigh, true),
			enabled: nil,
			want:    true,
		},
		{
			name:    "no-trade flag on medium impact does not restrict",
			event:   event("Surprise Rate Announcement", domain.ImpactMedium, true),
			enabled: allRules,
			want:    false,
		},
		{
			name:    "disabled rule does not match",
			event:   event("Non-Farm Payrolls", domain.ImpactHigh, false),
			enabled: []string{"ECB_RATE"},
			want:    false,
		},
		{
			name:    "unknown rule id is ignored",
			event:   event("Non-Farm Payrolls", domain.ImpactHigh, false),
			enabled: []string{"NOT_A_RULE", "NFP"},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.IsRestrictedEvent(tt.event, tt.enabled))
		})
	}
}

func TestIsRestrictedDay(t *testing.T) {
	e := newTestEvaluator()

	calm := []domain.NewsEvent{
		event("German Flash Manufacturing PMI", domain.ImpactMedium, false),
		event("Crude Oil Inventories", domain.ImpactLow, false),
	}
	assert.False(t, e.IsRestrictedDay(calm, BuiltinIDs()))

	hot := append(calm, event("US CPI y/y", domain.ImpactHigh, false))
	assert.True(t, e.IsRestrictedDay(hot, BuiltinIDs()))

	// Same events, CPI rule disabled: no restriction.
	assert.False(t, e.IsRestrictedDay(hot, []string{"NFP", "ECB_RATE"}))
}

func TestIsRestrictedDay_MemoInvalidation(t *testing.T) {
	e := newTestEvaluator()
	enabled := BuiltinIDs()

	events := []domain.NewsEvent{event("Crude Oil Inventories", domain.ImpactLow, false)}
	assert.False(t, e.IsRestrictedDay(events, enabled))
	// Repeated call with identical inputs hits the memo.
	assert.False(t, e.IsRestrictedDay(events, enabled))

	// A changed collection must recompute, not reuse the memo.
	events = append(events, event("FOMC Rate Decision", domain.ImpactHigh, false))
	assert.True(t, e.IsRestrictedDay(events, enabled))

	// A changed rule set must recompute too.
	assert.False(t, e.IsRestrictedDay(events, []string{"NFP"}))

	// Enabled set is order-independent for memoization and result.
	assert.True(t, e.IsRestrictedDay(events, enabled))
	reversed := make([]string, len(enabled))
	for i, id := range enabled {
		reversed[len(enabled)-1-i] = id
	}
	assert.True(t, e.IsRestrictedDay(events, reversed))
}
