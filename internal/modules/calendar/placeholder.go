package calendar

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/newsguard/internal/domain"
)

// placeholderSchedule mirrors a typical quiet trading day. Used only when the
// very first sync fails and there is nothing better to show.
var placeholderSchedule = []struct {
	hour, minute int
	title        string
	currency     domain.Currency
	impact       domain.Impact
	isNoTrade    bool
}{
	{9, 0, "German Manufacturing PMI", domain.EUR, domain.ImpactMedium, false},
	{10, 30, "GBP Services PMI", domain.GBP, domain.ImpactMedium, false},
	{14, 30, "US Core CPI m/m", domain.USD, domain.ImpactHigh, true},
	{14, 30, "US CPI y/y", domain.USD, domain.ImpactHigh, true},
	{16, 0, "FOMC Member Speaks", domain.USD, domain.ImpactLow, false},
	{20, 0, "Oil Inventories", domain.USD, domain.ImpactMedium, false},
}

// PlaceholderEvents generates a locally fabricated event set for the current
// day so the dashboard is never empty on first run.
func PlaceholderEvents(now time.Time) []domain.NewsEvent {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	events := make([]domain.NewsEvent, 0, len(placeholderSchedule))
	for _, entry := range placeholderSchedule {
		events = append(events, domain.NewsEvent{
			ID:        uuid.NewString(),
			Title:     entry.title,
			Currency:  entry.currency,
			Impact:    entry.impact,
			Time:      day.Add(time.Duration(entry.hour)*time.Hour + time.Duration(entry.minute)*time.Minute),
			Forecast:  fmt.Sprintf("%.1f%%", rand.Float64()*5),
			Previous:  fmt.Sprintf("%.1f%%", rand.Float64()*5),
			IsNoTrade: entry.isNoTrade,
		})
	}
	return events
}
