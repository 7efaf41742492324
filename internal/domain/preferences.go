package domain

// Language is the UI/narrative language the analyst should answer in.
type Language string

const (
	LangEN Language = "en"
	LangFR Language = "fr"
	LangES Language = "es"
	LangDE Language = "de"
	LangJP Language = "jp"
)

// RiskTolerance shapes the tone of analyst narratives.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Preferences is the user's durable configuration. The preferences service is
// the single writer; every other component reads a copy.
type Preferences struct {
	SelectedPairs        []string      `json:"selectedPairs"`
	ImpactFilters        []Impact      `json:"impactFilters"`
	AlwaysIncludeUSD     bool          `json:"alwaysIncludeUSD"`
	Timezone             string        `json:"timezone"`
	NotificationsEnabled bool          `json:"notificationsEnabled"`
	NotifyMinutesBefore  int           `json:"notifyMinutesBefore"`
	Theme                Theme         `json:"theme"`
	NoTradeRules         []string      `json:"noTradeRules"`
	Language             Language      `json:"language"`
	RiskTolerance        RiskTolerance `json:"riskTolerance"`
}

// HasPair reports whether the pair is currently selected.
func (p Preferences) HasPair(id string) bool {
	for _, pair := range p.SelectedPairs {
		if pair == id {
			return true
		}
	}
	return false
}

// HasImpact reports whether the impact grade passes the user's filters.
func (p Preferences) HasImpact(i Impact) bool {
	for _, f := range p.ImpactFilters {
		if f == i {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hold preferences without aliasing
// the store's slices.
func (p Preferences) Clone() Preferences {
	out := p
	out.SelectedPairs = append([]string(nil), p.SelectedPairs...)
	out.ImpactFilters = append([]Impact(nil), p.ImpactFilters...)
	out.NoTradeRules = append([]string(nil), p.NoTradeRules...)
	return out
}

// AnalystOpts extracts the values collaborator calls need, snapshotted once
// per sync.
func (p Preferences) AnalystOpts() AnalystOptions {
	return AnalystOptions{Language: p.Language, RiskTolerance: p.RiskTolerance}
}

// FocusCurrencies returns the currencies covered by the selected pairs, with
// USD appended when the always-include flag is set.
func (p Preferences) FocusCurrencies() []Currency {
	seen := make(map[Currency]bool)
	var out []Currency
	add := func(c Currency) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, id := range p.SelectedPairs {
		if pair, ok := PairByID(id); ok {
			for _, c := range pair.Currencies {
				add(c)
			}
		}
	}
	if p.AlwaysIncludeUSD {
		add(USD)
	}
	return out
}
