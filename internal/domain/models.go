// Package domain contains the shared data model for NewsGuard.
package domain

import "time"

// Impact represents the qualitative severity of a news event's expected
// market effect.
type Impact string

const (
	ImpactHigh   Impact = "HIGH"
	ImpactMedium Impact = "MEDIUM"
	ImpactLow    Impact = "LOW"
)

// Valid reports whether the impact is one of the known grades.
func (i Impact) Valid() bool {
	switch i {
	case ImpactHigh, ImpactMedium, ImpactLow:
		return true
	}
	return false
}

// Currency is the currency (or metal) a news event primarily affects.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	AUD Currency = "AUD"
	CAD Currency = "CAD"
	CHF Currency = "CHF"
	NZD Currency = "NZD"
	XAU Currency = "XAU"
	XAG Currency = "XAG"
)

// NewsEvent is a single scheduled macroeconomic event. Events are created
// wholesale by a sync batch and are immutable afterwards; the whole
// collection is replaced on the next successful sync.
type NewsEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Currency  Currency  `json:"currency"`
	Impact    Impact    `json:"impact"`
	Time      time.Time `json:"time"`
	Forecast  string    `json:"forecast,omitempty"`
	Previous  string    `json:"previous,omitempty"`
	Actual    string    `json:"actual,omitempty"`
	IsNoTrade bool      `json:"isNoTrade,omitempty"`
}

// Citation is a grounding source returned alongside AI-fetched news,
// shown for user verification.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewsBatch is the atomic result of one news fetch. Callers apply the whole
// batch or none of it.
type NewsBatch struct {
	Events  []NewsEvent `json:"events"`
	Sources []Citation  `json:"sources"`
}

// Bias is the directional bias of a sentiment reading or trade setup.
type Bias string

const (
	Bullish Bias = "BULLISH"
	Bearish Bias = "BEARISH"
	Neutral Bias = "NEUTRAL"
)

// SentimentData is an AI-produced sentiment reading for a single pair.
// Scores are opaque values in [0,100].
type SentimentData struct {
	Pair   string  `json:"pair"`
	Bias   Bias    `json:"bias"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// TradeLevels holds the price levels of a trade setup. Levels are opaque
// strings produced by the analyst; they are displayed, never computed on.
type TradeLevels struct {
	Entry  string `json:"entry"`
	Target string `json:"target"`
	Stop   string `json:"stop"`
}

// TradeSetup is the analyst's suggested trade of the day. At most one is
// active; it may be absent entirely.
type TradeSetup struct {
	Pair      string      `json:"pair"`
	Bias      Bias        `json:"bias"`
	Rationale string      `json:"rationale"`
	Levels    TradeLevels `json:"levels"`
}

// NoTradeRule describes one restriction condition: a high-impact event whose
// title matches any of the rule's keywords marks the day as restricted while
// the rule is enabled.
type NoTradeRule struct {
	ID          string   `json:"id"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description"`
	Volatility  int      `json:"volatility"` // 1..3
}

// TradingPair is an instrument the user can track.
type TradingPair struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category"` // Forex, Metals, Indices
	Currencies []Currency `json:"currencies"`
}

// AnalystOptions carries preference values snapshotted at the start of a sync
// and passed explicitly into every analyst call. Collaborators never read
// ambient preference state mid-flight.
type AnalystOptions struct {
	Language      Language      `json:"language"`
	RiskTolerance RiskTolerance `json:"riskTolerance"`
}
