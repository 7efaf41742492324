package analyst

import "github.com/aristath/newsguard/internal/domain"

// Request/response bodies for the analyst service. The service owns the
// concrete schema; these mirror it one-to-one.

type newsRequest struct {
	DateHint   string            `json:"dateHint,omitempty"`
	Currencies []domain.Currency `json:"currencies,omitempty"`
}

type sentimentRequest struct {
	Events  []domain.NewsEvent    `json:"events"`
	Pairs   []string              `json:"pairs"`
	Options domain.AnalystOptions `json:"options"`
}

type riskScoreRequest struct {
	Events  []domain.NewsEvent    `json:"events"`
	Pairs   []string              `json:"pairs"`
	Options domain.AnalystOptions `json:"options"`
}

type riskScoreResponse struct {
	Scores map[string]float64 `json:"scores"`
}

type tradeOfDayRequest struct {
	Events     []domain.NewsEvent     `json:"events"`
	Sentiments []domain.SentimentData `json:"sentiments"`
	Options    domain.AnalystOptions  `json:"options"`
}

type tradeOfDayResponse struct {
	Trade *domain.TradeSetup `json:"trade"`
}

type narrativeRequest struct {
	Event      *domain.NewsEvent      `json:"event,omitempty"`
	Events     []domain.NewsEvent     `json:"events,omitempty"`
	Sentiments []domain.SentimentData `json:"sentiments,omitempty"`
	Options    domain.AnalystOptions  `json:"options"`
}

type narrativeResponse struct {
	Text string `json:"text"`
}

type briefingRequest struct {
	Events  []domain.NewsEvent    `json:"events"`
	Options domain.AnalystOptions `json:"options"`
}
