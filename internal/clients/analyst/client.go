// Package analyst is the HTTP client for the external AI analyst service.
// The service wraps a language model with search grounding; everything it
// returns (scores, biases, narratives, audio) is opaque to NewsGuard and is
// surfaced to the user as-is.
package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/domain"
)

// Client talks to the analyst service
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new analyst client
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.With().Str("client", "analyst").Logger(),
	}
}

// FetchNews fetches the scheduled economic events for the given date hint
// (YYYY-MM-DD) and the next 24 hours, together with grounding sources.
// The result is atomic: on error nothing of it may be applied.
func (c *Client) FetchNews(ctx context.Context, dateHint string, currencies []domain.Currency) (*domain.NewsBatch, error) {
	var batch domain.NewsBatch
	err := c.postJSON(ctx, "/v1/news", newsRequest{DateHint: dateHint, Currencies: currencies}, &batch)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}

	// Events without a parseable id or time cannot be ordered or
	// deduplicated downstream; treat them as a malformed batch.
	seen := make(map[string]bool, len(batch.Events))
	for _, ev := range batch.Events {
		if ev.ID == "" || ev.Time.IsZero() {
			return nil, fmt.Errorf("malformed news batch: event %q missing id or time", ev.Title)
		}
		if seen[ev.ID] {
			return nil, fmt.Errorf("malformed news batch: duplicate event id %q", ev.ID)
		}
		seen[ev.ID] = true
	}

	return &batch, nil
}

// FetchSentiment returns sentiment readings for the given pairs in the
// context of the supplied events.
func (c *Client) FetchSentiment(ctx context.Context, events []domain.NewsEvent, pairs []string, opts domain.AnalystOptions) ([]domain.SentimentData, error) {
	var out []domain.SentimentData
	err := c.postJSON(ctx, "/v1/sentiment", sentimentRequest{Events: events, Pairs: pairs, Options: opts}, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sentiment: %w", err)
	}
	return out, nil
}

// FetchRiskScores returns a 0-10 risk score per pair.
func (c *Client) FetchRiskScores(ctx context.Context, events []domain.NewsEvent, pairs []string, opts domain.AnalystOptions) (map[string]float64, error) {
	var out riskScoreResponse
	err := c.postJSON(ctx, "/v1/risk-scores", riskScoreRequest{Events: events, Pairs: pairs, Options: opts}, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch risk scores: %w", err)
	}
	return out.Scores, nil
}

// FetchTradeOfDay returns the analyst's suggested setup, or nil when it
// declines to suggest one.
func (c *Client) FetchTradeOfDay(ctx context.Context, events []domain.NewsEvent, sentiments []domain.SentimentData, opts domain.AnalystOptions) (*domain.TradeSetup, error) {
	var out tradeOfDayResponse
	err := c.postJSON(ctx, "/v1/trade-of-day", tradeOfDayRequest{Events: events, Sentiments: sentiments, Options: opts}, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trade of day: %w", err)
	}
	return out.Trade, nil
}

// FetchEventRiskNarrative returns a markdown risk assessment for one event.
func (c *Client) FetchEventRiskNarrative(ctx context.Context, event domain.NewsEvent, opts domain.AnalystOptions) (string, error) {
	var out narrativeResponse
	err := c.postJSON(ctx, "/v1/assessment", narrativeRequest{Event: &event, Options: opts}, &out)
	if err != nil {
		return "", fmt.Errorf("failed to fetch assessment: %w", err)
	}
	return out.Text, nil
}

// FetchDailyPlanNarrative returns a markdown plan for the trading day.
func (c *Client) FetchDailyPlanNarrative(ctx context.Context, events []domain.NewsEvent, sentiments []domain.SentimentData, opts domain.AnalystOptions) (string, error) {
	var out narrativeResponse
	err := c.postJSON(ctx, "/v1/daily-plan", narrativeRequest{Events: events, Sentiments: sentiments, Options: opts}, &out)
	if err != nil {
		return "", fmt.Errorf("failed to fetch daily plan: %w", err)
	}
	return out.Text, nil
}

// FetchAudioBriefing returns a spoken briefing as raw PCM bytes. A nil slice
// with nil error means the service had no qualifying high-impact events to
// summarize.
func (c *Client) FetchAudioBriefing(ctx context.Context, events []domain.NewsEvent, opts domain.AnalystOptions) ([]byte, error) {
	body, err := json.Marshal(briefingRequest{Events: events, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode briefing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/briefing/audio", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio briefing: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		audio, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio briefing: %w", err)
		}
		return audio, nil
	case http.StatusNoContent:
		// No high-impact events today.
		return nil, nil
	default:
		return nil, fmt.Errorf("audio briefing request failed with status %d", resp.StatusCode)
	}
}

// postJSON posts a JSON body and decodes a JSON response
func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Analyst request completed")

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request to %s failed with status %d: %s", path, resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
