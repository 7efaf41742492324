package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/newsguard/internal/domain"
	"github.com/aristath/newsguard/pkg/logger"
)

func newTestStore() *Store {
	return NewStore(logger.New(logger.Config{Level: "error", Pretty: false}))
}

func TestSentimentsReplacedWholesale(t *testing.T) {
	store := newTestStore()

	store.SetSentiments([]domain.SentimentData{
		{Pair: "EURUSD", Bias: domain.Bullish, Score: 70},
		{Pair: "XAUUSD", Bias: domain.Neutral, Score: 50},
	})
	assert.Len(t, store.Sentiments(), 2)

	store.SetSentiments([]domain.SentimentData{{Pair: "GBPUSD", Bias: domain.Bearish, Score: 30}})

	got := store.Sentiments()
	require.Len(t, got, 1)
	assert.Equal(t, "GBPUSD", got[0].Pair)
}

func TestRiskScoresReturnsCopy(t *testing.T) {
	store := newTestStore()
	store.SetRiskScores(map[string]float64{"EURUSD": 5})

	scores := store.RiskScores()
	scores["EURUSD"] = 99

	assert.Equal(t, 5.0, store.RiskScores()["EURUSD"])
}

func TestTradeOfDay(t *testing.T) {
	store := newTestStore()
	assert.Nil(t, store.TradeOfDay())

	store.SetTradeOfDay(&domain.TradeSetup{Pair: "EURUSD", Bias: domain.Bullish})
	trade := store.TradeOfDay()
	require.NotNil(t, trade)
	assert.Equal(t, "EURUSD", trade.Pair)

	// Mutating the returned copy does not leak into the store.
	trade.Pair = "mutated"
	assert.Equal(t, "EURUSD", store.TradeOfDay().Pair)

	store.SetTradeOfDay(nil)
	assert.Nil(t, store.TradeOfDay())
}

func TestSummary(t *testing.T) {
	store := newTestStore()

	_, ok := store.Summary()
	assert.False(t, ok)

	store.SetRiskScores(map[string]float64{
		"EURUSD": 4,
		"GBPUSD": 6,
		"XAUUSD": 8,
	})

	summary, ok := store.Summary()
	require.True(t, ok)
	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 6.0, summary.Mean, 1e-9)
	assert.InDelta(t, 2.0, summary.StdDev, 1e-9)
	assert.Equal(t, 8.0, summary.Max)
	assert.Equal(t, "XAUUSD", summary.MaxPair)
}

func TestSummary_SingleScore(t *testing.T) {
	store := newTestStore()
	store.SetRiskScores(map[string]float64{"EURUSD": 7})

	summary, ok := store.Summary()
	require.True(t, ok)
	assert.Equal(t, 7.0, summary.Mean)
	assert.Equal(t, 0.0, summary.StdDev)
}

func TestReset(t *testing.T) {
	store := newTestStore()
	store.SetSentiments([]domain.SentimentData{{Pair: "EURUSD"}})
	store.SetRiskScores(map[string]float64{"EURUSD": 5})
	store.SetTradeOfDay(&domain.TradeSetup{Pair: "EURUSD"})

	store.Reset()

	assert.Empty(t, store.Sentiments())
	assert.Empty(t, store.RiskScores())
	assert.Nil(t, store.TradeOfDay())
}
