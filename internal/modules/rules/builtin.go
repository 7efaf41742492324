// Package rules evaluates no-trade restriction conditions against the
// current event collection.
package rules

import "github.com/aristath/newsguard/internal/domain"

// Builtin returns the built-in no-trade rule set. Rule ids double as the
// preference keys that enable them.
func Builtin() []domain.NoTradeRule {
	return []domain.NoTradeRule{
		{ID: "NFP", Keywords: []string{"Non-Farm Payroll", "NFP"}, Description: "Extremely high volatility in seconds.", Volatility: 3},
		{ID: "FOMC_RATE", Keywords: []string{"FOMC Rate Decision", "Interest Rate Decision"}, Description: "Directs the dollar trend.", Volatility: 3},
		{ID: "CPI", Keywords: []string{"CPI", "Consumer Price Index", "Inflation"}, Description: "Huge impact on central bank rates.", Volatility: 3},
		{ID: "FOMC_CONF", Keywords: []string{"FOMC Press Conference"}, Description: "Market reactions to Q&A.", Volatility: 2},
		{ID: "FED_POWELL", Keywords: []string{"Powell"}, Description: "Hints on monetary policy.", Volatility: 2},
		{ID: "ECB_RATE", Keywords: []string{"ECB Interest Rate Decision"}, Description: "Major EUR movement.", Volatility: 3},
	}
}

// BuiltinIDs returns the ids of all built-in rules, in declaration order.
func BuiltinIDs() []string {
	builtin := Builtin()
	ids := make([]string, len(builtin))
	for i, r := range builtin {
		ids[i] = r.ID
	}
	return ids
}
