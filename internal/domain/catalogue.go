package domain

// TradingPairs is the built-in instrument catalogue the UI offers during
// onboarding and settings.
var TradingPairs = []TradingPair{
	{ID: "EURUSD", Name: "EURUSD", Category: "Forex", Currencies: []Currency{EUR, USD}},
	{ID: "GBPUSD", Name: "GBPUSD", Category: "Forex", Currencies: []Currency{GBP, USD}},
	{ID: "USDJPY", Name: "USDJPY", Category: "Forex", Currencies: []Currency{USD, JPY}},
	{ID: "USDCHF", Name: "USDCHF", Category: "Forex", Currencies: []Currency{USD, CHF}},
	{ID: "AUDUSD", Name: "AUDUSD", Category: "Forex", Currencies: []Currency{AUD, USD}},
	{ID: "NZDUSD", Name: "NZDUSD", Category: "Forex", Currencies: []Currency{NZD, USD}},
	{ID: "USDCAD", Name: "USDCAD", Category: "Forex", Currencies: []Currency{USD, CAD}},
	{ID: "XAUUSD", Name: "XAUUSD", Category: "Metals", Currencies: []Currency{XAU, USD}},
	{ID: "XAGUSD", Name: "XAGUSD", Category: "Metals", Currencies: []Currency{XAG, USD}},
	{ID: "US30", Name: "US30", Category: "Indices", Currencies: []Currency{USD}},
	{ID: "NAS100", Name: "NAS100", Category: "Indices", Currencies: []Currency{USD}},
	{ID: "SPX500", Name: "SPX500", Category: "Indices", Currencies: []Currency{USD}},
	{ID: "GER40", Name: "GER40", Category: "Indices", Currencies: []Currency{EUR}},
}

// CurrencyFlags maps a currency to the emoji shown next to it.
var CurrencyFlags = map[Currency]string{
	USD: "\U0001F1FA\U0001F1F8",
	EUR: "\U0001F1EA\U0001F1FA",
	GBP: "\U0001F1EC\U0001F1E7",
	JPY: "\U0001F1EF\U0001F1F5",
	AUD: "\U0001F1E6\U0001F1FA",
	CAD: "\U0001F1E8\U0001F1E6",
	CHF: "\U0001F1E8\U0001F1ED",
	NZD: "\U0001F1F3\U0001F1FF",
	XAU: "\U0001FA99",
	XAG: "\U0001F948",
}

// PairByID looks up an instrument in the catalogue.
func PairByID(id string) (TradingPair, bool) {
	for _, p := range TradingPairs {
		if p.ID == id {
			return p, true
		}
	}
	return TradingPair{}, false
}
