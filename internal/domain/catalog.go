package domain

import "github.com/shopspring/decimal"

// DefaultQuantity is the starting availability for every catalog instrument.
const DefaultQuantity = 100

// BrokerSeed describes one entry of the fixed broker roster.
type BrokerSeed struct {
	ID      int
	Cash    decimal.Decimal
	Variant Variant
}

var defaultPrices = []struct {
	ticker string
	price  float64
}{
	{"AAPL", 150}, {"GOOG", 2800}, {"AMZN", 3400}, {"MSFT", 310}, {"TSLA", 700},
	{"META", 320}, {"NFLX", 600}, {"NVDA", 800}, {"ORCL", 85}, {"CSCO", 54},
	{"ADBE", 560}, {"IBM", 120}, {"INTC", 29}, {"AMD", 85}, {"PYPL", 68},
	{"CRM", 210}, {"UBER", 46}, {"LYFT", 9}, {"TWTR", 60}, {"DIS", 92},
	{"SONY", 90}, {"BABA", 84}, {"V", 220}, {"MA", 370}, {"JPM", 145},
	{"BAC", 33}, {"C", 48}, {"WFC", 42}, {"T", 18}, {"VZ", 34},
	{"TMUS", 140}, {"SBUX", 95}, {"KO", 59}, {"PEP", 180}, {"MCD", 290},
	{"NKE", 92}, {"PG", 155}, {"XOM", 108}, {"CVX", 160}, {"BP", 36},
	{"F", 12}, {"GM", 32}, {"GE", 100}, {"BA", 190}, {"CAT", 260},
	{"DE", 380}, {"TSM", 90}, {"INTU", 490}, {"SQ", 55}, {"SHOP", 50},
	{"ZM", 69}, {"ROKU", 45}, {"DOCU", 45}, {"ETSY", 75}, {"SNOW", 150},
}

// DefaultCatalog returns the static seed list of instruments.
func DefaultCatalog() []Instrument {
	out := make([]Instrument, 0, len(defaultPrices))
	for _, p := range defaultPrices {
		out = append(out, Instrument{
			Ticker:    p.ticker,
			Price:     decimal.NewFromFloat(p.price),
			Available: DefaultQuantity,
		})
	}
	return out
}

// DefaultRoster returns the fixed set of brokers started by the trading side.
func DefaultRoster() []BrokerSeed {
	return []BrokerSeed{
		{ID: 1, Cash: decimal.NewFromInt(10_000), Variant: VariantRiskAverse},
		{ID: 2, Cash: decimal.NewFromInt(20_000), Variant: VariantAggressive},
		{ID: 3, Cash: decimal.NewFromInt(15_000), Variant: VariantRandom},
	}
}
