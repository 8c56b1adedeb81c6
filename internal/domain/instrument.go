package domain

import "github.com/shopspring/decimal"

// Instrument is a tradable ticker. The market side owns the canonical
// copy; the trading side only ever holds disposable copies inside a
// replica snapshot.
type Instrument struct {
	Ticker    string
	Price     decimal.Decimal
	Available int64
}

// FindInstrument returns the instrument with the given ticker from a
// snapshot slice.
func FindInstrument(instruments []Instrument, ticker string) (Instrument, bool) {
	for _, inst := range instruments {
		if inst.Ticker == ticker {
			return inst, true
		}
	}
	return Instrument{}, false
}
