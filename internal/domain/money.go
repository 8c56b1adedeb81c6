package domain

import "github.com/shopspring/decimal"

// PricePrecision is the number of decimal places kept on registry prices
// after each fluctuation.
const PricePrecision = 4

// MinPrice is the floor applied to every fluctuated price.
var MinPrice = decimal.NewFromInt(1)

// Cost returns price × quantity.
func Cost(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}

// ClampPrice rounds p to PricePrecision places and raises it to MinPrice
// when it falls below the floor.
func ClampPrice(p decimal.Decimal) decimal.Decimal {
	p = p.Round(PricePrecision)
	if p.LessThan(MinPrice) {
		return MinPrice
	}
	return p
}

// Dollars formats an amount with two decimal places, e.g. "1500.25".
func Dollars(d decimal.Decimal) string {
	return d.StringFixed(2)
}
