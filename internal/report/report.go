// Package report prints the human-readable console tables: instrument
// prices and broker accounts.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/stocksim/internal/domain"
)

// Money formats an amount as "$20,000.00".
func Money(d decimal.Decimal) string {
	f := d.Round(2).InexactFloat64()
	if f < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -f)
	}
	return "$" + humanize.FormatFloat("#,###.##", f)
}

// Instruments writes a ticker/price/available table.
func Instruments(w io.Writer, title string, instruments []domain.Instrument) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "=== %s ===\n", title)
	fmt.Fprintln(tw, "TICKER\tPRICE\tAVAILABLE\t")
	for _, in := range instruments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", in.Ticker, Money(in.Price), humanize.Comma(in.Available))
	}
	return tw.Flush()
}

// Brokers writes one row per broker with cash, holdings value and total
// value at replica prices.
func Brokers(w io.Writer, title string, brokers []*domain.Broker, replica []domain.Instrument) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "=== %s ===\n", title)
	fmt.Fprintln(tw, "BROKER\tSTRATEGY\tCASH\tHOLDINGS VALUE\tTOTAL\tHOLDINGS")
	for _, b := range brokers {
		b.Mu.Lock()
		holdings := b.HoldingsValue(replica)
		row := fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s",
			b.ID, b.Variant, Money(b.Cash), Money(holdings), Money(b.Cash.Add(holdings)), positions(b))
		b.Mu.Unlock()
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}

func positions(b *domain.Broker) string {
	if len(b.Holdings) == 0 {
		return "-"
	}
	out := ""
	for i, t := range b.Tickers() {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s:%d", t, b.Holdings[t])
	}
	return out
}
