package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/efreitasn/stocksim/internal/domain"
)

// Seed is the startup catalog and broker roster.
type Seed struct {
	Instruments []domain.Instrument
	Brokers     []domain.BrokerSeed
}

type seedFile struct {
	Instruments []instrumentEntry `yaml:"instruments"`
	Brokers     []brokerEntry     `yaml:"brokers"`
}

type instrumentEntry struct {
	Ticker   string  `yaml:"ticker"`
	Price    float64 `yaml:"price"`
	Quantity *int64  `yaml:"quantity"`
}

type brokerEntry struct {
	ID       int     `yaml:"id"`
	Cash     float64 `yaml:"cash"`
	Strategy string  `yaml:"strategy"`
}

// DefaultSeed returns the built-in catalog and roster.
func DefaultSeed() Seed {
	return Seed{Instruments: domain.DefaultCatalog(), Brokers: domain.DefaultRoster()}
}

// LoadSeed reads a YAML seed file. An empty path yields DefaultSeed. A
// file may override only one of the two sections; the other keeps its
// default. Instruments without a quantity start at
// domain.DefaultQuantity.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses seed YAML; see LoadSeed.
func ParseSeed(data []byte) (Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Seed{}, fmt.Errorf("parse seed file: %w", err)
	}

	seed := DefaultSeed()
	if len(f.Instruments) > 0 {
		seed.Instruments = make([]domain.Instrument, 0, len(f.Instruments))
		for _, e := range f.Instruments {
			if e.Ticker == "" {
				return Seed{}, &domain.ValidationError{Message: "seed instrument without ticker"}
			}
			qty := int64(domain.DefaultQuantity)
			if e.Quantity != nil {
				qty = *e.Quantity
			}
			seed.Instruments = append(seed.Instruments, domain.Instrument{
				Ticker:    e.Ticker,
				Price:     decimal.NewFromFloat(e.Price),
				Available: qty,
			})
		}
	}
	if len(f.Brokers) > 0 {
		seed.Brokers = make([]domain.BrokerSeed, 0, len(f.Brokers))
		for _, e := range f.Brokers {
			variant, err := domain.ParseVariant(e.Strategy)
			if err != nil {
				return Seed{}, fmt.Errorf("broker %d: %w", e.ID, err)
			}
			seed.Brokers = append(seed.Brokers, domain.BrokerSeed{
				ID:      e.ID,
				Cash:    decimal.NewFromFloat(e.Cash),
				Variant: variant,
			})
		}
	}
	return seed, nil
}
