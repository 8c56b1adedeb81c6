package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/stocksim/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Transport != "kafka" {
		t.Errorf("Transport = %q, want kafka", cfg.Transport)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.SnapshotTopic != "stock_updates" || cfg.ActivityTopic != "broker_activities" {
		t.Errorf("topics = %q, %q", cfg.SnapshotTopic, cfg.ActivityTopic)
	}
	if cfg.TickDelay != 10*time.Second {
		t.Errorf("TickDelay = %v, want 10s", cfg.TickDelay)
	}
	if cfg.SimStep != 30*time.Minute {
		t.Errorf("SimStep = %v, want 30m", cfg.SimStep)
	}
	if cfg.MarketOpen != 9*time.Hour || cfg.MarketClose != 16*time.Hour {
		t.Errorf("market hours = %v - %v", cfg.MarketOpen, cfg.MarketClose)
	}
	if cfg.BrokerDelay != 500*time.Millisecond {
		t.Errorf("BrokerDelay = %v, want 500ms", cfg.BrokerDelay)
	}
	if cfg.ReadyPoll != time.Second {
		t.Errorf("ReadyPoll = %v, want 1s", cfg.ReadyPoll)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr = %q, want disabled", cfg.HTTPAddr)
	}
	if cfg.RandomSeed != 0 {
		t.Errorf("RandomSeed = %d, want 0", cfg.RandomSeed)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRANSPORT", "Redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("TICK_DELAY", "0s")
	t.Setenv("SIM_STEP", "1h")
	t.Setenv("MARKET_OPEN", "10:00")
	t.Setenv("MARKET_CLOSE", "12:00")
	t.Setenv("HTTP_ADDR", ":8081")
	t.Setenv("RANDOM_SEED", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Transport != "redis" {
		t.Errorf("Transport = %q, want redis", cfg.Transport)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.RedisAddr != "cache:6380" || cfg.RedisDB != 2 {
		t.Errorf("redis = %s/%d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.TickDelay != 0 {
		t.Errorf("TickDelay = %v, want 0", cfg.TickDelay)
	}
	if cfg.RandomSeed != 42 {
		t.Errorf("RandomSeed = %d, want 42", cfg.RandomSeed)
	}

	clock, err := cfg.Clock()
	if err != nil {
		t.Fatalf("Clock: %v", err)
	}
	if clock.Rounds() != 2 {
		t.Errorf("Rounds() = %d, want 2", clock.Rounds())
	}

	tc := cfg.TransportConfig()
	if tc.Kind != "redis" || len(tc.Topics) != 2 {
		t.Errorf("TransportConfig = %+v", tc)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"transport":       {"TRANSPORT": "rabbitmq"},
		"same topics":     {"SNAPSHOT_TOPIC": "x", "ACTIVITY_TOPIC": "x"},
		"no kafka broker": {"KAFKA_BROKERS": " , "},
		"sim step zero":   {"SIM_STEP": "0s"},
		"negative delay":  {"TICK_DELAY": "-1s"},
		"open format":     {"MARKET_OPEN": "9am"},
		"close <= open":   {"MARKET_OPEN": "16:00", "MARKET_CLOSE": "09:00"},
		"random seed":     {"RANDOM_SEED": "-3"},
		"negative int":    {"LOG_MAX_BACKUPS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestLoadSeed_DefaultsWithoutFile(t *testing.T) {
	seed, err := LoadSeed("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seed.Instruments) != 55 {
		t.Errorf("instruments = %d, want 55", len(seed.Instruments))
	}
	if len(seed.Brokers) != 3 {
		t.Errorf("brokers = %d, want 3", len(seed.Brokers))
	}
}

func TestLoadSeed_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
instruments:
  - ticker: AAPL
    price: 150
  - ticker: XYZ
    price: 12.5
    quantity: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seed.Instruments) != 2 {
		t.Fatalf("instruments = %d, want 2", len(seed.Instruments))
	}
	if seed.Instruments[0].Available != domain.DefaultQuantity {
		t.Errorf("AAPL quantity = %d, want default", seed.Instruments[0].Available)
	}
	if !seed.Instruments[1].Price.Equal(decimal.NewFromFloat(12.5)) || seed.Instruments[1].Available != 7 {
		t.Errorf("XYZ = %+v", seed.Instruments[1])
	}
	if len(seed.Brokers) != 3 {
		t.Errorf("brokers = %d, want default roster", len(seed.Brokers))
	}
}

func TestParseSeed_Brokers(t *testing.T) {
	seed, err := ParseSeed([]byte(`
brokers:
  - id: 7
    cash: 500
    strategy: RiskAverse
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seed.Brokers) != 1 {
		t.Fatalf("brokers = %d, want 1", len(seed.Brokers))
	}
	b := seed.Brokers[0]
	if b.ID != 7 || !b.Cash.Equal(decimal.NewFromInt(500)) || b.Variant != domain.VariantRiskAverse {
		t.Errorf("broker = %+v", b)
	}
}

func TestParseSeed_Invalid(t *testing.T) {
	var ve *domain.ValidationError
	if _, err := ParseSeed([]byte("brokers:\n  - id: 1\n    strategy: yolo\n")); !errors.As(err, &ve) {
		t.Errorf("unknown strategy error = %v, want ValidationError", err)
	}
	if _, err := ParseSeed([]byte("instruments:\n  - price: 3\n")); !errors.As(err, &ve) {
		t.Errorf("missing ticker error = %v, want ValidationError", err)
	}
	if _, err := ParseSeed([]byte("instruments: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
