package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/stocksim/internal/protocol"
	"github.com/efreitasn/stocksim/internal/scheduler"
	"github.com/efreitasn/stocksim/internal/transport"
)

// Config holds all runtime configuration shared by the market and
// trading processes.
type Config struct {
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	Transport     string
	KafkaBrokers  []string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SnapshotTopic string
	ActivityTopic string
	ConsumerGroup string

	TickDelay   time.Duration
	SimStep     time.Duration
	MarketOpen  time.Duration
	MarketClose time.Duration
	BrokerDelay time.Duration
	ReadyPoll   time.Duration
	RandomSeed  uint64
	SeedFile    string

	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	ConnectTimeout  time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:      getStr("LOG_LEVEL", "info"),
		LogFile:       getStr("LOG_FILE", ""),
		Transport:     strings.ToLower(getStr("TRANSPORT", transport.KindKafka)),
		KafkaBrokers:  splitList(getStr("KAFKA_BROKERS", "localhost:9092")),
		RedisAddr:     getStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getStr("REDIS_PASSWORD", ""),
		SnapshotTopic: getStr("SNAPSHOT_TOPIC", protocol.SnapshotStream),
		ActivityTopic: getStr("ACTIVITY_TOPIC", protocol.ActivityStream),
		ConsumerGroup: getStr("CONSUMER_GROUP", "stocksim"),
		SeedFile:      getStr("SEED_FILE", ""),
		HTTPAddr:      getStr("HTTP_ADDR", ""),
	}
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}
	switch cfg.Transport {
	case transport.KindKafka, transport.KindRedis, transport.KindMemory:
	default:
		return nil, fmt.Errorf("invalid TRANSPORT: %q, must be one of: kafka, redis, memory", cfg.Transport)
	}
	if cfg.Transport == transport.KindKafka && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("invalid KAFKA_BROKERS: at least one broker address is required")
	}
	if cfg.SnapshotTopic == cfg.ActivityTopic {
		return nil, fmt.Errorf("invalid ACTIVITY_TOPIC: must differ from SNAPSHOT_TOPIC %q", cfg.SnapshotTopic)
	}

	var err error
	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"LOG_MAX_SIZE_MB", 10, &cfg.LogMaxSizeMB},
		{"LOG_MAX_BACKUPS", 3, &cfg.LogMaxBackups},
		{"LOG_MAX_AGE_DAYS", 28, &cfg.LogMaxAgeDays},
		{"REDIS_DB", 0, &cfg.RedisDB},
	}
	for _, f := range ints {
		if *f.dst, err = getInt(f.key, f.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		if *f.dst < 0 {
			return nil, fmt.Errorf("invalid %s: must be >= 0", f.key)
		}
	}

	durations := []struct {
		key      string
		def      time.Duration
		dst      *time.Duration
		positive bool
	}{
		{"TICK_DELAY", 10 * time.Second, &cfg.TickDelay, false},
		{"SIM_STEP", scheduler.DefaultStep, &cfg.SimStep, true},
		{"BROKER_DELAY", 500 * time.Millisecond, &cfg.BrokerDelay, false},
		{"READY_POLL", 1 * time.Second, &cfg.ReadyPoll, false},
		{"READ_TIMEOUT", 5 * time.Second, &cfg.ReadTimeout, true},
		{"WRITE_TIMEOUT", 10 * time.Second, &cfg.WriteTimeout, true},
		{"IDLE_TIMEOUT", 60 * time.Second, &cfg.IdleTimeout, true},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownTimeout, true},
		{"CONNECT_TIMEOUT", 10 * time.Second, &cfg.ConnectTimeout, true},
	}
	for _, f := range durations {
		if *f.dst, err = getDuration(f.key, f.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		if *f.dst < 0 || (f.positive && *f.dst == 0) {
			return nil, fmt.Errorf("invalid %s: %s is out of range", f.key, *f.dst)
		}
	}

	if cfg.MarketOpen, err = scheduler.ParseTimeOfDay(getStr("MARKET_OPEN", "09:00")); err != nil {
		return nil, fmt.Errorf("invalid MARKET_OPEN: %w", err)
	}
	if cfg.MarketClose, err = scheduler.ParseTimeOfDay(getStr("MARKET_CLOSE", "16:00")); err != nil {
		return nil, fmt.Errorf("invalid MARKET_CLOSE: %w", err)
	}
	if cfg.MarketClose <= cfg.MarketOpen {
		return nil, fmt.Errorf("invalid MARKET_CLOSE: must be after MARKET_OPEN")
	}

	if v := os.Getenv("RANDOM_SEED"); v != "" {
		if cfg.RandomSeed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
		}
	}

	return cfg, nil
}

// TransportConfig returns the transport settings. Both topics are
// created up front where the backend supports it.
func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		Kind:          c.Transport,
		KafkaBrokers:  c.KafkaBrokers,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		Topics:        []string{c.SnapshotTopic, c.ActivityTopic},
	}
}

// Clock returns a fresh simulated clock at market open.
func (c *Config) Clock() (*scheduler.Clock, error) {
	return scheduler.NewClock(c.MarketOpen, c.MarketClose, c.SimStep)
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
