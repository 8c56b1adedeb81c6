package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// validLogLevels are the accepted log level values.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// durationEnvKeys lists the Config fields parsed as time.Duration that
// accept any non-negative value.
var durationEnvKeys = []string{
	"TICK_DELAY",
	"BROKER_DELAY",
	"READY_POLL",
}

// allEnvKeys is every config-related env var key.
var allEnvKeys = []string{
	"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"TRANSPORT", "KAFKA_BROKERS", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"SNAPSHOT_TOPIC", "ACTIVITY_TOPIC", "CONSUMER_GROUP",
	"TICK_DELAY", "SIM_STEP", "MARKET_OPEN", "MARKET_CLOSE", "BROKER_DELAY", "READY_POLL",
	"RANDOM_SEED", "SEED_FILE", "HTTP_ADDR",
	"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT", "CONNECT_TIMEOUT",
}

// unsetAllConfigEnv clears all config env vars.
func unsetAllConfigEnv() {
	for _, key := range allEnvKeys {
		os.Unsetenv(key)
	}
}

// genDurationString generates a valid Go duration string (e.g. "3s", "500ms", "2m").
func genDurationString() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		unit := rapid.SampledFrom([]string{"ms", "s", "m"}).Draw(t, "unit")
		val := rapid.IntRange(0, 600).Draw(t, "val")
		return fmt.Sprintf("%d%s", val, unit)
	})
}

func TestProperty_ValidConfigParsing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		logLevel := rapid.OneOf(rapid.Just(""), rapid.SampledFrom(validLogLevels)).Draw(t, "logLevel")
		if logLevel != "" {
			os.Setenv("LOG_LEVEL", logLevel)
		}

		durStrs := make(map[string]string, len(durationEnvKeys))
		for _, key := range durationEnvKeys {
			durStrs[key] = rapid.OneOf(rapid.Just(""), genDurationString()).Draw(t, key)
			if durStrs[key] != "" {
				os.Setenv(key, durStrs[key])
			}
		}

		openH := rapid.IntRange(0, 22).Draw(t, "openHour")
		closeH := rapid.IntRange(openH+1, 23).Draw(t, "closeHour")
		os.Setenv("MARKET_OPEN", fmt.Sprintf("%02d:00", openH))
		os.Setenv("MARKET_CLOSE", fmt.Sprintf("%02d:30", closeH))

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error for valid inputs: %v", err)
		}

		expectedLogLevel := "info"
		if logLevel != "" {
			expectedLogLevel = logLevel
		}
		if cfg.LogLevel != expectedLogLevel {
			t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, expectedLogLevel)
		}

		got := map[string]time.Duration{
			"TICK_DELAY":   cfg.TickDelay,
			"BROKER_DELAY": cfg.BrokerDelay,
			"READY_POLL":   cfg.ReadyPoll,
		}
		for _, key := range durationEnvKeys {
			if durStrs[key] == "" {
				continue
			}
			want, _ := time.ParseDuration(durStrs[key])
			if got[key] != want {
				t.Fatalf("%s = %v, want %v", key, got[key], want)
			}
		}

		if cfg.MarketOpen != time.Duration(openH)*time.Hour {
			t.Fatalf("MarketOpen = %v, want %dh", cfg.MarketOpen, openH)
		}
		if cfg.MarketClose != time.Duration(closeH)*time.Hour+30*time.Minute {
			t.Fatalf("MarketClose = %v", cfg.MarketClose)
		}
	})
}

func TestProperty_InvalidLogLevelReturnsError(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		invalidLevel := rapid.StringMatching(`[a-z]{1,20}`).Filter(func(s string) bool {
			for _, v := range validLogLevels {
				if s == v {
					return false
				}
			}
			return s != ""
		}).Draw(t, "invalidLevel")

		os.Setenv("LOG_LEVEL", invalidLevel)

		if _, err := Load(); err == nil {
			t.Fatalf("Load() should return error for invalid LOG_LEVEL %q", invalidLevel)
		}
	})
}

func TestProperty_InvalidDurationReturnsError(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				unsetAllConfigEnv()
				defer unsetAllConfigEnv()

				invalid := rapid.OneOf(
					rapid.StringMatching(`[a-z]{1,8}`),
					rapid.Just("10"),
					rapid.Just("1.5.s"),
				).Filter(func(s string) bool {
					_, err := time.ParseDuration(s)
					return err != nil
				}).Draw(t, "invalid")

				os.Setenv(key, invalid)

				if _, err := Load(); err == nil {
					t.Fatalf("Load() should return error for invalid %s %q", key, invalid)
				}
			})
		})
	}
}
