package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradedesk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "PORT", "LOG_LEVEL", "KAFKA_BROKERS",
		"BACKTEST_COMMISSION", "ALPACA_API_KEY", "ALPACA_API_SECRET",
		"ALPACA_BASE_URL", "ALPACA_DATA_URL", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
storage:
  data_dir: "/tmp/tradedesk/data"
  sqlite_path: "/tmp/tradedesk/tradedesk.db"
server:
  host: "127.0.0.1"
  port: 8080
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
kafka:
  enabled: true
  brokers: ["localhost:9092"]
  group_id: "backtesting-group"
logging:
  level: "debug"
backtest:
  workers: 2
  queue_size: 16
  default_symbols: 5
  commission: 0.002
ingest:
  start_date: "2020-01-01"
  symbols: ["AAPL", "MSFT"]
  rate_limit_per_min: 100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/tradedesk/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/tradedesk/data")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 1 {
		t.Errorf("Kafka = %+v, want enabled with one broker", cfg.Kafka)
	}
	if cfg.Backtest.Workers != 2 {
		t.Errorf("Backtest.Workers = %d, want 2", cfg.Backtest.Workers)
	}
	if cfg.Backtest.Commission != 0.002 {
		t.Errorf("Backtest.Commission = %v, want 0.002", cfg.Backtest.Commission)
	}
	if len(cfg.Ingest.Symbols) != 2 || cfg.Ingest.Symbols[0] != "AAPL" {
		t.Errorf("Ingest.Symbols = %v, want [AAPL MSFT]", cfg.Ingest.Symbols)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
storage:
  data_dir: "/tmp/tradedesk/data"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 3002 {
		t.Errorf("default Server.Port = %d, want 3002", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Backtest.Workers != 4 {
		t.Errorf("default Backtest.Workers = %d, want 4", cfg.Backtest.Workers)
	}
	if cfg.Backtest.QueueSize != 64 {
		t.Errorf("default Backtest.QueueSize = %d, want 64", cfg.Backtest.QueueSize)
	}
	if cfg.Backtest.DefaultSymbols != 10 {
		t.Errorf("default Backtest.DefaultSymbols = %d, want 10", cfg.Backtest.DefaultSymbols)
	}
	if cfg.Backtest.Commission != 0.001 {
		t.Errorf("default Backtest.Commission = %v, want 0.001", cfg.Backtest.Commission)
	}
	if cfg.Kafka.Enabled {
		t.Error("Kafka should be disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
storage:
  data_dir: "/from/yaml"
backtest:
  commission: 0.001
`)

	t.Setenv("DATA_DIR", "/from/env")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("BACKTEST_COMMISSION", "0.005")
	t.Setenv("APCA_API_KEY_ID", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/from/env" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/from/env")
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Kafka.Brokers = %v, want two brokers from env", cfg.Kafka.Brokers)
	}
	if cfg.Backtest.Commission != 0.005 {
		t.Errorf("Backtest.Commission = %v, want 0.005", cfg.Backtest.Commission)
	}
	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "env-key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/tradedesk.yaml"); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}
