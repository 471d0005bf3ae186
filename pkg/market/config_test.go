package market_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	market "algoforge-api/pkg/market"
	_ "algoforge-api/pkg/market/providers/yahoo"
)

func TestLoadMarketConfig(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
default: yahoo
providers:
  yahoo:
    type: yahoo
    base_url: https://query1.finance.yahoo.com/v7/finance/quote
    timeout: 6s
    http_timeout: 12s
    max_retries: 4
indices:
  - ^BSESN
  - ^NSEI
stocks:
  - RELIANCE.NS
  - TCS.NS
`
	path := filepath.Join(dir, "market.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := market.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Default != "yahoo" {
		t.Fatalf("unexpected default: %s", cfg.Default)
	}
	if len(cfg.Indices) != 2 || cfg.Indices[0] != "^BSESN" {
		t.Fatalf("unexpected indices: %v", cfg.Indices)
	}
	if len(cfg.Stocks) != 2 {
		t.Fatalf("unexpected stocks: %v", cfg.Stocks)
	}

	providers, err := cfg.BuildProviders()
	if err != nil {
		t.Fatalf("BuildProviders error: %v", err)
	}
	if len(providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(providers))
	}
	if _, ok := providers["yahoo"]; !ok {
		t.Fatalf("provider map missing yahoo")
	}
}

func TestMarketConfigInvalidType(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
providers:
  demo:
    type: foobar
indices:
  - ^NSEI
`
	path := filepath.Join(dir, "market.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := market.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

func TestMarketConfigNoProviders(t *testing.T) {
	_, err := market.LoadConfigFromReader(strings.NewReader("indices:\n  - ^NSEI\n"))
	if err == nil || !strings.Contains(err.Error(), "providers") {
		t.Fatalf("expected providers error, got %v", err)
	}
}

func TestMarketConfigSymbolNormalisation(t *testing.T) {
	configYAML := `
default: yahoo
providers:
  yahoo:
    type: yahoo
indices:
  - " ^nsei "
  - ^NSEI
  - ""
stocks:
  - reliance.ns
  - RELIANCE.NS
`
	cfg, err := market.LoadConfigFromReader(strings.NewReader(configYAML))
	if err != nil {
		t.Fatalf("LoadConfigFromReader: %v", err)
	}
	if len(cfg.Indices) != 1 || cfg.Indices[0] != "^NSEI" {
		t.Fatalf("indices not normalised: %v", cfg.Indices)
	}
	if len(cfg.Stocks) != 1 || cfg.Stocks[0] != "RELIANCE.NS" {
		t.Fatalf("stocks not normalised: %v", cfg.Stocks)
	}
}

func TestMarketConfigDefaultIndices(t *testing.T) {
	configYAML := `
default: yahoo
providers:
  yahoo:
    type: yahoo
`
	cfg, err := market.LoadConfigFromReader(strings.NewReader(configYAML))
	if err != nil {
		t.Fatalf("LoadConfigFromReader: %v", err)
	}
	if len(cfg.Indices) != len(market.DefaultIndices) {
		t.Fatalf("expected default indices, got %v", cfg.Indices)
	}
	for i, sym := range market.DefaultIndices {
		if cfg.Indices[i] != sym {
			t.Fatalf("default indices mismatch: %v", cfg.Indices)
		}
	}
}
