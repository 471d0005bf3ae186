package cache

import (
	"strings"
	"time"

	"algoforge-api/internal/config"
)

// Namespace is the Redis key prefix for the AlgoForge application.
const Namespace = "algoforge"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 30*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// MarketSnapshotKey stores the latest full snapshot payload (msgpack encoded),
// used to warm-start a restarted process before its first poll lands.
func MarketSnapshotKey(provider string) string {
	return formatKey("market", "snapshot", provider)
}

// IndexQuoteKey stores the latest quote for one index symbol.
func IndexQuoteKey(provider, symbol string) string {
	return formatKey("market", "index", provider, symbol)
}

// StockQuoteKey stores the latest quote for one stock symbol.
func StockQuoteKey(provider, symbol string) string {
	return formatKey("market", "stock", provider, symbol)
}

// MarketSnapshotTTL bounds how stale a warm-start payload may be. Warm starts
// are a restart nicety; a payload older than the long class is worse than a
// clean 503.
func MarketSnapshotTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// QuoteTTL returns the TTL for per-symbol quote keys.
func QuoteTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLShort)
}
