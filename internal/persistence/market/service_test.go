package marketpersist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	cachekeys "algoforge-api/internal/cache"
	"algoforge-api/internal/config"
	"algoforge-api/internal/model"
	"algoforge-api/pkg/market"
)

var errMiss = errors.New("memory cache: miss")

// memoryCache is an in-process stand-in for the Redis-backed cache node. It
// mirrors the node's json marshaling so []byte payloads roundtrip the same way.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) set(key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memoryCache) get(key string, val any) error {
	c.mu.Lock()
	data, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return errMiss
	}
	return json.Unmarshal(data, val)
}

func (c *memoryCache) Del(keys ...string) error { return c.DelCtx(context.Background(), keys...) }
func (c *memoryCache) DelCtx(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}
func (c *memoryCache) Get(key string, val any) error                 { return c.get(key, val) }
func (c *memoryCache) GetCtx(_ context.Context, key string, val any) error { return c.get(key, val) }
func (c *memoryCache) IsNotFound(err error) bool                     { return errors.Is(err, errMiss) }
func (c *memoryCache) Set(key string, val any) error                 { return c.set(key, val) }
func (c *memoryCache) SetCtx(_ context.Context, key string, val any) error { return c.set(key, val) }
func (c *memoryCache) SetWithExpire(key string, val any, _ time.Duration) error {
	return c.set(key, val)
}
func (c *memoryCache) SetWithExpireCtx(_ context.Context, key string, val any, _ time.Duration) error {
	return c.set(key, val)
}
func (c *memoryCache) Take(val any, key string, query func(val any) error) error {
	return c.TakeCtx(context.Background(), val, key, query)
}
func (c *memoryCache) TakeCtx(_ context.Context, val any, key string, query func(val any) error) error {
	if err := c.get(key, val); err == nil {
		return nil
	}
	if err := query(val); err != nil {
		return err
	}
	return c.set(key, val)
}
func (c *memoryCache) TakeWithExpire(val any, key string, query func(val any, expire time.Duration) error) error {
	return c.TakeWithExpireCtx(context.Background(), val, key, query)
}
func (c *memoryCache) TakeWithExpireCtx(_ context.Context, val any, key string, query func(val any, expire time.Duration) error) error {
	if err := c.get(key, val); err == nil {
		return nil
	}
	if err := query(val, 0); err != nil {
		return err
	}
	return c.set(key, val)
}

type memQuotesModel struct {
	mu   sync.Mutex
	rows map[string]*model.MarketQuote
	err  error
}

func newMemQuotesModel() *memQuotesModel {
	return &memQuotesModel{rows: make(map[string]*model.MarketQuote)}
}

func (m *memQuotesModel) Upsert(_ context.Context, quote *model.MarketQuote) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[quote.Provider+"/"+quote.Symbol] = quote
	return nil
}

func (m *memQuotesModel) FindOne(_ context.Context, provider, symbol string) (*model.MarketQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[provider+"/"+symbol]
	if !ok {
		return nil, model.ErrNotFound
	}
	return row, nil
}

type memSnapshotsModel struct {
	mu   sync.Mutex
	rows []*model.MarketSnapshot
}

func (m *memSnapshotsModel) Insert(_ context.Context, snapshot *model.MarketSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, snapshot)
	return nil
}

func (m *memSnapshotsModel) FindLatest(_ context.Context, provider string) (*model.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Provider == provider {
			return m.rows[i], nil
		}
	}
	return nil, model.ErrNotFound
}

func sampleSnapshot() *market.Snapshot {
	return market.BuildSnapshot(
		[]market.IndexQuote{{Name: "NIFTY 50", Symbol: "^NSEI", Value: 24100.5, Change: 120.3, ChangePercent: 0.5}},
		[]market.StockQuote{
			{Symbol: "RELIANCE.NS", Price: 2915.2, Change: 34.1, ChangePercent: 1.18},
			{Symbol: "TCS.NS", Price: 4110.9, Change: -52.3, ChangePercent: -1.26},
		},
		time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	)
}

func TestNewServiceDisabledWithoutSinks(t *testing.T) {
	if svc := NewService(Config{}); svc != nil {
		t.Fatalf("no sinks configured, expected nil service")
	}
}

func TestRecordSnapshotUpsertsRows(t *testing.T) {
	quotes := newMemQuotesModel()
	snapshots := &memSnapshotsModel{}
	svc := NewService(Config{QuotesModel: quotes, SnapshotsModel: snapshots})

	if err := svc.RecordSnapshot(context.Background(), "yahoo", sampleSnapshot()); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}

	index, err := quotes.FindOne(context.Background(), "yahoo", "^NSEI")
	if err != nil {
		t.Fatalf("index row missing: %v", err)
	}
	if index.Kind != model.QuoteKindIndex || index.Price != 24100.5 || !index.Name.Valid {
		t.Fatalf("index row wrong: %+v", index)
	}

	stockRow, err := quotes.FindOne(context.Background(), "yahoo", "TCS.NS")
	if err != nil {
		t.Fatalf("stock row missing: %v", err)
	}
	if stockRow.Kind != model.QuoteKindStock || stockRow.ChangePercent != -1.26 {
		t.Fatalf("stock row wrong: %+v", stockRow)
	}

	latest, err := snapshots.FindLatest(context.Background(), "yahoo")
	if err != nil {
		t.Fatalf("snapshot row missing: %v", err)
	}
	var payload market.Snapshot
	if err := json.Unmarshal([]byte(latest.Payload), &payload); err != nil {
		t.Fatalf("snapshot payload invalid: %v", err)
	}
	if len(payload.Indices) != 1 {
		t.Fatalf("snapshot payload wrong: %+v", payload)
	}
}

func TestRecordSnapshotRowFailurePropagates(t *testing.T) {
	quotes := newMemQuotesModel()
	quotes.err = errors.New("db down")
	svc := NewService(Config{QuotesModel: quotes})

	err := svc.RecordSnapshot(context.Background(), "yahoo", sampleSnapshot())
	if err == nil || !errors.Is(err, quotes.err) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestWarmStartRoundtrip(t *testing.T) {
	cache := newMemoryCache()
	ttl := cachekeys.NewTTLSet(config.CacheTTL{Short: 30, Medium: 60, Long: 300})
	svc := NewService(Config{Cache: cache, TTL: ttl})

	original := sampleSnapshot()
	if err := svc.RecordSnapshot(context.Background(), "yahoo", original); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}

	restored, err := svc.LoadCachedSnapshot(context.Background(), "yahoo")
	if err != nil {
		t.Fatalf("LoadCachedSnapshot: %v", err)
	}
	if restored == nil {
		t.Fatalf("expected cached snapshot")
	}
	if len(restored.Indices) != 1 || restored.Indices[0].Value != original.Indices[0].Value {
		t.Fatalf("restored snapshot drifted: %+v", restored.Indices)
	}
	if !restored.CapturedAt.Equal(original.CapturedAt) {
		t.Fatalf("capture time drifted: %s", restored.CapturedAt)
	}

	// The per-symbol quote keys are populated alongside the snapshot payload.
	var quote map[string]any
	if err := cache.get(cachekeys.IndexQuoteKey("yahoo", "^NSEI"), &quote); err != nil {
		t.Fatalf("index quote key missing: %v", err)
	}
	if quote["value"].(float64) != 24100.5 {
		t.Fatalf("index quote payload wrong: %+v", quote)
	}
}

func TestLoadCachedSnapshotColdCache(t *testing.T) {
	svc := NewService(Config{Cache: newMemoryCache()})
	snapshot, err := svc.LoadCachedSnapshot(context.Background(), "yahoo")
	if err != nil || snapshot != nil {
		t.Fatalf("cold cache should be (nil, nil), got %v %v", snapshot, err)
	}
}

func TestCacheDisabledByZeroTTL(t *testing.T) {
	cache := newMemoryCache()
	ttl := cachekeys.NewTTLSet(config.CacheTTL{Short: -1, Medium: -1, Long: -1})
	svc := NewService(Config{Cache: cache, TTL: ttl})

	if err := svc.RecordSnapshot(context.Background(), "yahoo", sampleSnapshot()); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	if len(cache.data) != 0 {
		t.Fatalf("zero ttl must disable caching, stored %d keys", len(cache.data))
	}
}
