package marketpersist

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"

	cachekeys "algoforge-api/internal/cache"
	"algoforge-api/internal/model"
	"algoforge-api/pkg/market"
)

// Service mirrors captured snapshots into Postgres and Redis. Both sinks are
// optional; whichever dependency is missing is silently skipped so the
// ingestion path never depends on infrastructure being up.
type Service struct {
	quotesModel    model.MarketQuotesModel
	snapshotsModel model.MarketSnapshotsModel
	cache          gocache.Cache
	ttl            cachekeys.TTLSet
}

// Config enumerates dependencies required to persist market data.
type Config struct {
	QuotesModel    model.MarketQuotesModel
	SnapshotsModel model.MarketSnapshotsModel
	Cache          gocache.Cache
	TTL            cachekeys.TTLSet
}

// NewService wires a market persistence service. Returns nil when no sink is
// configured, which callers treat as "persistence disabled".
func NewService(cfg Config) *Service {
	if cfg.QuotesModel == nil && cfg.SnapshotsModel == nil && cfg.Cache == nil {
		return nil
	}
	return &Service{
		quotesModel:    cfg.QuotesModel,
		snapshotsModel: cfg.SnapshotsModel,
		cache:          cfg.Cache,
		ttl:            cfg.TTL,
	}
}

var _ market.Persistence = (*Service)(nil)

// RecordSnapshot persists one captured snapshot: latest-quote upserts, an
// append-only snapshot row, and Redis payloads for warm starts.
func (s *Service) RecordSnapshot(ctx context.Context, provider string, snapshot *market.Snapshot) error {
	if s == nil || snapshot == nil || strings.TrimSpace(provider) == "" {
		return nil
	}
	if err := s.recordRows(ctx, provider, snapshot); err != nil {
		return err
	}
	s.cacheSnapshot(ctx, provider, snapshot)
	s.cacheQuotes(ctx, provider, snapshot)
	return nil
}

// LoadCachedSnapshot retrieves the warm-start payload, if Redis holds one.
func (s *Service) LoadCachedSnapshot(ctx context.Context, provider string) (*market.Snapshot, error) {
	if s == nil || s.cache == nil {
		return nil, nil
	}
	key := cachekeys.MarketSnapshotKey(provider)
	var data []byte
	if err := s.cache.GetCtx(ctx, key, &data); err != nil {
		if s.cache.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return market.DecodeSnapshot(data)
}

func (s *Service) recordRows(ctx context.Context, provider string, snapshot *market.Snapshot) error {
	if s.quotesModel != nil {
		tsMs := snapshot.CapturedAt.UTC().UnixMilli()
		for _, index := range snapshot.Indices {
			row := &model.MarketQuote{
				Provider:      provider,
				Symbol:        index.Symbol,
				Kind:          model.QuoteKindIndex,
				Name:          sql.NullString{String: index.Name, Valid: index.Name != ""},
				Price:         index.Value,
				Change:        index.Change,
				ChangePercent: index.ChangePercent,
				DayHigh:       sql.NullFloat64{Float64: index.High, Valid: true},
				DayLow:        sql.NullFloat64{Float64: index.Low, Valid: true},
				TsMs:          tsMs,
			}
			if err := s.quotesModel.Upsert(ctx, row); err != nil {
				return err
			}
		}
		for _, stock := range snapshot.TopStocks {
			row := &model.MarketQuote{
				Provider:      provider,
				Symbol:        stock.Symbol,
				Kind:          model.QuoteKindStock,
				Price:         stock.Price,
				Change:        stock.Change,
				ChangePercent: stock.ChangePercent,
				DayHigh:       sql.NullFloat64{Float64: stock.High, Valid: true},
				DayLow:        sql.NullFloat64{Float64: stock.Low, Valid: true},
				Volume:        sql.NullFloat64{Float64: stock.Volume, Valid: true},
				Open:          sql.NullFloat64{Float64: stock.Open, Valid: true},
				PreviousClose: sql.NullFloat64{Float64: stock.PreviousClose, Valid: true},
				TsMs:          tsMs,
			}
			if err := s.quotesModel.Upsert(ctx, row); err != nil {
				return err
			}
		}
	}
	if s.snapshotsModel != nil {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		row := &model.MarketSnapshot{
			Provider:   provider,
			Payload:    string(payload),
			CapturedAt: snapshot.CapturedAt.UTC(),
		}
		if err := s.snapshotsModel.Insert(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) cacheSnapshot(ctx context.Context, provider string, snapshot *market.Snapshot) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.MarketSnapshotTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	data, err := market.EncodeSnapshot(snapshot)
	if err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: encode snapshot provider=%s err=%v", provider, err)
		return
	}
	key := cachekeys.MarketSnapshotKey(provider)
	if err := s.cache.SetWithExpireCtx(ctx, key, data, ttl); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache snapshot key=%s err=%v", key, err)
	}
}

func (s *Service) cacheQuotes(ctx context.Context, provider string, snapshot *market.Snapshot) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.QuoteTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	ts := snapshot.CapturedAt.UTC().UnixMilli()
	for _, index := range snapshot.Indices {
		key := cachekeys.IndexQuoteKey(provider, index.Symbol)
		payload := map[string]any{
			"value":         index.Value,
			"change":        index.Change,
			"changePercent": index.ChangePercent,
			"ts":            ts,
		}
		if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
			logx.WithContext(ctx).Errorf("marketpersist: cache index key=%s err=%v", key, err)
		}
	}
	for _, stock := range snapshot.TopStocks {
		key := cachekeys.StockQuoteKey(provider, stock.Symbol)
		payload := map[string]any{
			"price":         stock.Price,
			"change":        stock.Change,
			"changePercent": stock.ChangePercent,
			"ts":            ts,
		}
		if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
			logx.WithContext(ctx).Errorf("marketpersist: cache stock key=%s err=%v", key, err)
		}
	}
}
