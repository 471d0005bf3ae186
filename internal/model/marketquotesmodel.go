package model

import (
	"context"
	"database/sql"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ MarketQuotesModel = (*defaultMarketQuotesModel)(nil)

// Quote kinds stored in market_quotes.kind.
const (
	QuoteKindIndex = "index"
	QuoteKindStock = "stock"
)

type (
	// MarketQuotesModel persists the latest quote row per (provider, symbol).
	MarketQuotesModel interface {
		Upsert(ctx context.Context, quote *MarketQuote) error
		FindOne(ctx context.Context, provider, symbol string) (*MarketQuote, error)
	}

	// MarketQuote mirrors one row of public.market_quotes.
	MarketQuote struct {
		Provider      string          `db:"provider"`
		Symbol        string          `db:"symbol"`
		Kind          string          `db:"kind"`
		Name          sql.NullString  `db:"name"`
		Price         float64         `db:"price"`
		Change        float64         `db:"change"`
		ChangePercent float64         `db:"change_percent"`
		DayHigh       sql.NullFloat64 `db:"day_high"`
		DayLow        sql.NullFloat64 `db:"day_low"`
		Volume        sql.NullFloat64 `db:"volume"`
		Open          sql.NullFloat64 `db:"open"`
		PreviousClose sql.NullFloat64 `db:"previous_close"`
		TsMs          int64           `db:"ts_ms"`
	}

	defaultMarketQuotesModel struct {
		conn sqlx.SqlConn
	}
)

// NewMarketQuotesModel returns a model for the market_quotes table.
func NewMarketQuotesModel(conn sqlx.SqlConn) MarketQuotesModel {
	return &defaultMarketQuotesModel{conn: conn}
}

func (m *defaultMarketQuotesModel) Upsert(ctx context.Context, quote *MarketQuote) error {
	stmt := `
INSERT INTO public.market_quotes (
    provider, symbol, kind, name, price, change, change_percent,
    day_high, day_low, volume, open, previous_close, ts_ms, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW()
)
ON CONFLICT (provider, symbol) DO UPDATE SET
    kind = EXCLUDED.kind,
    name = EXCLUDED.name,
    price = EXCLUDED.price,
    change = EXCLUDED.change,
    change_percent = EXCLUDED.change_percent,
    day_high = EXCLUDED.day_high,
    day_low = EXCLUDED.day_low,
    volume = EXCLUDED.volume,
    open = EXCLUDED.open,
    previous_close = EXCLUDED.previous_close,
    ts_ms = EXCLUDED.ts_ms,
    updated_at = NOW();`
	_, err := m.conn.ExecCtx(ctx, stmt,
		quote.Provider,
		quote.Symbol,
		quote.Kind,
		quote.Name,
		quote.Price,
		quote.Change,
		quote.ChangePercent,
		quote.DayHigh,
		quote.DayLow,
		quote.Volume,
		quote.Open,
		quote.PreviousClose,
		quote.TsMs,
	)
	return err
}

func (m *defaultMarketQuotesModel) FindOne(ctx context.Context, provider, symbol string) (*MarketQuote, error) {
	stmt := `
SELECT provider, symbol, kind, name, price, change, change_percent,
       day_high, day_low, volume, open, previous_close, ts_ms
FROM public.market_quotes
WHERE provider = $1 AND symbol = $2;`
	var quote MarketQuote
	err := m.conn.QueryRowCtx(ctx, &quote, stmt, provider, symbol)
	switch err {
	case nil:
		return &quote, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}
