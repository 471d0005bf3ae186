package model

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("model: row not found")

var _ MarketSnapshotsModel = (*defaultMarketSnapshotsModel)(nil)

type (
	// MarketSnapshotsModel appends one row per successful poll cycle, keeping
	// an audit log of every payload that was ever served.
	MarketSnapshotsModel interface {
		Insert(ctx context.Context, snapshot *MarketSnapshot) error
		FindLatest(ctx context.Context, provider string) (*MarketSnapshot, error)
	}

	// MarketSnapshot mirrors one row of public.market_snapshots.
	MarketSnapshot struct {
		Id         int64     `db:"id"`
		Provider   string    `db:"provider"`
		Payload    string    `db:"payload"`
		CapturedAt time.Time `db:"captured_at"`
	}

	defaultMarketSnapshotsModel struct {
		conn sqlx.SqlConn
	}
)

// NewMarketSnapshotsModel returns a model for the market_snapshots table.
func NewMarketSnapshotsModel(conn sqlx.SqlConn) MarketSnapshotsModel {
	return &defaultMarketSnapshotsModel{conn: conn}
}

func (m *defaultMarketSnapshotsModel) Insert(ctx context.Context, snapshot *MarketSnapshot) error {
	stmt := `
INSERT INTO public.market_snapshots (provider, payload, captured_at, created_at)
VALUES ($1, $2, $3, NOW());`
	_, err := m.conn.ExecCtx(ctx, stmt, snapshot.Provider, snapshot.Payload, snapshot.CapturedAt)
	return err
}

func (m *defaultMarketSnapshotsModel) FindLatest(ctx context.Context, provider string) (*MarketSnapshot, error) {
	stmt := `
SELECT id, provider, payload, captured_at
FROM public.market_snapshots
WHERE provider = $1
ORDER BY captured_at DESC
LIMIT 1;`
	var snapshot MarketSnapshot
	err := m.conn.QueryRowCtx(ctx, &snapshot, stmt, provider)
	switch err {
	case nil:
		return &snapshot, nil
	case sqlx.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}
