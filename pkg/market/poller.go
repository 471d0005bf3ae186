package market

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultFetchTimeout = 8 * time.Second
)

// Broadcaster receives every freshly captured snapshot for fan-out to
// connected clients. Implementations must not block.
type Broadcaster interface {
	Publish(snapshot *Snapshot)
}

// CycleJournal records the outcome of poll cycles for offline inspection.
type CycleJournal interface {
	RecordCycle(providerName string, snapshot *Snapshot, cycleErr error)
}

// PollerConfig enumerates the poller's collaborators. Store and Provider are
// required; everything else is optional.
type PollerConfig struct {
	Provider     Provider
	ProviderName string
	Store        *Store
	Indices      []string
	Stocks       []string
	Interval     time.Duration
	FetchTimeout time.Duration

	Broadcaster Broadcaster
	Persistence Persistence
	Journal     CycleJournal
}

// Poller drives the ingestion loop: fetch, normalize, store, broadcast.
// Cycles run strictly sequentially inside Run's goroutine, so a slow upstream
// delays the next tick instead of overlapping with it.
type Poller struct {
	cfg PollerConfig
}

// NewPoller validates the configuration and returns a ready poller.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("market poller: provider is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("market poller: store is required")
	}
	if len(cfg.Indices) == 0 {
		return nil, fmt.Errorf("market poller: indices cannot be empty")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "default"
	}
	return &Poller{cfg: cfg}, nil
}

// Run executes the first cycle immediately, then one cycle per tick until the
// context is cancelled. Cycle failures are logged and never abort the loop.
func (p *Poller) Run(ctx context.Context) {
	if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
		logx.WithContext(ctx).Errorf("market poll: initial cycle: %v", err)
	}
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logx.WithContext(ctx).Errorf("market poll: cycle: %v", err)
			}
		}
	}
}

// RunOnce performs exactly one poll cycle. On success the snapshot is written
// to the store, handed to the broadcaster, and mirrored through the
// persistence hooks. On failure nothing is touched: the store keeps its last
// snapshot and no broadcast fires.
func (p *Poller) RunOnce(ctx context.Context) error {
	snapshot, err := p.fetch(ctx)
	if p.cfg.Journal != nil {
		p.cfg.Journal.RecordCycle(p.cfg.ProviderName, snapshot, err)
	}
	if err != nil {
		return err
	}

	p.cfg.Store.Write(snapshot)
	if p.cfg.Broadcaster != nil {
		p.cfg.Broadcaster.Publish(snapshot)
	}
	if p.cfg.Persistence != nil {
		if err := p.cfg.Persistence.RecordSnapshot(ctx, p.cfg.ProviderName, snapshot); err != nil {
			// Persistence is a mirror, not the source of truth. Log and move on.
			logx.WithContext(ctx).Errorf("market poll: persist snapshot provider=%s err=%v", p.cfg.ProviderName, err)
		}
	}
	logx.Infof("market poll: captured snapshot indices=%d stocks=%d provider=%s",
		len(snapshot.Indices), len(snapshot.TopStocks), p.cfg.ProviderName)
	return nil
}

func (p *Poller) fetch(ctx context.Context) (*Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	indices, err := p.cfg.Provider.IndexQuotes(fetchCtx, p.cfg.Indices)
	if err != nil {
		return nil, fmt.Errorf("fetch indices: %w", err)
	}

	var stocks []StockQuote
	if len(p.cfg.Stocks) > 0 {
		stocks, err = p.cfg.Provider.StockQuotes(fetchCtx, p.cfg.Stocks)
		if err != nil {
			// The stock universe is decoration on top of the index contract;
			// a failed stock fetch degrades the payload instead of failing the cycle.
			logx.WithContext(ctx).Errorf("market poll: fetch stocks provider=%s err=%v", p.cfg.ProviderName, err)
			stocks = nil
		}
	}

	return BuildSnapshot(indices, stocks, time.Now()), nil
}
