package market

import "context"

// Persistence hooks allow the poller to mirror snapshots into external stores.
type Persistence interface {
	// RecordSnapshot persists one captured snapshot (Postgres rows, Redis payloads).
	RecordSnapshot(ctx context.Context, provider string, snapshot *Snapshot) error
}
