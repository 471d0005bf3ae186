package market

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeSnapshot serialises a snapshot into the compact binary form used for
// Redis warm-start payloads. The JSON wire shape is unaffected.
func EncodeSnapshot(snapshot *Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("market codec: nil snapshot")
	}
	data, err := msgpack.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("market codec: encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("market codec: empty payload")
	}
	var snapshot Snapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("market codec: decode snapshot: %w", err)
	}
	return &snapshot, nil
}
