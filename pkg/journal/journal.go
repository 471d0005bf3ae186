package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"algoforge-api/pkg/market"
)

// PollRecord captures the outcome of one poll cycle for audit and debugging.
type PollRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Provider     string    `json:"provider"`
	CycleNumber  int       `json:"cycle_number"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	IndexCount   int       `json:"index_count,omitempty"`
	StockCount   int       `json:"stock_count,omitempty"`
	Advances     int       `json:"advances,omitempty"`
	Declines     int       `json:"declines,omitempty"`
}

// Writer persists poll records to a directory as JSON files (journal style).
// It is not safe for concurrent use; the poller is its only caller.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WritePoll writes a poll record to a timestamped JSON file.
func (w *Writer) WritePoll(rec *PollRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.CycleNumber = w.seq
	name := fmt.Sprintf("poll_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// RecordCycle adapts WritePoll to the poller's journal hook. Write errors are
// swallowed: the journal must never fail a poll cycle.
func (w *Writer) RecordCycle(provider string, snapshot *market.Snapshot, cycleErr error) {
	rec := &PollRecord{
		Provider: provider,
		Success:  cycleErr == nil,
	}
	if cycleErr != nil {
		rec.ErrorMessage = cycleErr.Error()
	}
	if snapshot != nil {
		rec.IndexCount = len(snapshot.Indices)
		rec.StockCount = len(snapshot.TopStocks)
		rec.Advances = snapshot.Breadth.Advances
		rec.Declines = snapshot.Breadth.Declines
	}
	_, _ = w.WritePoll(rec)
}
