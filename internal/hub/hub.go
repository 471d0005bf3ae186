package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"algoforge-api/pkg/market"
)

// Conn is the write side of one subscriber connection. Implementations must
// serialize their own writes; the hub may call WriteMessage from the
// subscribe path and the publish path on different goroutines.
type Conn interface {
	WriteMessage(data []byte) error
	Close() error
}

// Hub fans freshly captured snapshots out to every live subscriber. It owns
// only set membership: transports own connection teardown, and the hub stops
// referencing a connection as soon as a write to it fails.
type Hub struct {
	store *market.Store

	mu   sync.RWMutex
	subs map[uuid.UUID]Conn
}

// New returns an empty hub backed by the given snapshot store.
func New(store *market.Store) *Hub {
	return &Hub{
		store: store,
		subs:  make(map[uuid.UUID]Conn),
	}
}

// Subscribe adds a connection to the live set. When a snapshot already
// exists, it is sent to the new connection immediately so late subscribers
// need not wait out the next poll interval. A failed initial write means the
// connection is already dead and it is never admitted.
func (h *Hub) Subscribe(conn Conn) (uuid.UUID, error) {
	id := uuid.New()

	if snapshot := h.store.Latest(); snapshot != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return uuid.Nil, err
		}
		if err := conn.WriteMessage(data); err != nil {
			return uuid.Nil, err
		}
	}

	h.mu.Lock()
	h.subs[id] = conn
	h.mu.Unlock()

	logx.Infof("hub: subscriber added id=%s total=%d", id, h.Len())
	return id, nil
}

// Unsubscribe removes a connection from the live set. Safe to call for ids
// already pruned by a failed publish write.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		logx.Infof("hub: subscriber removed id=%s total=%d", id, h.Len())
	}
}

// Publish serialises the snapshot exactly once and writes it to every
// subscriber present at the instant of iteration. Connections whose write
// fails are pruned and closed; delivery to the rest is unaffected.
func (h *Hub) Publish(snapshot *market.Snapshot) {
	if snapshot == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		logx.Errorf("hub: marshal snapshot: %v", err)
		return
	}

	for id, conn := range h.snapshot() {
		if err := conn.WriteMessage(data); err != nil {
			logx.Infof("hub: dropping subscriber id=%s write err=%v", id, err)
			h.Unsubscribe(id)
			_ = conn.Close()
		}
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// snapshot copies the subscriber set so publish iteration composes with
// concurrent subscribes and unsubscribes. Connections added mid-publish may
// or may not see that publish; they see every one after it.
func (h *Hub) snapshot() map[uuid.UUID]Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make(map[uuid.UUID]Conn, len(h.subs))
	for id, conn := range h.subs {
		subs[id] = conn
	}
	return subs
}
