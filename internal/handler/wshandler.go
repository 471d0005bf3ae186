package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeromicro/go-zero/core/logx"

	"algoforge-api/internal/svc"
)

const wsWriteWait = 15 * time.Second

var upgrader = websocket.Upgrader{
	HandshakeTimeout:  15 * time.Second,
	EnableCompression: true,
	CheckOrigin: func(r *http.Request) bool {
		// The frontend is served from a different origin in every deployment.
		return true
	},
}

// MarketWSHandler upgrades GET /ws/market and registers the connection with
// the hub. The server only pushes; inbound frames are drained and discarded
// so close/ping control frames keep working.
func MarketWSHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.WithContext(r.Context()).Errorf("ws upgrade: %v", err)
			return
		}

		id, err := svcCtx.Hub.Subscribe(newWSConn(conn))
		if err != nil {
			_ = conn.Close()
			return
		}
		defer func() {
			svcCtx.Hub.Unsubscribe(id)
			_ = conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// wsConn adapts a gorilla connection to the hub's Conn interface. Gorilla
// conns allow at most one concurrent writer, and the hub writes from both the
// subscribe path and the publish path, hence the mutex.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
