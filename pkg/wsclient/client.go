// Package wsclient implements a reconnecting client for the market snapshot
// WebSocket feed. Consumers receive every snapshot frame through a callback;
// the client owns the connection lifecycle and retries with a fixed backoff.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeromicro/go-zero/core/logx"

	"algoforge-api/pkg/market"
)

// State describes the connection lifecycle. Transitions are always
// Disconnected -> Connecting -> Connected and back to Disconnected on any
// failure; there is no half-open state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const (
	defaultBackoff          = 5 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
)

// Config controls a Client. URL and OnSnapshot are required.
type Config struct {
	// URL of the snapshot feed, e.g. ws://localhost:5000/ws/market.
	URL string

	// OnSnapshot is invoked for every decoded snapshot frame, including the
	// cached one the server pushes right after the handshake. Called from the
	// client's read goroutine; the callback must not block for long.
	OnSnapshot func(*market.Snapshot)

	// OnStateChange, when set, observes every lifecycle transition.
	OnStateChange func(State)

	// Backoff is the fixed delay between reconnect attempts. Defaults to 5s.
	Backoff time.Duration

	HandshakeTimeout time.Duration
}

// Client maintains a single connection to the snapshot feed and replaces it
// on every failure. Safe for concurrent use; Run may only be called once.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	state atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("wsclient: url is required")
	}
	if cfg.OnSnapshot == nil {
		return nil, errors.New("wsclient: OnSnapshot callback is required")
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
		},
	}, nil
}

// State reports the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Run connects and keeps the feed alive until ctx is cancelled. Every dial or
// read failure drops back to Disconnected and retries after the configured
// backoff. Returns ctx.Err() once the context ends.
func (c *Client) Run(ctx context.Context) error {
	defer c.setState(StateDisconnected)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			c.setState(StateDisconnected)
			logx.Errorf("wsclient: dial %s failed: %v", c.cfg.URL, err)
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}

		c.swapConn(conn)
		c.setState(StateConnected)
		logx.Infof("wsclient: connected to %s", c.cfg.URL)

		err = c.readLoop(ctx, conn)
		c.swapConn(nil)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logx.Errorf("wsclient: connection lost: %v", err)
		if err := c.wait(ctx); err != nil {
			return err
		}
	}
}

// Close tears down the live connection, if any. Run's read loop observes the
// closed connection and either reconnects or, if its context has ended, exits.
func (c *Client) Close() error {
	return c.swapConn(nil)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context ends mid-read.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var snapshot market.Snapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			logx.Errorf("wsclient: dropping malformed frame: %v", err)
			continue
		}
		c.cfg.OnSnapshot(&snapshot)
	}
}

func (c *Client) wait(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) swapConn(conn *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.conn != nil && c.conn != conn {
		err = c.conn.Close()
	}
	c.conn = conn
	return err
}

func (c *Client) setState(next State) {
	prev := State(c.state.Swap(int32(next)))
	if prev != next && c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(next)
	}
}
