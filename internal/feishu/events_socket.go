package feishu

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	wsChannelSize    = 256 // sized for edit bursts
	wsPingPeriod     = 15 * time.Second
	wsPingTimeout    = 5 * time.Second
	wsMaxMessageSize = 4 * 1024 * 1024 // 4MB
)

// wsClient wraps one WebSocket connection: a read loop delivering raw
// frames and a keepalive ping loop.
type wsClient struct {
	conn      *websocket.Conn
	frames    chan []byte   // raw frames received from the socket
	closed    chan struct{} // socket fully closed
	closing   chan struct{} // close in progress
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn:    conn,
		frames:  make(chan []byte, wsChannelSize),
		closed:  make(chan struct{}),
		closing: make(chan struct{}),
	}
}

func (c *wsClient) Start(ctx context.Context) {
	c.wg.Add(2)
	go c.readLoop(ctx)
	go c.pingLoop(ctx)
}

func (c *wsClient) Close() {
	c.closeConnection(websocket.StatusNormalClosure, "shutdown")
}

func (c *wsClient) closeConnection(status websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.closing)
		c.conn.Close(status, reason)

		// wait for both loops to finish before signalling closed
		c.wg.Wait()

		close(c.closed)
		close(c.frames)
	})
}

func (c *wsClient) readLoop(ctx context.Context) {
	defer func() {
		slog.Debug("socket reader shutdown")
		c.wg.Done()
		go c.closeConnection(websocket.StatusNormalClosure, "shutdown")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closing:
			return
		default:
		}

		_, raw, err := c.conn.Read(ctx)
		if err != nil {
			if !isWSExpectedCloseError(err) {
				slog.Warn("socket RECV", "error", err)
			}
			return
		}

		select {
		case <-c.closing:
			return
		case c.frames <- raw:
		default:
			slog.Warn("socket RECV buffer full, frame dropped")
		}
	}
}

func (c *wsClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		slog.Debug("socket pinger shutdown")
		ticker.Stop()
		c.wg.Done()
		go c.closeConnection(websocket.StatusNormalClosure, "shutdown")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closing:
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, wsPingTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				slog.Error("socket PING", "error", err)
				return
			}
		}
	}
}

// isWSExpectedCloseError returns true if the error is an expected
// connection closure.
func isWSExpectedCloseError(err error) bool {
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed)
}
