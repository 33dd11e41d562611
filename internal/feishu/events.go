package feishu

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	eventsReconnectDelay    = 1 * time.Second
	eventsMaxReconnectDelay = 8 * time.Second
	eventsReconnectTimeout  = 10 * time.Second
	eventsPath              = "/ws/v1/events"
)

// Handler consumes one decoded file event.
type Handler func(*FileEvent)

// EventsAPI maintains the event stream connection and dispatches decoded
// drive.file.* events to registered handlers.
type EventsAPI struct {
	baseURL          string
	token            string
	wsClient         *wsClient
	handlers         map[EventType]Handler
	ctx              context.Context
	cancel           context.CancelFunc
	mu               sync.RWMutex
	connected        bool
	reconnectAttempt int
}

func newEventsAPI(baseURL, token string) *EventsAPI {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventsAPI{
		baseURL:  baseURL,
		token:    token,
		handlers: make(map[EventType]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handle registers a handler for one event type. Must be called before
// Connect.
func (e *EventsAPI) Handle(eventType EventType, handler Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.handlers[eventType]; ok {
		return ErrEventsHandlerExists
	}
	e.handlers[eventType] = handler
	return nil
}

// Connect opens the WebSocket and starts dispatching. Reconnects on drop
// until Close.
func (e *EventsAPI) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected && e.wsClient != nil {
		return nil
	}

	wsClient, err := e.connectLocked(ctx)
	if err != nil {
		return fmt.Errorf("sdk: events: connect failed: %w", err)
	}

	go e.manageConnection(wsClient)
	return nil
}

// IsConnected returns the current connection status.
func (e *EventsAPI) IsConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

// Close terminates the WebSocket connection and stops reconnecting.
func (e *EventsAPI) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancel()

	if e.wsClient != nil {
		e.wsClient.Close()
		e.wsClient = nil
	}
	e.connected = false
	slog.Info("events stream closed")
}

// connectLocked creates a new connection (must be called with lock held).
func (e *EventsAPI) connectLocked(ctx context.Context) (*wsClient, error) {
	if e.wsClient != nil {
		e.wsClient.Close()
		e.wsClient = nil
		e.connected = false
	}

	url := toWebsocketURL(e.baseURL + eventsPath)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.token)
	header.Set(HeaderUserAgent, UserAgent)

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(wsMaxMessageSize)

	wsClient := newWSClient(conn)
	wsClient.Start(e.ctx)

	e.wsClient = wsClient
	e.connected = true

	slog.Info("events stream connected")
	return wsClient, nil
}

// manageConnection handles the connection lifecycle.
func (e *EventsAPI) manageConnection(wsClient *wsClient) {
	go e.consumeFrames(wsClient)

	select {
	case <-wsClient.closed:
		slog.Info("events stream disconnected, will reconnect")

		e.mu.Lock()
		if e.wsClient == wsClient {
			e.wsClient = nil
			e.connected = false
			e.reconnectAttempt = 0
		}
		e.mu.Unlock()

		select {
		case <-e.ctx.Done():
			return
		default:
			e.reconnectWithBackoff()
		}

	case <-e.ctx.Done():
		return
	}
}

// consumeFrames decodes raw frames and dispatches to handlers.
func (e *EventsAPI) consumeFrames(wsClient *wsClient) {
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-wsClient.closed:
			return
		case raw, ok := <-wsClient.frames:
			if !ok {
				return
			}
			e.dispatch(raw)
		}
	}
}

func (e *EventsAPI) dispatch(raw []byte) {
	var frame eventFrame
	if err := jsonUnmarshal(raw, &frame); err != nil {
		slog.Warn("events decode", "error", err)
		return
	}

	event := frame.toFileEvent()
	if event.FileToken == "" {
		slog.Debug("events frame without token", "type", frame.Header.EventType)
		return
	}

	e.mu.RLock()
	handler, ok := e.handlers[event.Type]
	e.mu.RUnlock()

	if !ok {
		slog.Debug("events unhandled type", "type", event.Type)
		return
	}

	slog.Debug("events dispatch", "type", event.Type, "token", event.FileToken)
	handler(event)
}

// reconnectWithBackoff attempts to reconnect with capped exponential
// backoff and jitter.
func (e *EventsAPI) reconnectWithBackoff() {
	delay := eventsReconnectDelay

	for {
		e.reconnectAttempt++

		select {
		case <-e.ctx.Done():
			return
		case <-time.After(delay):
		}

		slog.Info("events stream reconnecting", "attempt", e.reconnectAttempt, "delay", delay)

		ctx, cancel := context.WithTimeout(e.ctx, eventsReconnectTimeout)
		e.mu.Lock()
		wsClient, err := e.connectLocked(ctx)
		e.mu.Unlock()
		cancel()

		if err == nil {
			go e.manageConnection(wsClient)
			return
		}

		delay = min(delay*2, eventsMaxReconnectDelay)
		jitterFactor := 0.75 + (rand.Float64() * 0.5)
		delay = time.Duration(float64(delay) * jitterFactor)
	}
}

// toWebsocketURL converts an HTTP URL to a WebSocket URL.
func toWebsocketURL(url string) string {
	if strings.HasPrefix(url, "https://") {
		return "wss://" + url[8:]
	} else if strings.HasPrefix(url, "http://") {
		return "ws://" + url[7:]
	}
	return url
}
