package infrastructure

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsReadLimit = 1 << 12
)

// WebsocketClient pumps one push stream to a websocket connection. The
// connection is read only to detect the peer going away.
type WebsocketClient struct {
	conn       *websocket.Conn
	stream     port.Stream
	heartbeat  time.Duration
	done       chan struct{}
	closeOnce  sync.Once
	closeHooks []func()
	hookMu     sync.Mutex
}

func NewWebsocketClient(conn *websocket.Conn, stream port.Stream, heartbeat time.Duration) *WebsocketClient {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &WebsocketClient{
		conn:      conn,
		stream:    stream,
		heartbeat: heartbeat,
		done:      make(chan struct{}),
	}
}

// AddCloseHook registers a callback executed once when the client closes.
func (c *WebsocketClient) AddCloseHook(fn func()) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

func (c *WebsocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
		c.invokeCloseHooks()
	})
}

func (c *WebsocketClient) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func()) {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("ws close hook panic", slog.Any("error", r))
				}
			}()
			h()
		}(hook)
	}
}

// WritePump forwards stream items until the stream completes, a write fails
// or the client closes.
func (c *WebsocketClient) WritePump() {
	ping := time.NewTicker(c.heartbeat)
	defer ping.Stop()
	defer c.Close()

	for {
		items, err := c.stream.Drain()
		for _, item := range items {
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if werr := c.conn.WriteJSON(domain.NewPushFrame(uuid.NewString(), item)); werr != nil {
				slog.Warn("websocket write error", slog.String("userId", c.stream.UserID()), slog.Any("error", werr))
				return
			}
		}
		if errors.Is(err, domain.ErrChannelClosed) {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed"),
				time.Now().Add(wsWriteWait))
			return
		}

		select {
		case <-c.stream.Wait():
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Warn("websocket ping error", slog.String("userId", c.stream.UserID()), slog.Any("error", err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadPump discards inbound frames and closes the client when the peer leaves.
func (c *WebsocketClient) ReadPump() {
	defer c.Close()
	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read ended", slog.String("userId", c.stream.UserID()), slog.Any("error", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}
