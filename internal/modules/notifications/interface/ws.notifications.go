package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"notificationRelay/internal/modules/notifications/application/usecase"
	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/modules/notifications/infrastructure"
	"notificationRelay/internal/platform/metrics"
	"notificationRelay/internal/shared/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewWebsocketHandler exposes /ws/notifications?token= and relays the stream
// bound to the subscription token as JSON frames.
func NewWebsocketHandler(uc *usecase.SubscribeUseCase, heartbeat time.Duration) func(echo.Context) error {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return func(c echo.Context) error {
		peerIP := c.RealIP()
		token := auth.ExtractTokenFromQuery(c.Request(), "token")
		if token == "" {
			return fail(c, "ws-open", fmt.Errorf("%w: missing subscription token", domain.ErrUnauthorized))
		}

		session, err := uc.OpenWithToken(c.Request().Context(), token)
		if err != nil {
			return fail(c, "ws-open", err)
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			session.Close()
			slog.Error("notifications ws upgrade failed", slog.String("userId", session.UserID), slog.String("ip", peerIP), slog.Any("error", err))
			return nil
		}

		metrics.ActiveStreams.WithLabelValues("websocket").Inc()
		client := infrastructure.NewWebsocketClient(conn, session.Stream, heartbeat)
		client.AddCloseHook(func() {
			session.Close()
			metrics.ActiveStreams.WithLabelValues("websocket").Dec()
			slog.Info("notifications ws disconnected", slog.String("userId", session.UserID), slog.String("ip", peerIP))
		})

		go client.WritePump()
		go client.ReadPump()

		slog.Info("notifications ws connected", slog.String("userId", session.UserID), slog.String("ip", peerIP))
		return nil
	}
}
