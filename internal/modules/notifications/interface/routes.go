package transport

import (
	"time"

	"github.com/labstack/echo/v4"

	"notificationRelay/internal/modules/notifications/application/usecase"
)

// BasePath prefixes every notification REST and SSE route.
const BasePath = "/api/v1/notification"

// Register mounts the notification routes on e.
func Register(e *echo.Echo, notifications *usecase.NotificationsUseCase, subscribe *usecase.SubscribeUseCase, heartbeat time.Duration) {
	records := NewNotificationsHandler(notifications)
	streams := NewStreamHandler(subscribe, heartbeat)

	g := e.Group(BasePath)
	g.GET("", records.List)
	g.GET("/", records.List)
	g.GET("/user/:userId", records.ListByReceiver)
	g.GET("/sse", streams.StreamWithToken)
	g.GET("/sse/:userId", streams.StreamWithCredential)
	g.POST("/sse/token/:userId", streams.IssueToken)
	g.GET("/:id", records.Get)
	g.DELETE("/:id", records.Delete)

	e.GET("/ws/notifications", NewWebsocketHandler(subscribe, heartbeat))
}
