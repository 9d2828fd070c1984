package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"notificationRelay/internal/modules/notifications/application/usecase"
	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/platform/metrics"
	"notificationRelay/internal/shared/auth"
)

const defaultHeartbeat = 30 * time.Second

// StreamHandler exposes the server-sent event streams and the subscription
// token issuance.
type StreamHandler struct {
	uc        *usecase.SubscribeUseCase
	heartbeat time.Duration
}

func NewStreamHandler(uc *usecase.SubscribeUseCase, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{uc: uc, heartbeat: heartbeat}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// IssueToken handles POST /api/v1/notification/sse/token/:userId.
func (h *StreamHandler) IssueToken(c echo.Context) error {
	userID := c.Param("userId")
	token, err := h.uc.IssueToken(c.Request().Context(), credential(c), userID)
	if err != nil {
		return fail(c, "issue-token", err)
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// StreamWithCredential handles GET /api/v1/notification/sse/:userId.
func (h *StreamHandler) StreamWithCredential(c echo.Context) error {
	session, err := h.uc.OpenWithCredential(c.Request().Context(), credential(c), c.Param("userId"))
	if err != nil {
		return fail(c, "sse-open", err)
	}
	return h.serve(c, session)
}

// StreamWithToken handles GET /api/v1/notification/sse?token=.
func (h *StreamHandler) StreamWithToken(c echo.Context) error {
	token := auth.ExtractTokenFromQuery(c.Request(), "token")
	if token == "" {
		return fail(c, "sse-open", fmt.Errorf("%w: missing subscription token", domain.ErrUnauthorized))
	}
	session, err := h.uc.OpenWithToken(c.Request().Context(), token)
	if err != nil {
		return fail(c, "sse-open", err)
	}
	return h.serve(c, session)
}

// serve writes stream items as SSE frames until the stream completes or the
// client goes away. The session is closed on every exit path.
func (h *StreamHandler) serve(c echo.Context, session *usecase.Session) error {
	defer session.Close()

	metrics.ActiveStreams.WithLabelValues("sse").Inc()
	defer metrics.ActiveStreams.WithLabelValues("sse").Dec()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		items, err := session.Stream.Drain()
		for _, item := range items {
			if werr := writeEvent(res, domain.NewPushFrame(uuid.NewString(), item)); werr != nil {
				slog.Warn("sse write failed", slog.String("userId", session.UserID), slog.Any("error", werr))
				return nil
			}
		}
		if len(items) > 0 {
			res.Flush()
		}
		if errors.Is(err, domain.ErrChannelClosed) {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-session.Stream.Wait():
		case <-heartbeat.C:
			if _, err := io.WriteString(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(w io.Writer, frame domain.PushFrame) error {
	data, err := json.Marshal(frame.Data)
	if err != nil {
		return fmt.Errorf("encode notification view: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", frame.ID, frame.Event, data)
	return err
}
