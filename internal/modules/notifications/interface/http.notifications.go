package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"notificationRelay/internal/modules/notifications/application/usecase"
	"notificationRelay/internal/modules/notifications/domain"
)

// NotificationsHandler serves the stored notification records.
type NotificationsHandler struct {
	uc *usecase.NotificationsUseCase
}

func NewNotificationsHandler(uc *usecase.NotificationsUseCase) *NotificationsHandler {
	return &NotificationsHandler{uc: uc}
}

// List handles GET /api/v1/notification.
func (h *NotificationsHandler) List(c echo.Context) error {
	items, err := h.uc.List(c.Request().Context(), credential(c))
	if err != nil {
		return fail(c, "list", err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

// Get handles GET /api/v1/notification/:id.
func (h *NotificationsHandler) Get(c echo.Context) error {
	item, err := h.uc.Get(c.Request().Context(), credential(c), c.Param("id"))
	if err != nil {
		return fail(c, "get", err)
	}
	return c.JSON(http.StatusOK, item)
}

// ListByReceiver handles GET /api/v1/notification/user/:userId.
func (h *NotificationsHandler) ListByReceiver(c echo.Context) error {
	items, err := h.uc.ListByReceiver(c.Request().Context(), credential(c), c.Param("userId"))
	if err != nil {
		return fail(c, "list-by-receiver", err)
	}
	return c.JSON(http.StatusOK, nonNil(items))
}

// Delete handles DELETE /api/v1/notification/:id and answers true.
func (h *NotificationsHandler) Delete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), credential(c), c.Param("id")); err != nil {
		return fail(c, "delete", err)
	}
	return c.JSON(http.StatusOK, true)
}

func nonNil(items []*domain.Notification) []*domain.Notification {
	if items == nil {
		return []*domain.Notification{}
	}
	return items
}
