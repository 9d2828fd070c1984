package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
	"notificationRelay/internal/shared/auth"
)

// DefaultAdminRole grants the listing of every stored notification.
const DefaultAdminRole = "admin"

// NotificationsUseCase serves reads and deletions of stored notifications.
// Every operation takes the raw bearer credential of the caller.
type NotificationsUseCase struct {
	store     port.NotificationStore
	inspector auth.CredentialInspector
	adminRole string
}

func NewNotificationsUseCase(store port.NotificationStore, inspector auth.CredentialInspector, adminRole string) *NotificationsUseCase {
	if strings.TrimSpace(adminRole) == "" {
		adminRole = DefaultAdminRole
	}
	return &NotificationsUseCase{store: store, inspector: inspector, adminRole: adminRole}
}

func (uc *NotificationsUseCase) claims(credential string) (*auth.Claims, error) {
	claims, err := uc.inspector.Inspect(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return claims, nil
}

func (uc *NotificationsUseCase) requireAdmin(credential string) error {
	claims, err := uc.claims(credential)
	if err != nil {
		return err
	}
	if !claims.HasRole(uc.adminRole) {
		return fmt.Errorf("%w: role %q required", domain.ErrForbidden, uc.adminRole)
	}
	return nil
}

// List returns every stored notification. Admin only.
func (uc *NotificationsUseCase) List(ctx context.Context, credential string) ([]*domain.Notification, error) {
	if err := uc.requireAdmin(credential); err != nil {
		return nil, err
	}
	return uc.store.FindAll(ctx)
}

// Get returns one notification. Admin only.
func (uc *NotificationsUseCase) Get(ctx context.Context, credential, id string) (*domain.Notification, error) {
	if err := uc.requireAdmin(credential); err != nil {
		return nil, err
	}
	return uc.store.FindByID(ctx, strings.TrimSpace(id))
}

// ListByReceiver returns the notifications of userID; the credential subject must be userID.
func (uc *NotificationsUseCase) ListByReceiver(ctx context.Context, credential, userID string) ([]*domain.Notification, error) {
	claims, err := uc.claims(credential)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if claims.Subject != userID {
		return nil, fmt.Errorf("%w: subject does not match user", domain.ErrForbidden)
	}
	return uc.store.FindByReceiver(ctx, userID)
}

// Delete removes a notification on behalf of its receiver.
func (uc *NotificationsUseCase) Delete(ctx context.Context, credential, id string) error {
	claims, err := uc.claims(credential)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	record, err := uc.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !record.OwnedBy(claims.Subject) {
		slog.Warn("notification delete rejected", slog.String("notificationId", id), slog.String("subject", claims.Subject))
		return fmt.Errorf("%w: only the receiver may delete a notification", domain.ErrForbidden)
	}
	if err := uc.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("notification deleted", slog.String("notificationId", id), slog.String("receiverId", record.ReceiverID))
	return nil
}
