package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notificationRelay/internal/modules/notifications/application/port"
	"notificationRelay/internal/modules/notifications/domain"
)

const notificationsSchema = `
CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	date        TIMESTAMPTZ NOT NULL,
	category    TEXT NOT NULL,
	message     TEXT NOT NULL,
	object_id   TEXT NOT NULL DEFAULT '',
	receiver_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_receiver_idx ON notifications (receiver_id, date);
`

const notificationColumns = `id, date, category, message, object_id, receiver_id`

// PostgresNotificationStore persists records in the notifications table.
type PostgresNotificationStore struct {
	db *pgxpool.Pool
}

func NewPostgresNotificationStore(db *pgxpool.Pool) *PostgresNotificationStore {
	return &PostgresNotificationStore{db: db}
}

// EnsureSchema creates the notifications table when missing.
func (s *PostgresNotificationStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, notificationsSchema); err != nil {
		return fmt.Errorf("ensure notifications schema: %w", err)
	}
	return nil
}

func (s *PostgresNotificationStore) Save(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + notificationColumns
	row := s.db.QueryRow(ctx, query, n.ID, n.Date, string(n.Category), n.Message, n.ObjectID, n.ReceiverID)
	saved, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return saved, nil
}

func (s *PostgresNotificationStore) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select notification: %w", err)
	}
	return n, nil
}

func (s *PostgresNotificationStore) FindAll(ctx context.Context) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY date, id`
	return s.list(ctx, query)
}

func (s *PostgresNotificationStore) FindByReceiver(ctx context.Context, receiverID string) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE receiver_id = $1 ORDER BY date, id`
	return s.list(ctx, query, receiverID)
}

func (s *PostgresNotificationStore) Delete(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}
	return nil
}

func (s *PostgresNotificationStore) list(ctx context.Context, query string, args ...any) ([]*domain.Notification, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n        domain.Notification
		category string
	)
	if err := row.Scan(&n.ID, &n.Date, &category, &n.Message, &n.ObjectID, &n.ReceiverID); err != nil {
		return nil, err
	}
	n.Category = domain.Category(category)
	n.Date = n.Date.UTC()
	return &n, nil
}

var _ port.NotificationStore = (*PostgresNotificationStore)(nil)
