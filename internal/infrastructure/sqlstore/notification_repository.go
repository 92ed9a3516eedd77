package sqlstore

import (
	"context"
	"database/sql"

	"auction-engine/internal/domain"
	"auction-engine/internal/domain/repositories"
	"auction-engine/pkg/utils"

	"github.com/pkg/errors"
)

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

type NotificationRepository struct {
	conn
}

func NewNotificationRepository(db *sql.DB, dialect Dialect, retry utils.RetryPolicy) *NotificationRepository {
	return &NotificationRepository{conn: conn{db: db, dialect: dialect, retry: retry}}
}

func (r *NotificationRepository) insertQuery() string {
	columns := `(id, user_id, type, message, auction_id, dedupe_key, is_read, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if r.dialect == Postgres {
		return `INSERT INTO notifications ` + columns + ` ON CONFLICT (dedupe_key) DO NOTHING`
	}
	return `INSERT IGNORE INTO notifications ` + columns
}

func (r *NotificationRepository) Save(ctx context.Context, n *domain.Notification) (bool, error) {
	var inserted bool
	err := r.do(ctx, "save notification", func() error {
		res, err := r.db.ExecContext(ctx, r.q(r.insertQuery()),
			n.ID, n.UserID, string(n.Type), n.Message, n.AuctionID, n.DedupeKey, n.Read, n.CreatedAt.UTC())
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = affected > 0
		return nil
	})
	return inserted, err
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	query := `
        SELECT id, user_id, type, message, auction_id, is_read, created_at
        FROM notifications
        WHERE user_id = ?
        ORDER BY created_at DESC
        LIMIT ?
    `

	var notifications []*domain.Notification
	err := r.do(ctx, "list notifications", func() error {
		notifications = notifications[:0]
		rows, err := r.db.QueryContext(ctx, r.q(query), userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n domain.Notification
			var notificationType string
			if err := rows.Scan(&n.ID, &n.UserID, &notificationType, &n.Message, &n.AuctionID, &n.Read, &n.CreatedAt); err != nil {
				return err
			}
			n.Type = domain.NotificationType(notificationType)
			notifications = append(notifications, &n)
		}
		return rows.Err()
	})
	return notifications, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	return r.do(ctx, "mark notification read", func() error {
		res, err := r.db.ExecContext(ctx, r.q(`UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`),
			true, notificationID, userID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}

		// MySQL reports zero affected rows when the row was already read.
		var count int
		if err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM notifications WHERE id = ? AND user_id = ?`),
			notificationID, userID).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return errors.Wrapf(domain.ErrNotFound, "notification %s", notificationID)
		}
		return nil
	})
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var updated int64
	err := r.do(ctx, "mark all notifications read", func() error {
		res, err := r.db.ExecContext(ctx, r.q(`UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`),
			true, userID, false)
		if err != nil {
			return err
		}
		updated, err = res.RowsAffected()
		return err
	})
	return updated, err
}
