package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/uptrace/bun"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateTx(ctx context.Context, tx bun.Tx, notification *models.Notification) error
	GetUserNotifications(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID int64, ids []int64) error
}

type notificationRepository struct {
	db *bun.DB
}

func NewNotificationRepository(db *bun.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(notification).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) CreateTx(ctx context.Context, tx bun.Tx, notification *models.Notification) error {
	notification.CreatedAt = time.Now()
	_, err := tx.NewInsert().Model(notification).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.db.NewSelect().
		Model(&notifications).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.Notification)(nil)).
		Where("user_id = ?", userID).
		Where("read = false").
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags the given notifications read. An empty id list marks
// every unread notification the user has.
func (r *notificationRepository) MarkRead(ctx context.Context, userID int64, ids []int64) error {
	q := r.db.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("read = true").
		Where("user_id = ?", userID)

	if len(ids) > 0 {
		q = q.Where("id IN (?)", bun.In(ids))
	} else {
		q = q.Where("read = false")
	}

	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
