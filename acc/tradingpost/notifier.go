package tradingpost

import (
	"context"
	"log/slog"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/acc-community/acc/acc/database/repositories"
)

// Notifier fans state transitions out to the affected users. Inserts
// are fire-and-forget: a failed notification never fails the trade.
type Notifier struct {
	notifications repositories.NotificationRepository
}

func NewNotifier(notifications repositories.NotificationRepository) *Notifier {
	return &Notifier{notifications: notifications}
}

func (n *Notifier) Notify(ctx context.Context, userID, entityID int64, notificationType models.NotificationType) {
	err := n.notifications.Create(ctx, &models.Notification{
		UserID:   userID,
		Type:     notificationType,
		EntityID: entityID,
	})
	if err != nil {
		slog.Error("Failed to create notification",
			slog.String("type", "error"),
			slog.Int64("user_id", userID),
			slog.Int64("entity_id", entityID),
			slog.String("notification_type", string(notificationType)),
			slog.Any("error", err))
	}
}

// NotifyAll sends the same notification to every user in ids, skipping
// the actor who triggered the transition.
func (n *Notifier) NotifyAll(ctx context.Context, ids []int64, actorID, entityID int64, notificationType models.NotificationType) {
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id == actorID || seen[id] {
			continue
		}
		seen[id] = true
		n.Notify(ctx, id, entityID, notificationType)
	}
}
