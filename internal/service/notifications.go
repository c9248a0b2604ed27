package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-social/lumen/internal/db"
	"github.com/lumen-social/lumen/internal/models"
	"github.com/lumen-social/lumen/internal/toggle"
	"github.com/lumen-social/lumen/pkg/logging"
)

const notificationLimit = 100

// NotificationService lists and emits notifications
type NotificationService struct {
	repo   *db.NotificationRepository
	logger *zap.Logger
}

// NewNotificationService creates a notification service
func NewNotificationService(repo *db.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, logger: logging.WithComponent("notifications")}
}

// Mine lists the actor's notifications newest first
func (s *NotificationService) Mine(ctx context.Context, actor string) ([]NotificationView, error) {
	if actor == "" {
		return nil, toggle.ErrNoActor
	}
	notifs, err := s.repo.ListForUser(ctx, actor, notificationLimit)
	if err != nil {
		return nil, err
	}
	out := make([]NotificationView, 0, len(notifs))
	for _, n := range notifs {
		out = append(out, notificationView(n))
	}
	return out, nil
}

// MarkRead marks one of the actor's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, actor string, id int64) error {
	if actor == "" {
		return toggle.ErrNoActor
	}
	if err := s.repo.MarkRead(ctx, actor, id); err != nil {
		if toggle.KindOf(err) == toggle.KindNotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead marks every notification of the actor read
func (s *NotificationService) MarkAllRead(ctx context.Context, actor string) (int64, error) {
	if actor == "" {
		return 0, toggle.ErrNoActor
	}
	return s.repo.MarkAllRead(ctx, actor)
}

// notify records that actor did typ to recipient. Self-notifications are
// dropped and failures are only logged; they never fail the action.
func (s *NotificationService) notify(ctx context.Context, recipient, actor string, typ models.NotificationType, postID int64) {
	if recipient == "" || recipient == actor {
		return
	}
	n := &models.Notification{
		UserID:    recipient,
		ActorID:   actor,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	if postID > 0 {
		n.PostID = sql.NullInt64{Int64: postID, Valid: true}
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), n); err != nil {
		s.logger.Warn("failed to record notification",
			zap.String("type", string(typ)),
			zap.String("recipient", recipient),
			zap.Error(err))
	}
}
