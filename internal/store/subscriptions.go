package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"mentorship-backend/internal/model"
)

// SavePushSubscription stores sub, refreshing the keys when the endpoint is
// already registered to the same user. An endpoint registered to someone
// else is left alone and ErrSubscriptionOwned is returned.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "push_subscriptions", Name: "user_id"}, Value: sub.UserID},
		}},
	}).Create(sub)
	if res.Error != nil {
		return fmt.Errorf("failed to save push subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSubscriptionOwned
	}
	return nil
}

// DeletePushSubscription removes the user's registration of endpoint.
// Deleting an endpoint the user does not own is a no-op.
func (s *gormStore) DeletePushSubscription(ctx context.Context, userID, endpoint string) error {
	err := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}
