package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mentorship-backend/internal/model"
)

func (s *gormStore) GetCredential(ctx context.Context, expertID string) (*model.OAuthCredential, error) {
	var cred model.OAuthCredential
	if err := s.db.WithContext(ctx).First(&cred, "expert_id = ?", expertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to load credential for expert %s: %w", expertID, err)
	}
	return &cred, nil
}

// SaveCredential inserts or replaces the expert's credential.
func (s *gormStore) SaveCredential(ctx context.Context, cred *model.OAuthCredential) error {
	cred.Expiry = cred.Expiry.UTC()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "expert_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider", "access_token", "refresh_token", "expiry", "updated_at"}),
	}).Create(cred).Error
	if err != nil {
		return fmt.Errorf("failed to save credential for expert %s: %w", cred.ExpertID, err)
	}
	return nil
}

// SwapCredential replaces the stored tokens only if the stored access token is
// still prevAccessToken. A false result means another caller refreshed first.
func (s *gormStore) SwapCredential(ctx context.Context, prevAccessToken string, next *model.OAuthCredential) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.OAuthCredential{}).
		Where("expert_id = ? AND access_token = ?", next.ExpertID, prevAccessToken).
		Updates(map[string]any{
			"access_token":  next.AccessToken,
			"refresh_token": next.RefreshToken,
			"expiry":        next.Expiry.UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update credential for expert %s: %w", next.ExpertID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
