package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"mentorship-backend/internal/model"
)

// ErrUnknownUser is returned for ids the identity service doesn't know.
var ErrUnknownUser = errors.New("unknown user")

// Directory is the identity service as seen by the booking core.
type Directory interface {
	GetRole(ctx context.Context, userID string) (model.Role, error)
	GetEmail(ctx context.Context, userID string) (string, error)
}

// GormDirectory reads profiles from the shared profiles table and keeps them
// briefly in memory.
type GormDirectory struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewGormDirectory creates a directory whose entries live for ttl.
func NewGormDirectory(db *gorm.DB, ttl time.Duration) *GormDirectory {
	return &GormDirectory{
		db:    db,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (d *GormDirectory) GetRole(ctx context.Context, userID string) (model.Role, error) {
	p, err := d.profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

func (d *GormDirectory) GetEmail(ctx context.Context, userID string) (string, error) {
	p, err := d.profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

func (d *GormDirectory) profile(ctx context.Context, userID string) (model.Profile, error) {
	if cached, ok := d.cache.Get(userID); ok {
		return cached.(model.Profile), nil
	}

	var p model.Profile
	if err := d.db.WithContext(ctx).First(&p, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Profile{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
		}
		return model.Profile{}, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}
	d.cache.SetDefault(userID, p)
	return p, nil
}
