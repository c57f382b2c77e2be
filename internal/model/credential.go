package model

import "time"

// OAuthCredential is an expert's delegated authorization against the calendar provider.
type OAuthCredential struct {
	ExpertID     string    `gorm:"primaryKey;size:64" json:"expert_id"`
	Provider     string    `gorm:"size:32;not null" json:"provider"`
	AccessToken  string    `gorm:"type:text;not null" json:"-"`
	RefreshToken string    `gorm:"type:text;not null" json:"-"`
	Expiry       time.Time `gorm:"not null" json:"expiry"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
