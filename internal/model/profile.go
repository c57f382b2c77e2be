package model

// Role of a user in the marketplace.
type Role string

const (
	RoleFounder Role = "founder"
	RoleExpert  Role = "expert"
)

// Profile is the read-only view of the identity service's user table.
type Profile struct {
	ID    string `gorm:"primaryKey;size:64"`
	Role  Role   `gorm:"size:16;not null"`
	Email string `gorm:"size:320;not null"`
}
