package model

import "time"

// SlotStatus is the booking flag of an availability slot.
type SlotStatus string

const (
	SlotFree   SlotStatus = "free"
	SlotHeld   SlotStatus = "held"
	SlotBooked SlotStatus = "booked"
)

// AvailabilitySlot is a bounded, expert-owned interval offered for booking.
// Status only moves free -> held -> booked or held -> free.
type AvailabilitySlot struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	ExpertID        string     `gorm:"size:64;not null;index:idx_slots_expert_start,priority:1" json:"expert_id"`
	StartTime       time.Time  `gorm:"not null;index:idx_slots_expert_start,priority:2" json:"start_time"`
	EndTime         time.Time  `gorm:"not null" json:"end_time"`
	Status          SlotStatus `gorm:"size:16;not null;default:free" json:"status"`
	HolderRequestID *string    `gorm:"size:36" json:"holder_request_id,omitempty"` // request holding or booking the slot
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

// Duration returns the length of the slot.
func (s AvailabilitySlot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
