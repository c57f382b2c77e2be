package model

import "time"

// MeetingRecord is the externally provisioned meeting of an accepted request.
type MeetingRecord struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	RequestID        string    `gorm:"size:36;not null;uniqueIndex" json:"request_id"`
	OrganizerID      string    `gorm:"size:64;not null" json:"organizer_id"`
	ParticipantEmail string    `gorm:"size:320;not null" json:"participant_email"`
	ScheduledStart   time.Time `gorm:"not null" json:"scheduled_start"`
	DurationMinutes  int       `gorm:"not null" json:"duration_minutes"`
	ExternalEventID  string    `gorm:"size:1024;not null" json:"external_event_id"`
	JoinLink         string    `gorm:"size:1024" json:"join_link"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
}
