package model

import "time"

// RequestStatus is the lifecycle state of a mentorship request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
	RequestCompleted RequestStatus = "completed"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestRejected, RequestCancelled, RequestCompleted:
		return true
	}
	return false
}

// ActiveRequestStatuses are the statuses that claim a slot.
var ActiveRequestStatuses = []RequestStatus{RequestPending, RequestAccepted}

// MentorshipRequest is a founder's ask to book a slot with an expert.
// RequestedStart and RequestedEnd are copied from the slot on creation and never change.
type MentorshipRequest struct {
	ID              string        `gorm:"primaryKey;size:36" json:"id"`
	FounderID       string        `gorm:"size:64;not null;index" json:"founder_id"`
	ExpertID        string        `gorm:"size:64;not null;index" json:"expert_id"`
	SlotID          string        `gorm:"size:36;not null;index" json:"slot_id"`
	RequestedStart  time.Time     `gorm:"not null" json:"requested_start"`
	RequestedEnd    time.Time     `gorm:"not null" json:"requested_end"`
	DurationMinutes int           `gorm:"not null" json:"duration_minutes"`
	Topic           string        `gorm:"size:256;not null" json:"topic"`
	Message         *string       `gorm:"type:text" json:"message,omitempty"`
	Status          RequestStatus `gorm:"size:16;not null;index" json:"status"`
	ResponseMessage *string       `gorm:"type:text" json:"response_message,omitempty"`
	MeetingID       *string       `gorm:"size:36" json:"meeting_id,omitempty"`
	ExternalEventID *string       `gorm:"size:1024" json:"external_event_id,omitempty"`
	JoinLink        *string       `gorm:"size:1024" json:"join_link,omitempty"`
	Rating          *int          `json:"rating,omitempty"`
	Review          *string       `gorm:"type:text" json:"review,omitempty"`
	RespondedAt     *time.Time    `json:"responded_at,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
}
