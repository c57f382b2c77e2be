package notification

import (
	"strings"
	"time"

	"mentorship-backend/internal/model"
)

// Event types published on request transitions.
const (
	EventCreated   = "created"
	EventAccepted  = "accepted"
	EventRejected  = "rejected"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

// Event is a hint that a request changed. Subscribers re-fetch the request
// rather than trusting the payload as state.
type Event struct {
	Type       string              `json:"type"`
	RequestID  string              `json:"request_id"`
	SlotID     string              `json:"slot_id,omitempty"`
	Status     model.RequestStatus `json:"status"`
	MeetingID  string              `json:"meeting_id,omitempty"`
	JoinLink   string              `json:"join_link,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

const (
	founderPrefix = "founder:"
	expertPrefix  = "expert:"
)

// FounderChannel is the channel key of a founder.
func FounderChannel(founderID string) string { return founderPrefix + founderID }

// ExpertChannel is the channel key of an expert.
func ExpertChannel(expertID string) string { return expertPrefix + expertID }

// ChannelUser returns the user id addressed by a channel key.
func ChannelUser(channelKey string) (string, bool) {
	for _, prefix := range []string{founderPrefix, expertPrefix} {
		if id, ok := strings.CutPrefix(channelKey, prefix); ok && id != "" {
			return id, true
		}
	}
	return "", false
}
