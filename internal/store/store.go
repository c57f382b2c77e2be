package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"mentorship-backend/internal/model"
)

var (
	ErrSlotNotFound       = errors.New("slot not found")
	ErrSlotAlreadyHeld    = errors.New("slot is already held")
	ErrSlotNotFree        = errors.New("slot is not free")
	ErrSlotNotHeld        = errors.New("slot is not held")
	ErrNotOwner           = errors.New("requester does not own the slot")
	ErrNotHolder          = errors.New("slot is held by another request")
	ErrInvalidRange       = errors.New("invalid slot range")
	ErrRequestNotFound    = errors.New("request not found")
	ErrMeetingNotFound    = errors.New("meeting not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrDuplicate          = errors.New("duplicate record")
	ErrSubscriptionOwned  = errors.New("push endpoint belongs to another user")
)

// Store defines the interface for all database operations.
type Store interface {
	CreateSlot(ctx context.Context, expertID string, start, end time.Time) (*model.AvailabilitySlot, error)
	GetSlot(ctx context.Context, slotID string) (*model.AvailabilitySlot, error)
	ListFreeSlots(ctx context.Context, expertID string, from time.Time) ([]model.AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, slotID, requesterID string) error
	TryHold(ctx context.Context, slotID, requestID string) error
	CommitHeld(ctx context.Context, slotID, requestID string) error
	ReleaseHeld(ctx context.Context, slotID, requestID string) error

	CreateRequest(ctx context.Context, req *model.MentorshipRequest) error
	GetRequest(ctx context.Context, requestID string) (*model.MentorshipRequest, error)
	TransitionRequest(ctx context.Context, t Transition) (bool, error)
	ListRequestsByFounder(ctx context.Context, founderID string) ([]model.MentorshipRequest, error)
	ListRequestsByExpert(ctx context.Context, expertID string) ([]model.MentorshipRequest, error)
	ListAcceptedEndedBefore(ctx context.Context, before time.Time, limit int) ([]model.MentorshipRequest, error)

	CreateMeeting(ctx context.Context, m *model.MeetingRecord) error
	GetMeetingByRequest(ctx context.Context, requestID string) (*model.MeetingRecord, error)

	GetCredential(ctx context.Context, expertID string) (*model.OAuthCredential, error)
	SaveCredential(ctx context.Context, cred *model.OAuthCredential) error
	SwapCredential(ctx context.Context, prevAccessToken string, next *model.OAuthCredential) (bool, error)

	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, userID, endpoint string) error
	ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)

	// Transaction runs fn against a Store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
