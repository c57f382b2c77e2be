package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"mentorship-backend/internal/model"
	"mentorship-backend/internal/notification"
	"mentorship-backend/internal/store"
)

// CreateRequestInput is a founder's booking request.
type CreateRequestInput struct {
	FounderID       string  `json:"founder_id" validate:"required,max=64"`
	ExpertID        string  `json:"expert_id" validate:"required,max=64,nefield=FounderID"`
	SlotID          string  `json:"slot_id" validate:"required,max=36"`
	Topic           string  `json:"topic" validate:"required,max=256"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,min=1,max=1440"`
	Message         *string `json:"message" validate:"omitempty,max=4000"`
}

// CreateRequest holds the slot for a new pending request. Of concurrent
// requests for one slot exactly one succeeds; the others get
// ErrSlotUnavailable and should re-list free slots.
func (e *Engine) CreateRequest(ctx context.Context, in CreateRequestInput) (*model.MentorshipRequest, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	slot, err := e.store.GetSlot(ctx, in.SlotID)
	if errors.Is(err, store.ErrSlotNotFound) {
		return nil, fmt.Errorf("%w: slot %s does not exist", ErrSlotUnavailable, in.SlotID)
	}
	if err != nil {
		return nil, err
	}
	if slot.ExpertID != in.ExpertID {
		return nil, fmt.Errorf("%w: slot %s does not belong to expert %s", ErrValidation, slot.ID, in.ExpertID)
	}
	if !slot.StartTime.After(e.now()) {
		return nil, fmt.Errorf("%w: slot %s has already started", ErrSlotUnavailable, slot.ID)
	}
	if time.Duration(in.DurationMinutes)*time.Minute > slot.Duration() {
		return nil, fmt.Errorf("%w: %d minutes do not fit into slot %s", ErrValidation, in.DurationMinutes, slot.ID)
	}

	requestID := uuid.NewString()
	if err := e.store.TryHold(ctx, slot.ID, requestID); err != nil {
		if errors.Is(err, store.ErrSlotAlreadyHeld) || errors.Is(err, store.ErrSlotNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
		}
		return nil, err
	}

	req := &model.MentorshipRequest{
		ID:              requestID,
		FounderID:       in.FounderID,
		ExpertID:        in.ExpertID,
		SlotID:          slot.ID,
		RequestedStart:  slot.StartTime,
		RequestedEnd:    slot.EndTime,
		DurationMinutes: in.DurationMinutes,
		Topic:           in.Topic,
		Message:         in.Message,
		Status:          model.RequestPending,
	}
	if err := e.store.CreateRequest(ctx, req); err != nil {
		// The hold never outlives the request that owns it.
		releaseErr := e.store.ReleaseHeld(context.WithoutCancel(ctx), slot.ID, requestID)
		if releaseErr != nil {
			e.log.Error("failed to release hold after insert failure",
				zap.String("slotID", slot.ID),
				zap.String("requestID", requestID),
				zap.Error(releaseErr))
		}
		if errors.Is(err, store.ErrDuplicate) {
			err = fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, multierr.Append(err, releaseErr)
	}

	e.log.Info("mentorship request created",
		zap.String("requestID", req.ID),
		zap.String("slotID", slot.ID),
		zap.String("founderID", req.FounderID),
		zap.String("expertID", req.ExpertID))
	e.publish(ctx, req, notification.EventCreated, notification.ExpertChannel(req.ExpertID))
	return req, nil
}
