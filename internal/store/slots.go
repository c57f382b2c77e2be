package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mentorship-backend/internal/model"
)

// CreateSlot publishes a new free slot. Slots of one expert never intersect.
func (s *gormStore) CreateSlot(ctx context.Context, expertID string, start, end time.Time) (*model.AvailabilitySlot, error) {
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	slot := &model.AvailabilitySlot{
		ID:        uuid.NewString(),
		ExpertID:  expertID,
		StartTime: start,
		EndTime:   end,
		Status:    model.SlotFree,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var overlapping int64
		if err := tx.Model(&model.AvailabilitySlot{}).
			Where("expert_id = ? AND start_time < ? AND end_time > ?", expertID, end, start).
			Count(&overlapping).Error; err != nil {
			return err
		}
		if overlapping > 0 {
			return fmt.Errorf("%w: overlaps %d existing slot(s)", ErrInvalidRange, overlapping)
		}
		return tx.Create(slot).Error
	})
	if err != nil {
		if isExclusionViolation(err) {
			return nil, fmt.Errorf("%w: overlaps an existing slot", ErrInvalidRange)
		}
		if errors.Is(err, ErrInvalidRange) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}
	return slot, nil
}

func (s *gormStore) GetSlot(ctx context.Context, slotID string) (*model.AvailabilitySlot, error) {
	var slot model.AvailabilitySlot
	if err := s.db.WithContext(ctx).First(&slot, "id = ?", slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", slotID, err)
	}
	return &slot, nil
}

// ListFreeSlots returns the expert's free slots starting at or after from, earliest first.
func (s *gormStore) ListFreeSlots(ctx context.Context, expertID string, from time.Time) ([]model.AvailabilitySlot, error) {
	var slots []model.AvailabilitySlot
	err := s.db.WithContext(ctx).
		Where("expert_id = ? AND status = ? AND start_time >= ?", expertID, model.SlotFree, from.UTC()).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list free slots for expert %s: %w", expertID, err)
	}
	return slots, nil
}

// DeleteSlot removes a free slot owned by requesterID.
func (s *gormStore) DeleteSlot(ctx context.Context, slotID, requesterID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND expert_id = ? AND status = ?", slotID, requesterID, model.SlotFree).
		Delete(&model.AvailabilitySlot{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slotID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	slot, err := s.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.ExpertID != requesterID {
		return ErrNotOwner
	}
	return ErrSlotNotFree
}

// TryHold atomically moves a slot from free to held on behalf of requestID.
// Of any number of concurrent callers for one slot exactly one succeeds.
func (s *gormStore) TryHold(ctx context.Context, slotID, requestID string) error {
	res := s.db.WithContext(ctx).Model(&model.AvailabilitySlot{}).
		Where("id = ? AND status = ?", slotID, model.SlotFree).
		Updates(map[string]any{
			"status":            model.SlotHeld,
			"holder_request_id": requestID,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to hold slot %s: %w", slotID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	if _, err := s.GetSlot(ctx, slotID); err != nil {
		return err
	}
	return ErrSlotAlreadyHeld
}

// CommitHeld moves a slot held by requestID to booked. Committing an already
// booked slot of the same request is a no-op.
func (s *gormStore) CommitHeld(ctx context.Context, slotID, requestID string) error {
	res := s.db.WithContext(ctx).Model(&model.AvailabilitySlot{}).
		Where("id = ? AND status = ? AND holder_request_id = ?", slotID, model.SlotHeld, requestID).
		Update("status", model.SlotBooked)
	if res.Error != nil {
		return fmt.Errorf("failed to commit slot %s: %w", slotID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	slot, err := s.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	switch {
	case slot.Status == model.SlotBooked && holds(slot, requestID):
		return nil
	case slot.Status == model.SlotFree:
		return ErrSlotNotHeld
	default:
		return ErrNotHolder
	}
}

// ReleaseHeld moves a slot held by requestID back to free. Releasing a free
// slot is a no-op.
func (s *gormStore) ReleaseHeld(ctx context.Context, slotID, requestID string) error {
	res := s.db.WithContext(ctx).Model(&model.AvailabilitySlot{}).
		Where("id = ? AND status = ? AND holder_request_id = ?", slotID, model.SlotHeld, requestID).
		Updates(map[string]any{
			"status":            model.SlotFree,
			"holder_request_id": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to release slot %s: %w", slotID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	slot, err := s.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.Status == model.SlotFree {
		return nil
	}
	return ErrNotHolder
}

func holds(slot *model.AvailabilitySlot, requestID string) bool {
	return slot.HolderRequestID != nil && *slot.HolderRequestID == requestID
}
