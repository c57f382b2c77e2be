package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mentorship-backend/internal/model"
)

// Transition is a conditional status change of one request. It applies only
// while the request is in one of From and, when StartsAfter is set, its
// requested start is later than StartsAfter.
type Transition struct {
	RequestID   string
	From        []model.RequestStatus
	To          model.RequestStatus
	StartsAfter *time.Time
	EndsBefore  *time.Time
	Fields      map[string]any
}

func (s *gormStore) CreateRequest(ctx context.Context, req *model.MentorshipRequest) error {
	req.RequestedStart = req.RequestedStart.UTC()
	req.RequestedEnd = req.RequestedEnd.UTC()
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slot %s already has an active request", ErrDuplicate, req.SlotID)
		}
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (s *gormStore) GetRequest(ctx context.Context, requestID string) (*model.MentorshipRequest, error) {
	var req model.MentorshipRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, err)
	}
	return &req, nil
}

// TransitionRequest applies t as a single conditional update and reports
// whether the request matched.
func (s *gormStore) TransitionRequest(ctx context.Context, t Transition) (bool, error) {
	updates := make(map[string]any, len(t.Fields)+1)
	for k, v := range t.Fields {
		updates[k] = v
	}
	updates["status"] = t.To

	q := s.db.WithContext(ctx).Model(&model.MentorshipRequest{}).
		Where("id = ? AND status IN ?", t.RequestID, t.From)
	if t.StartsAfter != nil {
		q = q.Where("requested_start > ?", t.StartsAfter.UTC())
	}
	if t.EndsBefore != nil {
		q = q.Where("requested_end <= ?", t.EndsBefore.UTC())
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to move request %s to %s: %w", t.RequestID, t.To, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) ListRequestsByFounder(ctx context.Context, founderID string) ([]model.MentorshipRequest, error) {
	return s.listRequests(ctx, "founder_id = ?", founderID)
}

func (s *gormStore) ListRequestsByExpert(ctx context.Context, expertID string) ([]model.MentorshipRequest, error) {
	return s.listRequests(ctx, "expert_id = ?", expertID)
}

func (s *gormStore) listRequests(ctx context.Context, cond string, arg string) ([]model.MentorshipRequest, error) {
	var reqs []model.MentorshipRequest
	if err := s.db.WithContext(ctx).Where(cond, arg).Order("requested_start ASC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return reqs, nil
}

// ListAcceptedEndedBefore returns accepted requests whose session ended at or before the given time.
func (s *gormStore) ListAcceptedEndedBefore(ctx context.Context, before time.Time, limit int) ([]model.MentorshipRequest, error) {
	var reqs []model.MentorshipRequest
	q := s.db.WithContext(ctx).
		Where("status = ? AND requested_end <= ?", model.RequestAccepted, before.UTC()).
		Order("requested_end ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list overdue sessions: %w", err)
	}
	return reqs, nil
}
