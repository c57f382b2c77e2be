package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mentorship-backend/internal/model"
)

func (s *gormStore) CreateMeeting(ctx context.Context, m *model.MeetingRecord) error {
	m.ScheduledStart = m.ScheduledStart.UTC()
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: request %s already has a meeting", ErrDuplicate, m.RequestID)
		}
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

func (s *gormStore) GetMeetingByRequest(ctx context.Context, requestID string) (*model.MeetingRecord, error) {
	var m model.MeetingRecord
	if err := s.db.WithContext(ctx).First(&m, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to load meeting for request %s: %w", requestID, err)
	}
	return &m, nil
}
