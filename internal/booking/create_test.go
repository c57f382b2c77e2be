package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorship-backend/internal/model"
	"mentorship-backend/internal/notification"
)

func TestCreateRequest_Validation(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	slot := h.slot(t, "expert-1", 24*time.Hour)
	started := h.slot(t, "expert-1", -30*time.Minute)

	tests := []struct {
		name    string
		in      CreateRequestInput
		wantErr error
	}{
		{
			name:    "missing topic",
			in:      CreateRequestInput{FounderID: "founder-a", ExpertID: "expert-1", SlotID: slot.ID, DurationMinutes: 30},
			wantErr: ErrValidation,
		},
		{
			name:    "booking yourself",
			in:      CreateRequestInput{FounderID: "expert-1", ExpertID: "expert-1", SlotID: slot.ID, Topic: "x", DurationMinutes: 30},
			wantErr: ErrValidation,
		},
		{
			name:    "slot of another expert",
			in:      CreateRequestInput{FounderID: "founder-a", ExpertID: "expert-2", SlotID: slot.ID, Topic: "x", DurationMinutes: 30},
			wantErr: ErrValidation,
		},
		{
			name:    "duration longer than slot",
			in:      CreateRequestInput{FounderID: "founder-a", ExpertID: "expert-1", SlotID: slot.ID, Topic: "x", DurationMinutes: 90},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown slot",
			in:      CreateRequestInput{FounderID: "founder-a", ExpertID: "expert-1", SlotID: "missing", Topic: "x", DurationMinutes: 30},
			wantErr: ErrSlotUnavailable,
		},
		{
			name:    "slot already started",
			in:      CreateRequestInput{FounderID: "founder-a", ExpertID: "expert-1", SlotID: started.ID, Topic: "x", DurationMinutes: 30},
			wantErr: ErrSlotUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.CreateRequest(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, model.SlotFree, h.slotStatus(t, slot.ID))
	assert.Empty(t, h.publisher.On(notification.ExpertChannel("expert-1")))
}

func TestCreateRequest_HoldsSlot(t *testing.T) {
	h := newHarness(t, Config{})
	slot := h.slot(t, "expert-1", 24*time.Hour)

	req := h.request(t, "founder-a", slot)

	assert.Equal(t, model.RequestPending, req.Status)
	assert.True(t, slot.StartTime.Equal(req.RequestedStart))
	assert.True(t, slot.EndTime.Equal(req.RequestedEnd))

	s, err := h.store.GetSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotHeld, s.Status)
	require.NotNil(t, s.HolderRequestID)
	assert.Equal(t, req.ID, *s.HolderRequestID)

	events := h.publisher.On(notification.ExpertChannel("expert-1"))
	require.Len(t, events, 1)
	assert.Equal(t, notification.EventCreated, events[0].Type)
	assert.Equal(t, req.ID, events[0].RequestID)
}

func TestCreateRequest_ConcurrentFoundersOneWins(t *testing.T) {
	h := newHarness(t, Config{})
	slot := h.slot(t, "expert-1", 24*time.Hour)

	const callers = 10
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		wins        int
		unavailable int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			founder := "founder-a"
			if i%2 == 1 {
				founder = "founder-b"
			}
			_, err := h.engine.CreateRequest(context.Background(), CreateRequestInput{
				FounderID:       founder,
				ExpertID:        "expert-1",
				SlotID:          slot.ID,
				Topic:           "go to market",
				DurationMinutes: 60,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSlotUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, unavailable)
	assert.Equal(t, model.SlotHeld, h.slotStatus(t, slot.ID))

	var active int64
	require.NoError(t, h.db.Model(&model.MentorshipRequest{}).
		Where("slot_id = ? AND status IN ?", slot.ID, model.ActiveRequestStatuses).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestCreateRequest_InsertFailureReleasesHold(t *testing.T) {
	h := newHarness(t, Config{})
	slot := h.slot(t, "expert-1", 24*time.Hour)

	// An active request left behind on a free slot makes the insert fail.
	require.NoError(t, h.db.Create(&model.MentorshipRequest{
		ID:              "stale",
		FounderID:       "founder-b",
		ExpertID:        "expert-1",
		SlotID:          slot.ID,
		RequestedStart:  slot.StartTime,
		RequestedEnd:    slot.EndTime,
		DurationMinutes: 60,
		Topic:           "stale",
		Status:          model.RequestPending,
	}).Error)

	_, err := h.engine.CreateRequest(context.Background(), CreateRequestInput{
		FounderID:       "founder-a",
		ExpertID:        "expert-1",
		SlotID:          slot.ID,
		Topic:           "pricing",
		DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, ErrConflict)

	s, err := h.store.GetSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotFree, s.Status)
	assert.Nil(t, s.HolderRequestID)
}
