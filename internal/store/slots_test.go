package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorship-backend/internal/model"
)

func TestCreateSlot(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	slot, err := s.CreateSlot(ctx, "expert-1", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.SlotFree, slot.Status)
	assert.NotEmpty(t, slot.ID)

	t.Run("start after end", func(t *testing.T) {
		_, err := s.CreateSlot(ctx, "expert-1", base.Add(5*time.Hour), base.Add(4*time.Hour))
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("empty range", func(t *testing.T) {
		_, err := s.CreateSlot(ctx, "expert-1", base.Add(5*time.Hour), base.Add(5*time.Hour))
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("overlapping slot of the same expert", func(t *testing.T) {
		_, err := s.CreateSlot(ctx, "expert-1", base.Add(30*time.Minute), base.Add(90*time.Minute))
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("adjacent slot", func(t *testing.T) {
		_, err := s.CreateSlot(ctx, "expert-1", base.Add(time.Hour), base.Add(2*time.Hour))
		assert.NoError(t, err)
	})

	t.Run("same range for another expert", func(t *testing.T) {
		_, err := s.CreateSlot(ctx, "expert-2", base, base.Add(time.Hour))
		assert.NoError(t, err)
	})
}

func TestListFreeSlots(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	late, err := s.CreateSlot(ctx, "expert-1", base.Add(3*time.Hour), base.Add(4*time.Hour))
	require.NoError(t, err)
	early, err := s.CreateSlot(ctx, "expert-1", base, base.Add(time.Hour))
	require.NoError(t, err)
	held, err := s.CreateSlot(ctx, "expert-1", base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	past, err := s.CreateSlot(ctx, "expert-1", base.Add(-48*time.Hour), base.Add(-47*time.Hour))
	require.NoError(t, err)
	_, err = s.CreateSlot(ctx, "expert-2", base, base.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.TryHold(ctx, held.ID, "req-1"))

	slots, err := s.ListFreeSlots(ctx, "expert-1", base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, early.ID, slots[0].ID)
	assert.Equal(t, late.ID, slots[1].ID)

	for _, sl := range slots {
		assert.NotEqual(t, past.ID, sl.ID)
	}
}

func TestDeleteSlot(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	free, err := s.CreateSlot(ctx, "expert-1", base, base.Add(time.Hour))
	require.NoError(t, err)
	held, err := s.CreateSlot(ctx, "expert-1", base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.TryHold(ctx, held.ID, "req-1"))

	assert.ErrorIs(t, s.DeleteSlot(ctx, free.ID, "expert-2"), ErrNotOwner)
	assert.ErrorIs(t, s.DeleteSlot(ctx, held.ID, "expert-1"), ErrSlotNotFree)
	assert.ErrorIs(t, s.DeleteSlot(ctx, "missing", "expert-1"), ErrSlotNotFound)

	require.NoError(t, s.DeleteSlot(ctx, free.ID, "expert-1"))
	_, err = s.GetSlot(ctx, free.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSlotHoldLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	slot, err := s.CreateSlot(ctx, "expert-1", base, base.Add(time.Hour))
	require.NoError(t, err)

	t.Run("commit requires a hold", func(t *testing.T) {
		assert.ErrorIs(t, s.CommitHeld(ctx, slot.ID, "req-1"), ErrSlotNotHeld)
	})

	t.Run("release of a free slot is a no-op", func(t *testing.T) {
		assert.NoError(t, s.ReleaseHeld(ctx, slot.ID, "req-1"))
	})

	t.Run("hold then release", func(t *testing.T) {
		require.NoError(t, s.TryHold(ctx, slot.ID, "req-1"))
		assert.ErrorIs(t, s.TryHold(ctx, slot.ID, "req-2"), ErrSlotAlreadyHeld)
		assert.ErrorIs(t, s.ReleaseHeld(ctx, slot.ID, "req-2"), ErrNotHolder)

		require.NoError(t, s.ReleaseHeld(ctx, slot.ID, "req-1"))
		got, err := s.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotFree, got.Status)
		assert.Nil(t, got.HolderRequestID)
	})

	t.Run("hold then commit", func(t *testing.T) {
		require.NoError(t, s.TryHold(ctx, slot.ID, "req-2"))
		assert.ErrorIs(t, s.CommitHeld(ctx, slot.ID, "req-1"), ErrNotHolder)
		require.NoError(t, s.CommitHeld(ctx, slot.ID, "req-2"))
		require.NoError(t, s.CommitHeld(ctx, slot.ID, "req-2"), "second commit by the same request is a no-op")

		got, err := s.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotBooked, got.Status)
		require.NotNil(t, got.HolderRequestID)
		assert.Equal(t, "req-2", *got.HolderRequestID)

		assert.ErrorIs(t, s.ReleaseHeld(ctx, slot.ID, "req-2"), ErrNotHolder, "booked slots are never released")
		assert.ErrorIs(t, s.TryHold(ctx, slot.ID, "req-3"), ErrSlotAlreadyHeld)
	})

	t.Run("unknown slot", func(t *testing.T) {
		assert.ErrorIs(t, s.TryHold(ctx, "missing", "req-1"), ErrSlotNotFound)
		assert.ErrorIs(t, s.CommitHeld(ctx, "missing", "req-1"), ErrSlotNotFound)
		assert.ErrorIs(t, s.ReleaseHeld(ctx, "missing", "req-1"), ErrSlotNotFound)
	})
}

func TestTryHold_Concurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := newSQLiteStore(t)
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	slot, err := s.CreateSlot(ctx, "expert-1", base, base.Add(time.Hour))
	require.NoError(t, err)

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		held    int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.TryHold(ctx, slot.ID, "req-"+string(rune('a'+i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, ErrSlotAlreadyHeld):
				held++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, callers-1, held)
}
