package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mentorship-backend/internal/calendar"
	"mentorship-backend/internal/db"
	"mentorship-backend/internal/identity"
	"mentorship-backend/internal/model"
	"mentorship-backend/internal/notification"
	"mentorship-backend/internal/store"
)

// fakeTokens is a mock implementation of TokenProvider.
type fakeTokens struct {
	GetFunc   func(ctx context.Context, expertID string) (string, error)
	ForceFunc func(ctx context.Context, expertID, rejected string) (string, error)
}

func (f *fakeTokens) GetValidAccessToken(ctx context.Context, expertID string) (string, error) {
	if f.GetFunc == nil {
		return "token-1", nil
	}
	return f.GetFunc(ctx, expertID)
}

func (f *fakeTokens) ForceRefresh(ctx context.Context, expertID, rejected string) (string, error) {
	if f.ForceFunc == nil {
		return "token-2", nil
	}
	return f.ForceFunc(ctx, expertID, rejected)
}

// fakeCalendar is a mock implementation of EventCreator that counts calls.
type fakeCalendar struct {
	mu              sync.Mutex
	calls           int
	tokens          []string
	CreateEventFunc func(ctx context.Context, token string, in calendar.EventInput) (*calendar.ExternalEvent, error)
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, token string, in calendar.EventInput) (*calendar.ExternalEvent, error) {
	f.mu.Lock()
	f.calls++
	f.tokens = append(f.tokens, token)
	fn := f.CreateEventFunc
	f.mu.Unlock()
	if fn == nil {
		return &calendar.ExternalEvent{ID: calendar.EventID(in.IdempotencyKey), JoinLink: "https://meet.example/" + in.IdempotencyKey}, nil
	}
	return fn(ctx, token, in)
}

func (f *fakeCalendar) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDirectory struct {
	roles  map[string]model.Role
	emails map[string]string
}

func (d *fakeDirectory) GetRole(_ context.Context, userID string) (model.Role, error) {
	role, ok := d.roles[userID]
	if !ok {
		return "", identity.ErrUnknownUser
	}
	return role, nil
}

func (d *fakeDirectory) GetEmail(_ context.Context, userID string) (string, error) {
	email, ok := d.emails[userID]
	if !ok {
		return "", identity.ErrUnknownUser
	}
	return email, nil
}

type published struct {
	channel string
	event   notification.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, channelKey string, ev notification.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{channel: channelKey, event: ev})
}

func (p *recordingPublisher) On(channelKey string) []notification.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notification.Event
	for _, e := range p.events {
		if e.channel == channelKey {
			out = append(out, e.event)
		}
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine    *Engine
	store     store.Store
	db        *gorm.DB
	tokens    *fakeTokens
	calendar  *fakeCalendar
	publisher *recordingPublisher
	clock     *testClock
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))

	h := &harness{
		store:     store.NewGormStore(gormDB),
		db:        gormDB,
		tokens:    &fakeTokens{},
		calendar:  &fakeCalendar{},
		publisher: &recordingPublisher{},
		clock:     &testClock{now: time.Now().UTC().Truncate(time.Second)},
	}
	dir := &fakeDirectory{
		roles: map[string]model.Role{
			"expert-1":  model.RoleExpert,
			"expert-2":  model.RoleExpert,
			"founder-a": model.RoleFounder,
			"founder-b": model.RoleFounder,
		},
		emails: map[string]string{
			"founder-a": "a@example.com",
			"founder-b": "b@example.com",
		},
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Millisecond
	}
	h.engine = NewEngine(h.store, h.tokens, h.calendar, dir, h.publisher, cfg, zaptest.NewLogger(t), WithClock(h.clock.Now))
	return h
}

// slot publishes a one hour slot starting in the given offset from the test clock.
func (h *harness) slot(t *testing.T, expertID string, in time.Duration) *model.AvailabilitySlot {
	t.Helper()
	start := h.clock.Now().Add(in)
	s, err := h.store.CreateSlot(context.Background(), expertID, start, start.Add(time.Hour))
	require.NoError(t, err)
	return s
}

func (h *harness) request(t *testing.T, founderID string, slot *model.AvailabilitySlot) *model.MentorshipRequest {
	t.Helper()
	req, err := h.engine.CreateRequest(context.Background(), CreateRequestInput{
		FounderID:       founderID,
		ExpertID:        slot.ExpertID,
		SlotID:          slot.ID,
		Topic:           "fundraising",
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	return req
}

func (h *harness) slotStatus(t *testing.T, slotID string) model.SlotStatus {
	t.Helper()
	s, err := h.store.GetSlot(context.Background(), slotID)
	require.NoError(t, err)
	return s.Status
}

func (h *harness) meetingCount(t *testing.T, requestID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&model.MeetingRecord{}).Where("request_id = ?", requestID).Count(&n).Error)
	return n
}
