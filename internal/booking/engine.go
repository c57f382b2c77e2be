package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mentorship-backend/internal/calendar"
	"mentorship-backend/internal/identity"
	"mentorship-backend/internal/model"
	"mentorship-backend/internal/notification"
	"mentorship-backend/internal/store"
)

// TokenProvider hands out calendar access tokens for an expert.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context, expertID string) (string, error)
	ForceRefresh(ctx context.Context, expertID, rejected string) (string, error)
}

// EventCreator provisions calendar events.
type EventCreator interface {
	CreateEvent(ctx context.Context, accessToken string, in calendar.EventInput) (*calendar.ExternalEvent, error)
}

// Publisher broadcasts request changes.
type Publisher interface {
	Publish(ctx context.Context, channelKey string, ev notification.Event)
}

// Config tunes the engine.
type Config struct {
	// MaxAttempts bounds calendar calls per accept for transient failures.
	MaxAttempts     int
	InitialBackoff  time.Duration
	DefaultTimezone string
	// AutoCompleteAfter is how long after its end an accepted session is
	// completed without a review. Zero disables it.
	AutoCompleteAfter time.Duration
}

// Engine owns the lifecycle of mentorship requests.
type Engine struct {
	store     store.Store
	tokens    TokenProvider
	calendar  EventCreator
	directory identity.Directory
	publisher Publisher
	validate  *validator.Validate
	cfg       Config
	now       func() time.Time
	log       *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the request engine.
func NewEngine(st store.Store, tokens TokenProvider, cal EventCreator, dir identity.Directory, pub Publisher, cfg Config, log *zap.Logger, opts ...Option) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}

	e := &Engine{
		store:     st,
		tokens:    tokens,
		calendar:  cal,
		directory: dir,
		publisher: pub,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) loadRequest(ctx context.Context, requestID string) (*model.MentorshipRequest, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if errors.Is(err, store.ErrRequestNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	return req, err
}

// authorizeExpert checks that expertID owns req and holds the expert role.
func (e *Engine) authorizeExpert(ctx context.Context, req *model.MentorshipRequest, expertID string) error {
	if req.ExpertID != expertID {
		return ErrUnauthorized
	}
	role, err := e.directory.GetRole(ctx, expertID)
	if errors.Is(err, identity.ErrUnknownUser) {
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("failed to resolve role of %s: %w", expertID, err)
	}
	if role != model.RoleExpert {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, req *model.MentorshipRequest, eventType string, channels ...string) {
	ev := notification.Event{
		Type:       eventType,
		RequestID:  req.ID,
		SlotID:     req.SlotID,
		Status:     req.Status,
		OccurredAt: e.now().UTC(),
	}
	if req.MeetingID != nil {
		ev.MeetingID = *req.MeetingID
	}
	if req.JoinLink != nil {
		ev.JoinLink = *req.JoinLink
	}
	for _, ch := range channels {
		e.publisher.Publish(ctx, ch, ev)
	}
}
