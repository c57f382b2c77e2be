package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mentorship-backend/internal/calendar"
	"mentorship-backend/internal/model"
	"mentorship-backend/internal/notification"
	"mentorship-backend/internal/store"
)

// Accept provisions the meeting and books the slot. Nothing changes unless
// the calendar provider confirmed the event, and then the meeting, the slot
// and the request change in one transaction.
func (e *Engine) Accept(ctx context.Context, requestID, expertID string, responseMessage *string) (*model.MentorshipRequest, error) {
	req, err := e.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizeExpert(ctx, req, expertID); err != nil {
		return nil, err
	}
	if req.Status != model.RequestPending {
		return nil, fmt.Errorf("%w: request %s is %s", ErrInvalidState, req.ID, req.Status)
	}

	if !req.RequestedStart.After(e.now()) {
		return nil, fmt.Errorf("%w: session of request %s already started", ErrInvalidState, req.ID)
	}

	// The event id derives from the request id, so an accept retried after a
	// failed commit resolves to the same provider event.
	meeting, err := e.provisionMeeting(ctx, req)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateMeeting(ctx, meeting); err != nil {
			return err
		}
		if err := tx.CommitHeld(ctx, req.SlotID, req.ID); err != nil {
			return err
		}
		ok, err := tx.TransitionRequest(ctx, store.Transition{
			RequestID: req.ID,
			From:      []model.RequestStatus{model.RequestPending},
			To:        model.RequestAccepted,
			Fields: map[string]any{
				"response_message":  responseMessage,
				"responded_at":      now,
				"meeting_id":        meeting.ID,
				"external_event_id": meeting.ExternalEventID,
				"join_link":         meeting.JoinLink,
			},
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidState) || errors.Is(err, store.ErrDuplicate) ||
			errors.Is(err, store.ErrSlotNotHeld) || errors.Is(err, store.ErrNotHolder) {
			// The request moved on while the event was being created.
			e.log.Warn("request changed during accept, calendar event left in place",
				zap.String("requestID", req.ID),
				zap.String("externalEventID", meeting.ExternalEventID),
				zap.Error(err))
			return nil, fmt.Errorf("%w: request %s changed during accept", ErrInvalidState, req.ID)
		}
		return nil, fmt.Errorf("failed to record acceptance of %s: %w", req.ID, err)
	}

	accepted, err := e.store.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	e.log.Info("mentorship request accepted",
		zap.String("requestID", accepted.ID),
		zap.String("meetingID", meeting.ID))
	e.publish(ctx, accepted, notification.EventAccepted, notification.FounderChannel(accepted.FounderID))
	return accepted, nil
}

func (e *Engine) provisionMeeting(ctx context.Context, req *model.MentorshipRequest) (*model.MeetingRecord, error) {
	founderEmail, err := e.directory.GetEmail(ctx, req.FounderID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve email of founder %s: %w", req.FounderID, err)
	}

	token, err := e.tokens.GetValidAccessToken(ctx, req.ExpertID)
	if err != nil {
		return nil, &CalendarError{Err: err}
	}

	start := req.RequestedStart
	in := calendar.EventInput{
		IdempotencyKey: req.ID,
		AttendeeEmail:  founderEmail,
		Title:          "Mentorship session: " + req.Topic,
		Start:          start,
		End:            start.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Timezone:       e.cfg.DefaultTimezone,
	}
	if req.Message != nil {
		in.Description = *req.Message
	}

	event, err := e.createEvent(ctx, req.ExpertID, token, in)
	var authErr *calendar.AuthError
	if errors.As(err, &authErr) {
		// One retry, and only with a credential the provider has not yet rejected.
		e.log.Info("calendar rejected token, forcing refresh", zap.String("expertID", req.ExpertID))
		token, err = e.tokens.ForceRefresh(ctx, req.ExpertID, token)
		if err != nil {
			return nil, &CalendarError{Err: err}
		}
		event, err = e.createEvent(ctx, req.ExpertID, token, in)
	}
	if err != nil {
		return nil, &CalendarError{Err: err}
	}

	return &model.MeetingRecord{
		ID:               uuid.NewString(),
		RequestID:        req.ID,
		OrganizerID:      req.ExpertID,
		ParticipantEmail: founderEmail,
		ScheduledStart:   start,
		DurationMinutes:  req.DurationMinutes,
		ExternalEventID:  event.ID,
		JoinLink:         event.JoinLink,
	}, nil
}

// createEvent calls the gateway, retrying transient provider errors with
// exponential backoff up to MaxAttempts calls.
func (e *Engine) createEvent(ctx context.Context, expertID, token string, in calendar.EventInput) (*calendar.ExternalEvent, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = e.cfg.InitialBackoff
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(e.cfg.MaxAttempts-1)), ctx)

	var event *calendar.ExternalEvent
	op := func() error {
		ev, err := e.calendar.CreateEvent(ctx, token, in)
		if err == nil {
			event = ev
			return nil
		}
		var provErr *calendar.ProviderError
		if errors.As(err, &provErr) && provErr.Transient {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		e.log.Warn("calendar provider failed, retrying",
			zap.String("expertID", expertID),
			zap.String("requestID", in.IdempotencyKey),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return event, nil
}
