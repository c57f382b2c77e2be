package booking

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"mentorship-backend/internal/model"
	"mentorship-backend/internal/notification"
	"mentorship-backend/internal/store"
)

// Reject declines a pending request. The slot is free again before the
// founder is notified.
func (e *Engine) Reject(ctx context.Context, requestID, expertID string, responseMessage *string) (*model.MentorshipRequest, error) {
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

	now := e.now().UTC()
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		ok, err := tx.TransitionRequest(ctx, store.Transition{
			RequestID: req.ID,
			From:      []model.RequestStatus{model.RequestPending},
			To:        model.RequestRejected,
			Fields: map[string]any{
				"response_message": responseMessage,
				"responded_at":     now,
			},
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: request %s changed concurrently", ErrInvalidState, req.ID)
		}
		return tx.ReleaseHeld(ctx, req.SlotID, req.ID)
	})
	if err != nil {
		return nil, err
	}

	rejected, err := e.store.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	e.log.Info("mentorship request rejected", zap.String("requestID", req.ID))
	e.publish(ctx, rejected, notification.EventRejected, notification.FounderChannel(rejected.FounderID))
	return rejected, nil
}

// Cancel withdraws a pending or accepted request before the session starts.
// A pending request frees its slot. An accepted request keeps the slot booked
// and the returned request still carries the meeting references, so the
// caller can cancel the external event.
func (e *Engine) Cancel(ctx context.Context, requestID, founderID string) (*model.MentorshipRequest, error) {
	req, err := e.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.FounderID != founderID {
		return nil, ErrUnauthorized
	}
	if req.Status.Terminal() {
		return nil, fmt.Errorf("%w: request %s is %s", ErrInvalidState, req.ID, req.Status)
	}
	now := e.now().UTC()
	if !req.RequestedStart.After(now) {
		return nil, fmt.Errorf("%w: session of request %s already started", ErrInvalidState, req.ID)
	}

	err = e.store.Transaction(ctx, func(tx store.Store) error {
		ok, err := tx.TransitionRequest(ctx, store.Transition{
			RequestID:   req.ID,
			From:        []model.RequestStatus{req.Status},
			To:          model.RequestCancelled,
			StartsAfter: &now,
			Fields:      map[string]any{"cancelled_at": now},
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: request %s changed concurrently", ErrInvalidState, req.ID)
		}
		if req.Status == model.RequestPending {
			return tx.ReleaseHeld(ctx, req.SlotID, req.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cancelled, err := e.store.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	e.log.Info("mentorship request cancelled",
		zap.String("requestID", req.ID),
		zap.String("previousStatus", string(req.Status)))
	e.publish(ctx, cancelled, notification.EventCancelled, notification.ExpertChannel(cancelled.ExpertID))
	return cancelled, nil
}

// ReviewInput is the founder's feedback on a finished session.
type ReviewInput struct {
	Rating int     `json:"rating" validate:"required,min=1,max=5"`
	Review *string `json:"review" validate:"omitempty,max=4000"`
}

// SubmitReview records the founder's review of a finished session and
// completes the request.
func (e *Engine) SubmitReview(ctx context.Context, requestID, founderID string, in ReviewInput) (*model.MentorshipRequest, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	req, err := e.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.FounderID != founderID {
		return nil, ErrUnauthorized
	}
	if req.Status != model.RequestAccepted {
		return nil, fmt.Errorf("%w: request %s is %s", ErrInvalidState, req.ID, req.Status)
	}
	now := e.now().UTC()
	if req.RequestedEnd.After(now) {
		return nil, fmt.Errorf("%w: session of request %s has not ended", ErrInvalidState, req.ID)
	}

	ok, err := e.store.TransitionRequest(ctx, store.Transition{
		RequestID:  req.ID,
		From:       []model.RequestStatus{model.RequestAccepted},
		To:         model.RequestCompleted,
		EndsBefore: &now,
		Fields: map[string]any{
			"rating":       in.Rating,
			"review":       in.Review,
			"completed_at": now,
		},
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %s changed concurrently", ErrInvalidState, req.ID)
	}

	completed, err := e.store.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, completed, notification.EventCompleted, notification.ExpertChannel(completed.ExpertID))
	return completed, nil
}

// CompleteOverdue completes accepted sessions that ended longer than
// AutoCompleteAfter ago and returns how many it completed.
func (e *Engine) CompleteOverdue(ctx context.Context, limit int) (int, error) {
	if e.cfg.AutoCompleteAfter <= 0 {
		return 0, nil
	}
	now := e.now().UTC()
	cutoff := now.Add(-e.cfg.AutoCompleteAfter)

	overdue, err := e.store.ListAcceptedEndedBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	var (
		completed int
		errs      error
	)
	for i := range overdue {
		req := &overdue[i]
		ok, err := e.store.TransitionRequest(ctx, store.Transition{
			RequestID:  req.ID,
			From:       []model.RequestStatus{model.RequestAccepted},
			To:         model.RequestCompleted,
			EndsBefore: &cutoff,
			Fields:     map[string]any{"completed_at": now},
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		completed++
		req.Status = model.RequestCompleted
		e.publish(ctx, req, notification.EventCompleted,
			notification.FounderChannel(req.FounderID),
			notification.ExpertChannel(req.ExpertID))
	}
	return completed, errs
}
