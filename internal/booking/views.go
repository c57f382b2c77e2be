package booking

import (
	"context"

	"mentorship-backend/internal/model"
)

// Sessions groups a user's requests the way the session screens show them.
type Sessions struct {
	Pending  []model.MentorshipRequest `json:"pending"`
	Upcoming []model.MentorshipRequest `json:"upcoming"`
	Past     []model.MentorshipRequest `json:"past"`
}

// ListForFounder returns the founder's sessions.
func (e *Engine) ListForFounder(ctx context.Context, founderID string) (*Sessions, error) {
	reqs, err := e.store.ListRequestsByFounder(ctx, founderID)
	if err != nil {
		return nil, err
	}
	return e.group(reqs), nil
}

// ListForExpert returns the expert's sessions.
func (e *Engine) ListForExpert(ctx context.Context, expertID string) (*Sessions, error) {
	reqs, err := e.store.ListRequestsByExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}
	return e.group(reqs), nil
}

func (e *Engine) group(reqs []model.MentorshipRequest) *Sessions {
	now := e.now()
	out := &Sessions{
		Pending:  []model.MentorshipRequest{},
		Upcoming: []model.MentorshipRequest{},
		Past:     []model.MentorshipRequest{},
	}
	for _, r := range reqs {
		future := r.RequestedStart.After(now)
		switch {
		case r.Status == model.RequestPending && future:
			out.Pending = append(out.Pending, r)
		case r.Status == model.RequestAccepted && future:
			out.Upcoming = append(out.Upcoming, r)
		case r.Status == model.RequestCompleted, r.Status == model.RequestAccepted:
			out.Past = append(out.Past, r)
		}
	}
	return out
}
