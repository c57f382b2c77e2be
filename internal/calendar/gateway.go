package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mentorship-backend/config"
)

// EventInput describes the meeting to provision.
type EventInput struct {
	// IdempotencyKey identifies the logical booking. Inserts with the same key
	// resolve to the same external event.
	IdempotencyKey string
	AttendeeEmail  string
	Title          string
	Description    string
	Start          time.Time
	End            time.Time
	Timezone       string
}

// ExternalEvent is the provider's confirmation of a created event.
type ExternalEvent struct {
	ID       string
	JoinLink string
	HTMLLink string
}

// Gateway creates conferencing-enabled calendar events. It never retries.
type Gateway struct {
	endpoint        string
	calendarID      string
	defaultTimezone string
	timeout         time.Duration
	base            http.RoundTripper
	newRequestID    func() string
	log             *zap.Logger
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithTransport sets the round tripper under the bearer-token transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) { g.base = rt }
}

// NewGateway creates a calendar gateway.
func NewGateway(cfg config.CalendarConfig, log *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		endpoint:        cfg.Endpoint,
		calendarID:      cfg.CalendarID,
		defaultTimezone: cfg.DefaultTimezone,
		timeout:         cfg.Timeout,
		base:            http.DefaultTransport,
		newRequestID:    uuid.NewString,
		log:             log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EventID derives the provider event id from an idempotency key. Provider ids
// only allow base32hex characters, which a hex digest satisfies.
func EventID(idempotencyKey string) string {
	sum := sha256.Sum256([]byte(idempotencyKey))
	return hex.EncodeToString(sum[:])
}

// CreateEvent inserts the event with a fresh conference request id. If an
// earlier attempt already created it, the existing event is returned.
func (g *Gateway) CreateEvent(ctx context.Context, accessToken string, in EventInput) (*ExternalEvent, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	svc, err := g.service(ctx, accessToken)
	if err != nil {
		return nil, &ProviderError{Message: err.Error(), Err: err}
	}

	tz := in.Timezone
	if tz == "" {
		tz = g.defaultTimezone
	}

	event := &gcal.Event{
		Id:          EventID(in.IdempotencyKey),
		Summary:     in.Title,
		Description: in.Description,
		Start:       &gcal.EventDateTime{DateTime: in.Start.Format(time.RFC3339), TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: in.End.Format(time.RFC3339), TimeZone: tz},
		Attendees:   []*gcal.EventAttendee{{Email: in.AttendeeEmail}},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             g.newRequestID(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := svc.Events.Insert(g.calendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err == nil {
		return toExternal(created), nil
	}

	if !isStatus(err, http.StatusConflict) {
		return nil, classify(ctx, err)
	}

	g.log.Info("calendar event already exists, fetching it",
		zap.String("eventID", event.Id),
		zap.String("idempotencyKey", in.IdempotencyKey))
	existing, err := svc.Events.Get(g.calendarID, event.Id).Context(ctx).Do()
	if err != nil {
		return nil, classify(ctx, err)
	}
	if existing.Status == "cancelled" {
		return nil, &ProviderError{
			StatusCode: http.StatusConflict,
			Message:    fmt.Sprintf("event %s was cancelled on the provider side", existing.Id),
		}
	}
	return toExternal(existing), nil
}

func (g *Gateway) service(ctx context.Context, accessToken string) (*gcal.Service, error) {
	client := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   g.base,
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	return gcal.NewService(ctx, opts...)
}

func toExternal(ev *gcal.Event) *ExternalEvent {
	out := &ExternalEvent{ID: ev.Id, JoinLink: ev.HangoutLink, HTMLLink: ev.HtmlLink}
	if out.JoinLink == "" && ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				out.JoinLink = ep.Uri
				break
			}
		}
	}
	return out
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// classify maps a provider failure onto AuthError or ProviderError.
func classify(ctx context.Context, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		msg := err.Error()
		if ctx.Err() != nil {
			msg = "request timed out: " + msg
		}
		return &ProviderError{Transient: true, Message: msg, Err: err}
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized:
		return &AuthError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	case apiErr.Code == http.StatusForbidden:
		for _, item := range apiErr.Errors {
			if rateLimitReasons[item.Reason] {
				return &ProviderError{StatusCode: apiErr.Code, Transient: true, Message: apiErr.Message, Err: err}
			}
		}
		return &AuthError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
		return &ProviderError{StatusCode: apiErr.Code, Transient: true, Message: apiErr.Message, Err: err}
	default:
		return &ProviderError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
}
