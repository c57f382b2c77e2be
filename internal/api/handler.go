package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"mentorship-backend/internal/booking"
	"mentorship-backend/internal/identity"
	"mentorship-backend/internal/model"
	"mentorship-backend/internal/notification"
	"mentorship-backend/internal/store"
)

// Bookings is the part of the request engine the API drives.
type Bookings interface {
	CreateRequest(ctx context.Context, in booking.CreateRequestInput) (*model.MentorshipRequest, error)
	Accept(ctx context.Context, requestID, expertID string, responseMessage *string) (*model.MentorshipRequest, error)
	Reject(ctx context.Context, requestID, expertID string, responseMessage *string) (*model.MentorshipRequest, error)
	Cancel(ctx context.Context, requestID, founderID string) (*model.MentorshipRequest, error)
	SubmitReview(ctx context.Context, requestID, founderID string, in booking.ReviewInput) (*model.MentorshipRequest, error)
	ListForFounder(ctx context.Context, founderID string) (*booking.Sessions, error)
	ListForExpert(ctx context.Context, expertID string) (*booking.Sessions, error)
}

// CredentialSaver stores the token pair of a finished OAuth handshake.
type CredentialSaver interface {
	Save(ctx context.Context, expertID string, tok *oauth2.Token) error
}

// Subscriber streams a channel's events.
type Subscriber interface {
	Subscribe(channelKey string) (<-chan notification.Event, func())
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	bookings    Bookings
	directory   identity.Directory
	credentials CredentialSaver
	events      Subscriber
	webpush     *webpush.Options
	log         *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, b Bookings, dir identity.Directory, creds CredentialSaver, events Subscriber, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	return &Handler{
		store:       s,
		bookings:    b,
		directory:   dir,
		credentials: creds,
		events:      events,
		webpush:     webpushOptions,
		log:         log,
	}
}

// writeError translates domain errors into HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var calErr *booking.CalendarError
	switch {
	case errors.As(err, &calErr):
		if calErr.Reconnect() {
			c.JSON(http.StatusFailedDependency, gin.H{"error": err.Error(), "reconnect": true})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": calErr.Retryable()})
	case errors.Is(err, booking.ErrValidation), errors.Is(err, store.ErrInvalidRange):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrUnauthorized), errors.Is(err, store.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, store.ErrSlotNotFound),
		errors.Is(err, store.ErrRequestNotFound), errors.Is(err, store.ErrMeetingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrSlotUnavailable), errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrInvalidState), errors.Is(err, store.ErrSlotNotFree),
		errors.Is(err, store.ErrSubscriptionOwned):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// requireRole refuses callers whose directory role is not role.
func (h *Handler) requireRole(c *gin.Context, userID string, role model.Role) bool {
	got, err := h.directory.GetRole(c.Request.Context(), userID)
	if errors.Is(err, identity.ErrUnknownUser) || (err == nil && got != role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "requires role " + string(role)})
		return false
	}
	if err != nil {
		h.writeError(c, err)
		return false
	}
	return true
}
