package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mentorship-backend/internal/booking"
	"mentorship-backend/internal/mw"
)

type createRequestBody struct {
	ExpertID        string  `json:"expert_id" binding:"required"`
	SlotID          string  `json:"slot_id" binding:"required"`
	Topic           string  `json:"topic" binding:"required"`
	DurationMinutes int     `json:"duration_minutes" binding:"required"`
	Message         *string `json:"message"`
}

// CreateRequest books a slot for the calling founder.
func (h *Handler) CreateRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.bookings.CreateRequest(c.Request.Context(), booking.CreateRequestInput{
		FounderID:       mw.ActorID(c),
		ExpertID:        body.ExpertID,
		SlotID:          body.SlotID,
		Topic:           body.Topic,
		DurationMinutes: body.DurationMinutes,
		Message:         body.Message,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

type respondBody struct {
	ResponseMessage *string `json:"response_message"`
}

// AcceptRequest provisions the meeting and books the slot.
func (h *Handler) AcceptRequest(c *gin.Context) {
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.bookings.Accept(c.Request.Context(), c.Param("request_id"), mw.ActorID(c), body.ResponseMessage)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// RejectRequest declines a pending request.
func (h *Handler) RejectRequest(c *gin.Context) {
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.bookings.Reject(c.Request.Context(), c.Param("request_id"), mw.ActorID(c), body.ResponseMessage)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// CancelRequest withdraws the caller's request.
func (h *Handler) CancelRequest(c *gin.Context) {
	req, err := h.bookings.Cancel(c.Request.Context(), c.Param("request_id"), mw.ActorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ReviewRequest records the founder's review of a finished session.
func (h *Handler) ReviewRequest(c *gin.Context) {
	var in booking.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.bookings.SubmitReview(c.Request.Context(), c.Param("request_id"), mw.ActorID(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GetMeeting returns the meeting booked for a request. Only the founder and
// the expert of the request may read it.
func (h *Handler) GetMeeting(c *gin.Context) {
	ctx := c.Request.Context()
	req, err := h.store.GetRequest(ctx, c.Param("request_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if actor := mw.ActorID(c); actor != req.FounderID && actor != req.ExpertID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a party to this request"})
		return
	}

	meeting, err := h.store.GetMeetingByRequest(ctx, req.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, meeting)
}

// FounderSessions lists the caller's sessions as a founder.
func (h *Handler) FounderSessions(c *gin.Context) {
	sessions, err := h.bookings.ListForFounder(c.Request.Context(), mw.ActorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// ExpertSessions lists the caller's sessions as an expert.
func (h *Handler) ExpertSessions(c *gin.Context) {
	sessions, err := h.bookings.ListForExpert(c.Request.Context(), mw.ActorID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}
