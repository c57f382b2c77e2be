package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mentorship-backend/internal/model"
	"mentorship-backend/internal/mw"
)

type createSlotRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// CreateSlot publishes a free slot for the calling expert.
func (h *Handler) CreateSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expertID := mw.ActorID(c)
	if !h.requireRole(c, expertID, model.RoleExpert) {
		return
	}

	slot, err := h.store.CreateSlot(c.Request.Context(), expertID, req.StartTime, req.EndTime)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// ListFreeSlots returns an expert's bookable slots from ?from= (RFC 3339,
// default now) onwards.
func (h *Handler) ListFreeSlots(c *gin.Context) {
	from := time.Now()
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be an RFC 3339 timestamp"})
			return
		}
		from = parsed
	}

	slots, err := h.store.ListFreeSlots(c.Request.Context(), c.Param("expert_id"), from)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if slots == nil {
		slots = []model.AvailabilitySlot{}
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// DeleteSlot removes one of the caller's free slots.
func (h *Handler) DeleteSlot(c *gin.Context) {
	if err := h.store.DeleteSlot(c.Request.Context(), c.Param("slot_id"), mw.ActorID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
