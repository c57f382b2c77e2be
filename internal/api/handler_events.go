package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mentorship-backend/internal/mw"
	"mentorship-backend/internal/notification"
)

const heartbeatInterval = 25 * time.Second

// StreamEvents streams a channel's request changes as server-sent events.
// Only the user the channel addresses may listen.
func (h *Handler) StreamEvents(c *gin.Context) {
	channel := c.Param("channel")
	userID, ok := notification.ChannelUser(channel)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}
	if userID != mw.ActorID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your channel"})
		return
	}

	events, unsubscribe := h.events.Subscribe(channel)
	defer unsubscribe()
	h.log.Debug("event stream opened", zap.String("channel", channel))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"channel": channel})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
	h.log.Debug("event stream closed", zap.String("channel", channel))
}
