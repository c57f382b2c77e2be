package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mentorship-backend/config"
	"mentorship-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(log))

	// Slot listings are never cached: a reject or cancel frees a slot and
	// founders must see it right away.
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/api/vapid_public_key", caching, h.GetVAPIDPublicKey)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	api := r.Group("/api")
	api.Use(mw.Actor(cfg.ActorHeader))
	{
		api.GET("/experts/:expert_id/slots", h.ListFreeSlots)
		api.POST("/slots", rateLimiter, h.CreateSlot)
		api.DELETE("/slots/:slot_id", rateLimiter, h.DeleteSlot)

		api.POST("/requests", rateLimiter, h.CreateRequest)
		api.POST("/requests/:request_id/accept", rateLimiter, h.AcceptRequest)
		api.POST("/requests/:request_id/reject", rateLimiter, h.RejectRequest)
		api.POST("/requests/:request_id/cancel", rateLimiter, h.CancelRequest)
		api.POST("/requests/:request_id/review", rateLimiter, h.ReviewRequest)
		api.GET("/requests/:request_id/meeting", h.GetMeeting)

		api.GET("/sessions/founder", h.FounderSessions)
		api.GET("/sessions/expert", h.ExpertSessions)

		api.PUT("/experts/:expert_id/calendar-credential", rateLimiter, h.PutCalendarCredential)

		api.GET("/channels/:channel/events", h.StreamEvents)

		api.PUT("/subscriptions", rateLimiter, h.PutSubscription)
		api.DELETE("/subscriptions", rateLimiter, h.DeleteSubscription)
	}

	return r
}
