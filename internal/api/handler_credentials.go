package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"mentorship-backend/internal/mw"
)

type putCredentialRequest struct {
	AccessToken  string    `json:"access_token" binding:"required"`
	RefreshToken string    `json:"refresh_token" binding:"required"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry" binding:"required"`
}

// PutCalendarCredential stores the token pair obtained by the expert's
// OAuth handshake.
func (h *Handler) PutCalendarCredential(c *gin.Context) {
	expertID := c.Param("expert_id")
	if expertID != mw.ActorID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "can only connect your own calendar"})
		return
	}

	var req putCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.credentials.Save(c.Request.Context(), expertID, &oauth2.Token{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    req.TokenType,
		Expiry:       req.Expiry,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
