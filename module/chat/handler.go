package chat

import (
	"net/http"

	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

// Public survey endpoints. The session id acts as the bearer credential:
// it is an unguessable UUID handed out via the invitation token flow.

// POST /api/public/survey/:token/start
func StartSessionHandler(c *gin.Context) {
	sess, err := chatService.StartSession(c.Param("token"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// POST /api/public/chat/:sessionId/message
func PostMessageHandler(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	reply, at, err := chatService.PostMessage(c.Request.Context(), c.Param("sessionId"), req.Message)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reply":     reply,
		"timestamp": at,
	})
}

// PUT /api/public/chat/:sessionId/nps
func SetNPSHandler(c *gin.Context) {
	var req struct {
		Score *int `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Score == nil {
		utils.SendError(c, http.StatusBadRequest, "score is required", err)
		return
	}

	if err := chatService.SetNPSScore(c.Param("sessionId"), *req.Score); err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /api/public/chat/:sessionId/complete
func CompleteSessionHandler(c *gin.Context) {
	if err := chatService.CompleteSession(c.Param("sessionId")); err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
