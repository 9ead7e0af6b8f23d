package admin

import (
	"log"
	"net/http"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/module/insights"
	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

// Session corrections. Sessions are read-only after completion except
// for these admin-triggered fixes.

// PUT /api/sessions/:id/community
func ReassignSessionCommunityHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	sessionID := c.Param("id")

	var req struct {
		CommunityID *int64 `json:"communityId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CommunityID == nil {
		utils.SendError(c, http.StatusBadRequest, "communityId is required")
		return
	}

	var name string
	err := config.DB.QueryRow(`
		SELECT name FROM communities WHERE id = ? AND client_id = ?`,
		*req.CommunityID, clientID).Scan(&name)
	if err != nil {
		utils.SendError(c, http.StatusNotFound, "community not found")
		return
	}

	res, err := config.DB.Exec(`
		UPDATE sessions SET community_id = ?, community_name = ?
		WHERE id = ? AND client_id = ?`,
		*req.CommunityID, name, sessionID, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		utils.SendError(c, http.StatusNotFound, "session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DELETE /api/sessions/:id
func DeleteSessionHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	sessionID := c.Param("id")

	res, err := config.DB.Exec(`
		DELETE FROM sessions WHERE id = ? AND client_id = ?`, sessionID, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		utils.SendError(c, http.StatusNotFound, "session not found")
		return
	}
	if _, err := config.DB.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		utils.LogError("message cleanup after session delete", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /api/sessions/:id/finalize
// Manual completion for conversations the member never closed out.
func FinalizeSessionHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	sessionID := c.Param("id")

	res, err := config.DB.Exec(`
		UPDATE sessions
		SET completed = TRUE, completed_at = COALESCE(completed_at, NOW())
		WHERE id = ? AND client_id = ?`, sessionID, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		utils.SendError(c, http.StatusNotFound, "session not found")
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("admin: finalize summary panic: %v", r)
			}
		}()
		if err := insights.Default().SummarizeSession(sessionID); err != nil {
			log.Printf("admin: finalize summary failed for session %s: %v", sessionID, err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"success": true})
}
