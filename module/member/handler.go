package member

import (
	"net/http"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/members
func ListMembersHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)

	rows, err := config.DB.Query(`
		SELECT m.id, m.client_id, m.name, m.email, m.community_id,
		       COALESCE(c.name, ''), m.active, m.created_at
		FROM members m
		LEFT JOIN communities c ON c.id = m.community_id
		WHERE m.client_id = ?
		ORDER BY m.name ASC`, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		err := rows.Scan(&m.ID, &m.ClientID, &m.Name, &m.Email, &m.CommunityID,
			&m.CommunityName, &m.Active, &m.CreatedAt)
		if err != nil {
			utils.InternalError(c, err)
			return
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		utils.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// PUT /api/members/:id/status
// Deactivated members drop out of invitation and reminder fan-out.
func UpdateMemberStatusHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	memberID := c.Param("id")

	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		utils.SendError(c, http.StatusBadRequest, "active flag is required")
		return
	}

	res, err := config.DB.Exec(`
		UPDATE members SET active = ? WHERE id = ? AND client_id = ?`,
		*req.Active, memberID, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		utils.SendError(c, http.StatusNotFound, "member not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
