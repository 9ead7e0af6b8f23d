package admin

import (
	"net/http"
	"strconv"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/alerts
func ListAlertsHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)

	rows, err := config.DB.Query(`
		SELECT id, client_id, round_id, session_id, user_id, alert_type, severity,
		       description, source_message_id, dismissed, solved, created_at
		FROM critical_alerts
		WHERE client_id = ?
		ORDER BY created_at DESC`, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	defer rows.Close()

	alerts := []model.CriticalAlert{}
	for rows.Next() {
		var a model.CriticalAlert
		err := rows.Scan(&a.ID, &a.ClientID, &a.RoundID, &a.SessionID, &a.UserID,
			&a.AlertType, &a.Severity, &a.Description, &a.SourceMessageID,
			&a.Dismissed, &a.Solved, &a.CreatedAt)
		if err != nil {
			utils.InternalError(c, err)
			return
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		utils.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// PUT /api/alerts/:id/dismiss
func DismissAlertHandler(c *gin.Context) {
	updateAlertFlag(c, "dismissed")
}

// PUT /api/alerts/:id/solve
func SolveAlertHandler(c *gin.Context) {
	updateAlertFlag(c, "solved")
}

func updateAlertFlag(c *gin.Context, column string) {
	clientID := c.MustGet("client_id").(string)
	alertID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid alert id")
		return
	}

	// column is one of the two fixed names above.
	res, err := config.DB.Exec(
		`UPDATE critical_alerts SET `+column+` = TRUE WHERE id = ? AND client_id = ?`,
		alertID, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		utils.SendError(c, http.StatusNotFound, "alert not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
