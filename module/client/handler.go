package client

import (
	"net/http"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/settings
func GetSettingsHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)

	var cl model.Client
	err := config.DB.QueryRow(`
		SELECT id, company_name, system_prompt, interview_context,
		       survey_cadence, member_limit, active, created_at
		FROM clients WHERE id = ?`, clientID).
		Scan(&cl.ID, &cl.CompanyName, &cl.SystemPrompt, &cl.InterviewContext,
			&cl.SurveyCadence, &cl.MemberLimit, &cl.Active, &cl.CreatedAt)
	if err != nil {
		utils.SendError(c, http.StatusNotFound, "client not found")
		return
	}
	c.JSON(http.StatusOK, cl)
}

// PUT /api/settings
// Changing the cadence does not touch the round schedule by itself; the
// rounds recalculate endpoint rebuilds the planned slots explicitly.
func UpdateSettingsHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)

	var req struct {
		SystemPrompt     *string `json:"systemPrompt"`
		InterviewContext *string `json:"interviewContext"`
		SurveyCadence    *int    `json:"surveyCadence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.SurveyCadence != nil && *req.SurveyCadence != 2 && *req.SurveyCadence != 4 {
		utils.SendError(c, http.StatusBadRequest, "surveyCadence must be 2 or 4")
		return
	}

	_, err := config.DB.Exec(`
		UPDATE clients
		SET system_prompt = COALESCE(?, system_prompt),
		    interview_context = COALESCE(?, interview_context),
		    survey_cadence = COALESCE(?, survey_cadence)
		WHERE id = ?`,
		req.SystemPrompt, req.InterviewContext, req.SurveyCadence, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
