package round

import (
	"net/http"
	"strconv"
	"time"

	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

// Admin endpoints, tenant-scoped by the authenticated client id.

// POST /api/rounds/schedule
func ScheduleRoundsHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)

	var req struct {
		FirstLaunchDate string `json:"firstLaunchDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	firstLaunch, err := time.Parse("2006-01-02", req.FirstLaunchDate)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "firstLaunchDate must be YYYY-MM-DD")
		return
	}

	rounds, err := roundService.ScheduleInitialRounds(clientID, firstLaunch)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}

// GET /api/rounds
func ListRoundsHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)

	rounds, err := roundService.ListRounds(clientID)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}

// POST /api/rounds/:id/launch
func LaunchRoundHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	roundID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid round id")
		return
	}

	result, err := roundService.Launch(roundID, clientID)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// POST /api/rounds/:id/close
func CloseRoundHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	roundID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid round id")
		return
	}

	if err := roundService.CloseEarly(roundID, clientID); err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /api/rounds/recalculate
func RecalculateCadenceHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)

	if err := roundService.RecalculateCadence(clientID); err != nil {
		utils.SendAppError(c, err)
		return
	}

	rounds, err := roundService.ListRounds(clientID)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rounds})
}

// POST /api/rounds/:id/regenerate-insights
// Unlike the async trigger on close, this runs the pipeline to
// completion before responding.
func RegenerateInsightsHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	roundID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid round id")
		return
	}

	if err := roundService.RegenerateInsights(roundID, clientID); err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
