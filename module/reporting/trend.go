package reporting

import (
	"net/http"
	"time"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/insights"
	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

type trendPoint struct {
	RoundID       int64      `json:"roundId"`
	RoundNumber   int        `json:"roundNumber"`
	ConcludedAt   *time.Time `json:"concludedAt"`
	Nps           *int       `json:"nps"`
	ResponseCount int        `json:"responseCount"`
}

// GET /api/reports/trend
// NPS per concluded round, oldest first.
func TrendHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)

	rows, err := config.DB.Query(`
		SELECT r.id, r.round_number, r.concluded_at, s.nps_score, s.completed
		FROM survey_rounds r
		LEFT JOIN sessions s ON s.round_id = r.id AND s.completed = TRUE
		WHERE r.client_id = ? AND r.status = ?
		ORDER BY r.round_number ASC`, clientID, model.RoundConcluded)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	defer rows.Close()

	var order []int64
	points := map[int64]*trendPoint{}
	scores := map[int64][]int{}
	for rows.Next() {
		var (
			roundID     int64
			roundNumber int
			concludedAt *time.Time
			score       *int
			completed   *bool
		)
		if err := rows.Scan(&roundID, &roundNumber, &concludedAt, &score, &completed); err != nil {
			utils.InternalError(c, err)
			return
		}
		p, seen := points[roundID]
		if !seen {
			p = &trendPoint{RoundID: roundID, RoundNumber: roundNumber, ConcludedAt: concludedAt}
			points[roundID] = p
			order = append(order, roundID)
		}
		if completed != nil && *completed {
			p.ResponseCount++
		}
		if score != nil {
			scores[roundID] = append(scores[roundID], *score)
		}
	}
	if err := rows.Err(); err != nil {
		utils.InternalError(c, err)
		return
	}

	trend := make([]trendPoint, 0, len(order))
	for _, id := range order {
		p := points[id]
		p.Nps = insights.ComputeNps(scores[id]).Score
		trend = append(trend, *p)
	}
	c.JSON(http.StatusOK, gin.H{"trend": trend})
}
