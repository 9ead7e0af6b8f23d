package reporting

import (
	"net/http"
	"strconv"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/insights"
	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

type communityCohort struct {
	CommunityName string `json:"communityName"`
	Cohort        string `json:"cohort"`
	MedianBase    int    `json:"responseCount"`
	Nps           *int   `json:"nps"`
}

// GET /api/reports/rounds/:id
// Round dashboard: NPS breakdown, per-community cohorts, response rate,
// cached insights and word frequencies.
func RoundDashboardHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	roundID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid round id")
		return
	}

	var rd model.SurveyRound
	err = config.DB.QueryRow(`
		SELECT id, round_number, status, scheduled_date, launched_at, closes_at,
		       concluded_at, members_invited, insights_json, insights_generated_at, word_frequencies
		FROM survey_rounds WHERE id = ? AND client_id = ?`, roundID, clientID).
		Scan(&rd.ID, &rd.RoundNumber, &rd.Status, &rd.ScheduledDate, &rd.LaunchedAt,
			&rd.ClosesAt, &rd.ConcludedAt, &rd.MembersInvited,
			&rd.InsightsJSON, &rd.InsightsGeneratedAt, &rd.WordFrequencies)
	if err != nil {
		utils.SendError(c, http.StatusNotFound, "round not found")
		return
	}

	scores, byCommunity, completed, err := roundScores(roundID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}

	breakdown := insights.ComputeNps(scores)

	cohorts := make([]communityCohort, 0, len(byCommunity))
	for name, communityScores := range byCommunity {
		b := insights.ComputeNps(communityScores)
		cohorts = append(cohorts, communityCohort{
			CommunityName: name,
			Cohort:        insights.ClassifyCommunityCohort(communityScores),
			MedianBase:    len(communityScores),
			Nps:           b.Score,
		})
	}

	responseRate := 0.0
	if rd.MembersInvited > 0 {
		responseRate = float64(completed) / float64(rd.MembersInvited)
	}

	c.JSON(http.StatusOK, gin.H{
		"round":           rd,
		"nps":             breakdown,
		"cohorts":         cohorts,
		"completed":       completed,
		"responseRate":    responseRate,
		"insights":        rd.InsightsJSON,
		"wordFrequencies": rd.WordFrequencies,
	})
}

// roundScores loads completed-session ratings grouped overall and per
// community, plus the completed-session count.
func roundScores(roundID int64) (scores []int, byCommunity map[string][]int, completed int, err error) {
	rows, err := config.DB.Query(`
		SELECT nps_score, COALESCE(community_name, '')
		FROM sessions
		WHERE round_id = ? AND completed = TRUE`, roundID)
	if err != nil {
		return nil, nil, 0, err
	}
	defer rows.Close()

	byCommunity = map[string][]int{}
	for rows.Next() {
		var score *int
		var community string
		if err := rows.Scan(&score, &community); err != nil {
			return nil, nil, 0, err
		}
		completed++
		if score == nil {
			continue
		}
		scores = append(scores, *score)
		if community != "" {
			byCommunity[community] = append(byCommunity[community], *score)
		}
	}
	return scores, byCommunity, completed, rows.Err()
}

// GET /api/reports/rounds/:id/word-frequencies
// Live recount for in-progress rounds; the cached column only updates
// when insights run.
func LiveWordFrequenciesHandler(c *gin.Context) {
	clientID := c.MustGet("client_id").(string)
	roundID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid round id")
		return
	}

	var owner string
	if err := config.DB.QueryRow(`
		SELECT client_id FROM survey_rounds WHERE id = ?`, roundID).Scan(&owner); err != nil || owner != clientID {
		utils.SendError(c, http.StatusNotFound, "round not found")
		return
	}

	freqs, err := insights.Default().ComputeLiveWordFrequencies(roundID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wordFrequencies": freqs})
}
