package reporting

import (
	"net/http"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/insights"
	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

type rollupEntry struct {
	Label         string `json:"label"`
	Nps           *int   `json:"nps"`
	ResponseCount int    `json:"responseCount"`
	Communities   int    `json:"communities"`
}

// GET /api/reports/managers
func ManagerRollupHandler(c *gin.Context) {
	rollupHandler(c, "manager_name")
}

// GET /api/reports/property-types
func PropertyTypeRollupHandler(c *gin.Context) {
	rollupHandler(c, "property_type")
}

// rollupHandler aggregates concluded-round ratings by a snapshot
// dimension. Snapshots rather than live communities, so reassigned or
// deactivated communities keep their historical attribution.
func rollupHandler(c *gin.Context, dimension string) {
	clientID := c.MustGet("client_id").(string)

	// dimension is one of the two fixed column names above.
	rows, err := config.DB.Query(`
		SELECT cs.`+dimension+`, cs.community_id, s.nps_score
		FROM community_snapshots cs
		JOIN survey_rounds r ON r.id = cs.round_id AND r.status = ?
		JOIN sessions s ON s.round_id = cs.round_id
			AND s.community_id = cs.community_id
			AND s.completed = TRUE
		WHERE cs.client_id = ?`, model.RoundConcluded, clientID)
	if err != nil {
		utils.InternalError(c, err)
		return
	}
	defer rows.Close()

	var order []string
	scores := map[string][]int{}
	responses := map[string]int{}
	communities := map[string]map[int64]bool{}
	for rows.Next() {
		var label string
		var communityID int64
		var score *int
		if err := rows.Scan(&label, &communityID, &score); err != nil {
			utils.InternalError(c, err)
			return
		}
		if label == "" {
			label = "Unassigned"
		}
		if _, seen := scores[label]; !seen {
			order = append(order, label)
			scores[label] = nil
			communities[label] = map[int64]bool{}
		}
		responses[label]++
		communities[label][communityID] = true
		if score != nil {
			scores[label] = append(scores[label], *score)
		}
	}
	if err := rows.Err(); err != nil {
		utils.InternalError(c, err)
		return
	}

	entries := make([]rollupEntry, 0, len(order))
	for _, label := range order {
		entries = append(entries, rollupEntry{
			Label:         label,
			Nps:           insights.ComputeNps(scores[label]).Score,
			ResponseCount: responses[label],
			Communities:   len(communities[label]),
		})
	}
	c.JSON(http.StatusOK, gin.H{"rollup": entries})
}
