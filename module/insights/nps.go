package insights

import (
	"math"
	"sort"

	"ResidentPulse-Server/model"
)

// NpsBreakdown is the aggregate over one set of 0-10 scores.
// Score is nil when there are no scores.
type NpsBreakdown struct {
	Promoters  int  `json:"promoters"`
	Passives   int  `json:"passives"`
	Detractors int  `json:"detractors"`
	Total      int  `json:"total"`
	Score      *int `json:"score"`
}

// ComputeNps applies the standard NPS formula: promoters score 9-10,
// detractors 0-6, nps = round(((promoters - detractors) / total) * 100).
// Every NPS figure in the system comes through here.
func ComputeNps(scores []int) NpsBreakdown {
	b := NpsBreakdown{Total: len(scores)}
	for _, s := range scores {
		switch {
		case s >= 9:
			b.Promoters++
		case s <= 6:
			b.Detractors++
		default:
			b.Passives++
		}
	}
	if b.Total == 0 {
		return b
	}
	nps := int(math.Round(float64(b.Promoters-b.Detractors) / float64(b.Total) * 100))
	b.Score = &nps
	return b
}

// ClassifyCommunityCohort buckets a community by the lower median of its
// scores. Empty input classifies as passive.
func ClassifyCommunityCohort(scores []int) string {
	if len(scores) == 0 {
		return model.CohortPassive
	}
	sorted := append([]int(nil), scores...)
	sort.Ints(sorted)
	median := sorted[len(sorted)/2]
	switch {
	case median >= 9:
		return model.CohortPromoter
	case median >= 7:
		return model.CohortPassive
	default:
		return model.CohortDetractor
	}
}
