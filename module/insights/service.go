package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/ai"
)

// Service turns a round's raw sessions into NPS metrics and
// AI-authored narrative insights.
type Service interface {
	// SummarizeSession writes a 3-5 sentence management-facing summary
	// onto the session. No-op for sessions with zero messages.
	SummarizeSession(sessionID string) error
	// FinalizeStaleSessions force-completes abandoned-but-substantive
	// sessions so their ratings count. Returns how many were finalized.
	FinalizeStaleSessions(roundID int64) (int, error)
	// GenerateRoundInsights runs the full pipeline: finalize stale
	// sessions, three parallel analysis passes, one synthesis pass,
	// persist, then refresh word frequencies.
	GenerateRoundInsights(roundID int64, clientID string) error
	GenerateWordFrequencies(roundID int64, clientID string) error
	// ComputeLiveWordFrequencies applies the same tokenization without
	// persisting, for rounds still in progress.
	ComputeLiveWordFrequencies(roundID int64) ([]WordFrequency, error)
}

type service struct {
	repo      Repository
	completer ai.Completer
}

var insightsService Service

func InitService(repo Repository, completer ai.Completer) {
	insightsService = NewService(repo, completer)
}

func Default() Service { return insightsService }

func NewService(repo Repository, completer ai.Completer) Service {
	return &service{repo: repo, completer: completer}
}

const summaryPrompt = `You write internal summaries for a property management company's leadership. Given a feedback conversation with an HOA board member, write a 3-5 sentence summary covering: overall sentiment, the specific issues or praise raised, and anything leadership should follow up on. Write in plain prose, no headings, no bullet points.`

func (s *service) SummarizeSession(sessionID string) error {
	sess, err := s.repo.GetSession(sessionID)
	if err != nil {
		return err
	}
	msgs, err := s.repo.ListSessionMessages(sessionID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	var b strings.Builder
	if sess.NPSScore != nil {
		fmt.Fprintf(&b, "The member rated the company %d out of 10.\n\n", *sess.NPSScore)
	}
	b.WriteString("Transcript:\n")
	for _, m := range msgs {
		label := "Member"
		if m.Role == model.RoleAssistant {
			label = "Interviewer"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Content)
	}

	summary, err := s.completer.Complete(context.Background(), summaryPrompt,
		[]ai.ChatMessage{{Role: model.RoleUser, Content: b.String()}}, 300)
	if err != nil {
		return err
	}
	return s.repo.SetSummary(sessionID, strings.TrimSpace(summary))
}

func (s *service) FinalizeStaleSessions(roundID int64) (int, error) {
	stale, err := s.repo.ListStaleSessions(roundID)
	if err != nil {
		return 0, err
	}
	finalized := 0
	for _, sess := range stale {
		if err := s.repo.MarkCompleted(sess.ID); err != nil {
			log.Printf("insights: failed to finalize session %s: %v", sess.ID, err)
			continue
		}
		if sess.Summary == nil {
			if err := s.SummarizeSession(sess.ID); err != nil {
				log.Printf("insights: summary failed for finalized session %s: %v", sess.ID, err)
			}
		}
		finalized++
	}
	return finalized, nil
}

// analysisPass is one of the three independent prompts run over the
// shared round context.
type analysisPass struct {
	key      string
	min, max int
	prompt   string
}

var analysisPasses = []analysisPass{
	{
		key: "key_findings", min: 3, max: 6,
		prompt: `Identify the key findings from this survey round. Respond with a JSON array of 3-6 objects, each shaped exactly as {"title": "...", "detail": "...", "sentiment": "positive|negative|mixed"}. JSON only, no commentary.`,
	},
	{
		key: "recommended_actions", min: 3, max: 6,
		prompt: `Recommend concrete actions the management company should take based on this survey round. Respond with a JSON array of 3-6 objects, each shaped exactly as {"action": "...", "rationale": "...", "priority": "high|medium|low"}. JSON only, no commentary.`,
	},
	{
		key: "cam_ascent_callouts", min: 1, max: 4,
		prompt: `Call out individual community association managers or communities that stand out in this survey round, positively or negatively. Respond with a JSON array of 1-4 objects, each shaped exactly as {"community": "...", "callout": "...", "type": "praise|concern"}. JSON only, no commentary.`,
	},
}

const synthesisPrompt = `You are merging three independent analyses of one survey round into a single authoritative report. Deduplicate overlapping points, keep the strongest phrasing, and write a 3-4 sentence executive summary. Respond with one JSON object shaped exactly as {"executive_summary": "...", "key_findings": [...], "recommended_actions": [...], "cam_ascent_callouts": [...]}, where the arrays keep the item shapes of the inputs. JSON only, no commentary.`

// synthesisResult is the authoritative insight object.
type synthesisResult struct {
	ExecutiveSummary   string            `json:"executive_summary"`
	KeyFindings        []json.RawMessage `json:"key_findings"`
	RecommendedActions []json.RawMessage `json:"recommended_actions"`
	CamAscentCallouts  []json.RawMessage `json:"cam_ascent_callouts"`
}

// insightPayload is what lands in survey_rounds.insights_json. The raw
// passes ride along for audit.
type insightPayload struct {
	Synthesis     synthesisResult              `json:"synthesis"`
	NpsScore      *int                         `json:"nps_score"`
	ResponseCount int                          `json:"response_count"`
	GeneratedAt   time.Time                    `json:"generated_at"`
	RawPasses     map[string][]json.RawMessage `json:"raw_passes"`
}

func (s *service) GenerateRoundInsights(roundID int64, clientID string) error {
	if _, err := s.FinalizeStaleSessions(roundID); err != nil {
		return err
	}

	round, err := s.repo.GetRound(roundID)
	if err != nil {
		return err
	}
	client, err := s.repo.GetClient(clientID)
	if err != nil {
		return err
	}
	sessions, err := s.repo.ListCompletedWithSummaries(roundID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		log.Printf("insights: round %d has no summarized responses, skipping", roundID)
		return nil
	}

	contextBlock, breakdown, err := s.buildContext(round, client, sessions)
	if err != nil {
		return err
	}

	// The three passes are independent; one failing or returning junk
	// must not starve the others.
	raw := make(map[string][]json.RawMessage, len(analysisPasses))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, pass := range analysisPasses {
		wg.Add(1)
		go func(p analysisPass) {
			defer wg.Done()
			items := s.runPass(p, contextBlock)
			mu.Lock()
			raw[p.key] = items
			mu.Unlock()
		}(pass)
	}
	wg.Wait()

	synthesis := s.runSynthesis(contextBlock, raw)

	payload := insightPayload{
		Synthesis:     synthesis,
		NpsScore:      breakdown.Score,
		ResponseCount: len(sessions),
		GeneratedAt:   time.Now(),
		RawPasses:     raw,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.repo.SaveInsights(roundID, string(encoded), payload.GeneratedAt); err != nil {
		return err
	}

	return s.GenerateWordFrequencies(roundID, clientID)
}

func (s *service) buildContext(round *model.SurveyRound, client *model.Client, sessions []model.Session) (string, NpsBreakdown, error) {
	var scores []int
	for _, sess := range sessions {
		if sess.NPSScore != nil {
			scores = append(scores, *sess.NPSScore)
		}
	}
	breakdown := ComputeNps(scores)

	var b strings.Builder
	fmt.Fprintf(&b, "Survey round %d for %s.\n", round.RoundNumber, client.CompanyName)
	if client.InterviewContext != nil && strings.TrimSpace(*client.InterviewContext) != "" {
		fmt.Fprintf(&b, "\nBackground on the company:\n%s\n", *client.InterviewContext)
	}

	score := "n/a"
	if breakdown.Score != nil {
		score = fmt.Sprintf("%d", *breakdown.Score)
	}
	fmt.Fprintf(&b, "\nNPS: %s (%d promoters, %d passives, %d detractors, %d rated of %d responses)\n",
		score, breakdown.Promoters, breakdown.Passives, breakdown.Detractors, breakdown.Total, len(sessions))

	hasPrior, err := s.repo.PriorRoundHasInsights(client.ID, round.RoundNumber)
	if err != nil {
		return "", breakdown, err
	}
	if hasPrior {
		b.WriteString("\nEarlier rounds exist for this company; frame findings as trends where the feedback suggests change over time.\n")
	}

	b.WriteString("\nResponses:\n")
	for _, sess := range sessions {
		community := sess.CommunityName
		if community == "" {
			community = "unknown community"
		}
		rating := "unrated"
		if sess.NPSScore != nil {
			rating = fmt.Sprintf("NPS %d", *sess.NPSScore)
		}
		fmt.Fprintf(&b, "- %s (%s, %s): %s\n", sess.Email, community, rating, *sess.Summary)
	}
	return b.String(), breakdown, nil
}

// runPass executes one analysis pass. Anything unusable collapses to an
// empty array rather than an error.
func (s *service) runPass(p analysisPass, contextBlock string) []json.RawMessage {
	out, err := s.completer.Complete(context.Background(), p.prompt,
		[]ai.ChatMessage{{Role: model.RoleUser, Content: contextBlock}}, 1000)
	if err != nil {
		log.Printf("insights: %s pass failed: %v", p.key, err)
		return []json.RawMessage{}
	}
	var items []json.RawMessage
	if !ai.ExtractArray(out, &items) {
		log.Printf("insights: %s pass returned unparseable output", p.key)
		return []json.RawMessage{}
	}
	if len(items) > p.max {
		items = items[:p.max]
	}
	return items
}

func (s *service) runSynthesis(contextBlock string, raw map[string][]json.RawMessage) synthesisResult {
	fallback := synthesisResult{
		KeyFindings:        raw["key_findings"],
		RecommendedActions: raw["recommended_actions"],
		CamAscentCallouts:  raw["cam_ascent_callouts"],
	}

	input, err := json.Marshal(map[string]interface{}{
		"context":  contextBlock,
		"analyses": raw,
	})
	if err != nil {
		return fallback
	}

	out, err := s.completer.Complete(context.Background(), synthesisPrompt,
		[]ai.ChatMessage{{Role: model.RoleUser, Content: string(input)}}, 2000)
	if err != nil {
		log.Printf("insights: synthesis pass failed, keeping raw passes: %v", err)
		return fallback
	}
	var merged synthesisResult
	if !ai.ExtractObject(out, &merged) {
		log.Printf("insights: synthesis output unparseable, keeping raw passes")
		return fallback
	}
	return merged
}

func (s *service) GenerateWordFrequencies(roundID int64, clientID string) error {
	freqs, err := s.ComputeLiveWordFrequencies(roundID)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(freqs)
	if err != nil {
		return err
	}
	return s.repo.SaveWordFrequencies(roundID, string(encoded))
}

func (s *service) ComputeLiveWordFrequencies(roundID int64) ([]WordFrequency, error) {
	texts, err := s.repo.ListRoundUserMessages(roundID)
	if err != nil {
		return nil, err
	}
	return ComputeWordFrequencies(texts), nil
}
