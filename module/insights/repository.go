package insights

import (
	"database/sql"
	"time"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
)

type Repository interface {
	GetRound(roundID int64) (*model.SurveyRound, error)
	GetClient(clientID string) (*model.Client, error)
	GetSession(sessionID string) (*model.Session, error)

	// ListStaleSessions returns round sessions that were abandoned
	// mid-conversation but carry a rating and at least two user turns.
	ListStaleSessions(roundID int64) ([]model.Session, error)
	ListCompletedWithSummaries(roundID int64) ([]model.Session, error)
	ListSessionMessages(sessionID string) ([]model.Message, error)
	ListRoundUserMessages(roundID int64) ([]string, error)

	MarkCompleted(sessionID string) error
	SetSummary(sessionID, summary string) error

	// PriorRoundHasInsights reports whether the client's previous
	// concluded round produced an insight payload.
	PriorRoundHasInsights(clientID string, beforeRoundNumber int) (bool, error)
	SaveInsights(roundID int64, payload string, at time.Time) error
	SaveWordFrequencies(roundID int64, payload string) error
}

type insightsRepository struct{}

func NewRepository() Repository { return &insightsRepository{} }

const sessionColumns = `id, client_id, round_id, user_id, email, nps_score, completed,
	       summary, community_id, COALESCE(community_name, ''), created_at, completed_at`

func scanSessions(rows *sql.Rows) ([]model.Session, error) {
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		var s model.Session
		err := rows.Scan(&s.ID, &s.ClientID, &s.RoundID, &s.UserID, &s.Email, &s.NPSScore,
			&s.Completed, &s.Summary, &s.CommunityID, &s.CommunityName, &s.CreatedAt, &s.CompletedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *insightsRepository) GetRound(roundID int64) (*model.SurveyRound, error) {
	var rd model.SurveyRound
	err := config.DB.QueryRow(`
		SELECT id, client_id, round_number, status, scheduled_date, launched_at,
		       closes_at, concluded_at, members_invited, insights_json, insights_generated_at
		FROM survey_rounds WHERE id = ?`, roundID).
		Scan(&rd.ID, &rd.ClientID, &rd.RoundNumber, &rd.Status, &rd.ScheduledDate,
			&rd.LaunchedAt, &rd.ClosesAt, &rd.ConcludedAt, &rd.MembersInvited,
			&rd.InsightsJSON, &rd.InsightsGeneratedAt)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("round not found")
	}
	return &rd, err
}

func (r *insightsRepository) GetClient(clientID string) (*model.Client, error) {
	var cl model.Client
	err := config.DB.QueryRow(`
		SELECT id, company_name, system_prompt, interview_context,
		       survey_cadence, member_limit, active, created_at
		FROM clients WHERE id = ?`, clientID).
		Scan(&cl.ID, &cl.CompanyName, &cl.SystemPrompt, &cl.InterviewContext,
			&cl.SurveyCadence, &cl.MemberLimit, &cl.Active, &cl.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("client not found")
	}
	return &cl, err
}

func (r *insightsRepository) GetSession(sessionID string) (*model.Session, error) {
	rows, err := config.DB.Query(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	sessions, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, model.NewNotFound("session not found")
	}
	return &sessions[0], nil
}

func (r *insightsRepository) ListStaleSessions(roundID int64) ([]model.Session, error) {
	rows, err := config.DB.Query(`
		SELECT `+sessionColumns+`
		FROM sessions s
		WHERE s.round_id = ?
		  AND s.completed = FALSE
		  AND s.nps_score IS NOT NULL
		  AND (SELECT COUNT(*) FROM messages m
		       WHERE m.session_id = s.id AND m.role = ?) >= 2`,
		roundID, model.RoleUser)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (r *insightsRepository) ListCompletedWithSummaries(roundID int64) ([]model.Session, error) {
	rows, err := config.DB.Query(`
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE round_id = ? AND completed = TRUE AND summary IS NOT NULL
		ORDER BY created_at ASC`, roundID)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

func (r *insightsRepository) ListSessionMessages(sessionID string) ([]model.Message, error) {
	rows, err := config.DB.Query(`
		SELECT id, session_id, role, content, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *insightsRepository) ListRoundUserMessages(roundID int64) ([]string, error) {
	rows, err := config.DB.Query(`
		SELECT m.content
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE s.round_id = ? AND m.role = ?
		ORDER BY m.created_at ASC, m.id ASC`, roundID, model.RoleUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		out = append(out, content)
	}
	return out, rows.Err()
}

func (r *insightsRepository) MarkCompleted(sessionID string) error {
	_, err := config.DB.Exec(`
		UPDATE sessions
		SET completed = TRUE, completed_at = COALESCE(completed_at, NOW())
		WHERE id = ?`, sessionID)
	return err
}

func (r *insightsRepository) SetSummary(sessionID, summary string) error {
	_, err := config.DB.Exec(`UPDATE sessions SET summary = ? WHERE id = ?`, summary, sessionID)
	return err
}

func (r *insightsRepository) PriorRoundHasInsights(clientID string, beforeRoundNumber int) (bool, error) {
	var count int
	err := config.DB.QueryRow(`
		SELECT COUNT(*) FROM survey_rounds
		WHERE client_id = ? AND round_number < ? AND insights_json IS NOT NULL`,
		clientID, beforeRoundNumber).Scan(&count)
	return count > 0, err
}

func (r *insightsRepository) SaveInsights(roundID int64, payload string, at time.Time) error {
	_, err := config.DB.Exec(`
		UPDATE survey_rounds
		SET insights_json = ?, insights_generated_at = ?
		WHERE id = ?`, payload, at, roundID)
	return err
}

func (r *insightsRepository) SaveWordFrequencies(roundID int64, payload string) error {
	_, err := config.DB.Exec(`
		UPDATE survey_rounds SET word_frequencies = ? WHERE id = ?`, payload, roundID)
	return err
}
