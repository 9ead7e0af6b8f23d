package chat

import (
	"database/sql"
	"time"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
)

type Repository interface {
	GetSession(sessionID string) (*model.Session, error)
	GetClient(clientID string) (*model.Client, error)
	InsertMessage(sessionID, role, content string) (*model.Message, error)
	ListMessages(sessionID string) ([]model.Message, error)
	// ListPriorSessions returns up to limit completed sessions for the
	// same email and client, excluding excludeID, most recent first.
	ListPriorSessions(clientID, email, excludeID string, limit int) ([]model.Session, error)
	MarkCompleted(sessionID string) error
	SetNPSScore(sessionID string, score int) error
	InsertAlert(a *model.CriticalAlert) error

	// Token entry: resolve an invitation token into a member, find the
	// tenant's active round, and create or resume the member's session.
	GetMemberByToken(token string) (*model.Member, error)
	GetActiveRound(clientID string) (*model.SurveyRound, error)
	FindOpenSession(clientID, email string, roundID int64) (*model.Session, error)
	CreateSession(s *model.Session) error
}

type chatRepository struct{}

func NewRepository() Repository { return &chatRepository{} }

const sessionColumns = `id, client_id, round_id, user_id, email, nps_score, completed,
	       summary, community_id, COALESCE(community_name, ''), created_at, completed_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.ClientID, &s.RoundID, &s.UserID, &s.Email, &s.NPSScore,
		&s.Completed, &s.Summary, &s.CommunityID, &s.CommunityName, &s.CreatedAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *chatRepository) GetSession(sessionID string) (*model.Session, error) {
	row := config.DB.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("session not found")
	}
	return s, err
}

func (r *chatRepository) GetClient(clientID string) (*model.Client, error) {
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

func (r *chatRepository) InsertMessage(sessionID, role, content string) (*model.Message, error) {
	now := time.Now()
	res, err := config.DB.Exec(`
		INSERT INTO messages (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)`, sessionID, role, content, now)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &model.Message{ID: id, SessionID: sessionID, Role: role, Content: content, CreatedAt: now}, nil
}

func (r *chatRepository) ListMessages(sessionID string) ([]model.Message, error) {
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

func (r *chatRepository) ListPriorSessions(clientID, email, excludeID string, limit int) ([]model.Session, error) {
	rows, err := config.DB.Query(`
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE client_id = ? AND email = ? AND id != ? AND completed = TRUE
		ORDER BY created_at DESC
		LIMIT ?`, clientID, email, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *chatRepository) MarkCompleted(sessionID string) error {
	_, err := config.DB.Exec(`
		UPDATE sessions
		SET completed = TRUE, completed_at = COALESCE(completed_at, NOW())
		WHERE id = ?`, sessionID)
	return err
}

func (r *chatRepository) SetNPSScore(sessionID string, score int) error {
	// nps_score is immutable aggregation input once set.
	_, err := config.DB.Exec(`
		UPDATE sessions SET nps_score = ? WHERE id = ? AND nps_score IS NULL`,
		score, sessionID)
	return err
}

func (r *chatRepository) InsertAlert(a *model.CriticalAlert) error {
	res, err := config.DB.Exec(`
		INSERT INTO critical_alerts
			(client_id, round_id, session_id, user_id, alert_type, severity,
			 description, source_message_id, dismissed, solved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE, FALSE, NOW())`,
		a.ClientID, a.RoundID, a.SessionID, a.UserID, a.AlertType, a.Severity,
		a.Description, a.SourceMessageID)
	if err != nil {
		return err
	}
	a.ID, _ = res.LastInsertId()
	return nil
}

func (r *chatRepository) GetMemberByToken(token string) (*model.Member, error) {
	var m model.Member
	err := config.DB.QueryRow(`
		SELECT m.id, m.client_id, m.name, m.email, m.community_id,
		       COALESCE(c.name, ''), m.active, m.invitation_token, m.token_expires_at, m.created_at
		FROM members m
		LEFT JOIN communities c ON c.id = m.community_id
		WHERE m.invitation_token = ?`, token).
		Scan(&m.ID, &m.ClientID, &m.Name, &m.Email, &m.CommunityID,
			&m.CommunityName, &m.Active, &m.InvitationToken, &m.TokenExpiresAt, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("invitation not found")
	}
	return &m, err
}

func (r *chatRepository) GetActiveRound(clientID string) (*model.SurveyRound, error) {
	var rd model.SurveyRound
	err := config.DB.QueryRow(`
		SELECT id, client_id, round_number, status, scheduled_date, launched_at, closes_at
		FROM survey_rounds
		WHERE client_id = ? AND status = ?`, clientID, model.RoundInProgress).
		Scan(&rd.ID, &rd.ClientID, &rd.RoundNumber, &rd.Status, &rd.ScheduledDate,
			&rd.LaunchedAt, &rd.ClosesAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *chatRepository) FindOpenSession(clientID, email string, roundID int64) (*model.Session, error) {
	row := config.DB.QueryRow(`
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE client_id = ? AND email = ? AND round_id = ? AND completed = FALSE
		ORDER BY created_at DESC
		LIMIT 1`, clientID, email, roundID)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *chatRepository) CreateSession(s *model.Session) error {
	s.CreatedAt = time.Now()
	_, err := config.DB.Exec(`
		INSERT INTO sessions
			(id, client_id, round_id, user_id, email, community_id, community_name, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, FALSE, ?)`,
		s.ID, s.ClientID, s.RoundID, s.UserID, s.Email, s.CommunityID, s.CommunityName, s.CreatedAt)
	return err
}
