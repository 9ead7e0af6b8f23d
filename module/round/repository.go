package round

import (
	"database/sql"
	"time"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
)

type Repository interface {
	GetClient(clientID string) (*model.Client, error)
	GetRound(roundID int64, clientID string) (*model.SurveyRound, error)
	ListRounds(clientID string) ([]model.SurveyRound, error)
	CountRounds(clientID string) (int, error)
	CreateRound(r *model.SurveyRound) error
	DeletePlannedRounds(clientID string) error
	// LatestLaunchedRound returns the most recently launched round, or
	// nil when the client has never launched one.
	LatestLaunchedRound(clientID string) (*model.SurveyRound, error)
	// LatestNonPlannedRound anchors cadence recalculation. Nil when the
	// client only has planned rounds.
	LatestNonPlannedRound(clientID string) (*model.SurveyRound, error)

	// ActivateRound is the guarded planned -> in_progress transition.
	// It reports false when the round is not planned or the tenant
	// already has an active round, with no state change either way.
	ActivateRound(roundID int64, clientID string, launchedAt, closesAt time.Time, membersInvited int) (bool, error)
	// ConcludeRound is the guarded in_progress -> concluded transition.
	ConcludeRound(roundID int64, clientID string, at time.Time) (bool, error)
	SnapshotCommunities(roundID int64, clientID string) error

	ListActiveMembers(clientID string) ([]model.Member, error)
	CountActiveMembers(clientID string) (int, error)
	SetMemberInvitation(memberID, token string, expiresAt time.Time) error
	InsertInvitationLog(l *model.InvitationLog) error

	// Scheduler reads span all tenants.
	ListInProgressRounds() ([]model.SurveyRound, error)
	ListPlannedRounds() ([]model.SurveyRound, error)
	// ListRoundNonResponders returns members who got a sent invitation
	// for the round, still belong to an active (or no) community, were
	// not bounced or complained on delivery, and have not completed a
	// session for the round.
	ListRoundNonResponders(roundID int64) ([]model.Member, error)
	MarkReminder10Sent(roundID int64) error
	MarkReminder20Sent(roundID int64) error
	MarkAdminReminder14Sent(roundID int64) error
	MarkAdminReminder0Sent(roundID int64) error

	CountCompletedSessions(roundID int64) (int, error)
}

type roundRepository struct{}

func NewRepository() Repository { return &roundRepository{} }

const roundColumns = `id, client_id, round_number, status, scheduled_date, launched_at,
	       closes_at, concluded_at, members_invited, reminder_10_sent, reminder_20_sent,
	       admin_reminder_14_sent, admin_reminder_0_sent, insights_json,
	       insights_generated_at, word_frequencies`

func scanRound(row interface{ Scan(...interface{}) error }) (*model.SurveyRound, error) {
	var r model.SurveyRound
	err := row.Scan(&r.ID, &r.ClientID, &r.RoundNumber, &r.Status, &r.ScheduledDate,
		&r.LaunchedAt, &r.ClosesAt, &r.ConcludedAt, &r.MembersInvited,
		&r.Reminder10Sent, &r.Reminder20Sent, &r.AdminReminder14Sent,
		&r.AdminReminder0Sent, &r.InsightsJSON, &r.InsightsGeneratedAt, &r.WordFrequencies)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRounds(rows *sql.Rows) ([]model.SurveyRound, error) {
	defer rows.Close()
	var out []model.SurveyRound
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (r *roundRepository) GetClient(clientID string) (*model.Client, error) {
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

func (r *roundRepository) GetRound(roundID int64, clientID string) (*model.SurveyRound, error) {
	row := config.DB.QueryRow(`
		SELECT `+roundColumns+`
		FROM survey_rounds WHERE id = ? AND client_id = ?`, roundID, clientID)
	rd, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound("round not found")
	}
	return rd, err
}

func (r *roundRepository) ListRounds(clientID string) ([]model.SurveyRound, error) {
	rows, err := config.DB.Query(`
		SELECT `+roundColumns+`
		FROM survey_rounds
		WHERE client_id = ?
		ORDER BY round_number ASC`, clientID)
	if err != nil {
		return nil, err
	}
	return scanRounds(rows)
}

func (r *roundRepository) CountRounds(clientID string) (int, error) {
	var count int
	err := config.DB.QueryRow(
		`SELECT COUNT(*) FROM survey_rounds WHERE client_id = ?`, clientID).Scan(&count)
	return count, err
}

func (r *roundRepository) CreateRound(rd *model.SurveyRound) error {
	res, err := config.DB.Exec(`
		INSERT INTO survey_rounds
			(client_id, round_number, status, scheduled_date,
			 reminder_10_sent, reminder_20_sent, admin_reminder_14_sent, admin_reminder_0_sent)
		VALUES (?, ?, ?, ?, FALSE, FALSE, FALSE, FALSE)`,
		rd.ClientID, rd.RoundNumber, rd.Status, rd.ScheduledDate)
	if err != nil {
		return err
	}
	rd.ID, _ = res.LastInsertId()
	return nil
}

func (r *roundRepository) DeletePlannedRounds(clientID string) error {
	_, err := config.DB.Exec(`
		DELETE FROM survey_rounds WHERE client_id = ? AND status = ?`,
		clientID, model.RoundPlanned)
	return err
}

func (r *roundRepository) LatestLaunchedRound(clientID string) (*model.SurveyRound, error) {
	row := config.DB.QueryRow(`
		SELECT `+roundColumns+`
		FROM survey_rounds
		WHERE client_id = ? AND launched_at IS NOT NULL
		ORDER BY launched_at DESC
		LIMIT 1`, clientID)
	rd, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rd, err
}

func (r *roundRepository) LatestNonPlannedRound(clientID string) (*model.SurveyRound, error) {
	row := config.DB.QueryRow(`
		SELECT `+roundColumns+`
		FROM survey_rounds
		WHERE client_id = ? AND status != ?
		ORDER BY round_number DESC
		LIMIT 1`, clientID, model.RoundPlanned)
	rd, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rd, err
}

func (r *roundRepository) ActivateRound(roundID int64, clientID string, launchedAt, closesAt time.Time, membersInvited int) (bool, error) {
	// Single guarded statement so two concurrent launches cannot both
	// pass a separate existence check. The derived table sidesteps
	// MySQL's same-table update restriction.
	res, err := config.DB.Exec(`
		UPDATE survey_rounds
		SET status = ?, launched_at = ?, closes_at = ?, members_invited = ?
		WHERE id = ? AND client_id = ? AND status = ?
		  AND NOT EXISTS (
		      SELECT 1 FROM (
		          SELECT id FROM survey_rounds WHERE client_id = ? AND status = ?
		      ) active
		  )`,
		model.RoundInProgress, launchedAt, closesAt, membersInvited,
		roundID, clientID, model.RoundPlanned,
		clientID, model.RoundInProgress)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *roundRepository) ConcludeRound(roundID int64, clientID string, at time.Time) (bool, error) {
	res, err := config.DB.Exec(`
		UPDATE survey_rounds
		SET status = ?, concluded_at = ?
		WHERE id = ? AND client_id = ? AND status = ?`,
		model.RoundConcluded, at, roundID, clientID, model.RoundInProgress)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *roundRepository) SnapshotCommunities(roundID int64, clientID string) error {
	// INSERT IGNORE keeps retried conclusions from duplicating rows;
	// (round_id, community_id) is unique.
	_, err := config.DB.Exec(`
		INSERT IGNORE INTO community_snapshots
			(round_id, community_id, client_id, name, manager_name,
			 property_type, unit_count, contract_value, created_at)
		SELECT ?, c.id, c.client_id, c.name, c.manager_name,
		       c.property_type, c.unit_count, c.contract_value, NOW()
		FROM communities c
		WHERE c.client_id = ? AND c.active = TRUE`, roundID, clientID)
	return err
}

func (r *roundRepository) ListActiveMembers(clientID string) ([]model.Member, error) {
	rows, err := config.DB.Query(`
		SELECT m.id, m.client_id, m.name, m.email, m.community_id,
		       COALESCE(c.name, ''), m.active, m.invitation_token, m.token_expires_at, m.created_at
		FROM members m
		LEFT JOIN communities c ON c.id = m.community_id
		WHERE m.client_id = ? AND m.active = TRUE
		ORDER BY m.created_at ASC`, clientID)
	if err != nil {
		return nil, err
	}
	return scanMembers(rows)
}

func scanMembers(rows *sql.Rows) ([]model.Member, error) {
	defer rows.Close()
	var out []model.Member
	for rows.Next() {
		var m model.Member
		err := rows.Scan(&m.ID, &m.ClientID, &m.Name, &m.Email, &m.CommunityID,
			&m.CommunityName, &m.Active, &m.InvitationToken, &m.TokenExpiresAt, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *roundRepository) CountActiveMembers(clientID string) (int, error) {
	var count int
	err := config.DB.QueryRow(`
		SELECT COUNT(*) FROM members WHERE client_id = ? AND active = TRUE`,
		clientID).Scan(&count)
	return count, err
}

func (r *roundRepository) SetMemberInvitation(memberID, token string, expiresAt time.Time) error {
	_, err := config.DB.Exec(`
		UPDATE members SET invitation_token = ?, token_expires_at = ? WHERE id = ?`,
		token, expiresAt, memberID)
	return err
}

func (r *roundRepository) InsertInvitationLog(l *model.InvitationLog) error {
	res, err := config.DB.Exec(`
		INSERT INTO invitation_logs
			(user_id, round_id, email_status, delivery_status, error_message, resend_email_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW())`,
		l.UserID, l.RoundID, l.EmailStatus, l.DeliveryStatus, l.ErrorMessage, l.ResendEmailID)
	if err != nil {
		return err
	}
	l.ID, _ = res.LastInsertId()
	return nil
}

func (r *roundRepository) ListInProgressRounds() ([]model.SurveyRound, error) {
	rows, err := config.DB.Query(`
		SELECT `+roundColumns+`
		FROM survey_rounds WHERE status = ?`, model.RoundInProgress)
	if err != nil {
		return nil, err
	}
	return scanRounds(rows)
}

func (r *roundRepository) ListPlannedRounds() ([]model.SurveyRound, error) {
	rows, err := config.DB.Query(`
		SELECT `+roundColumns+`
		FROM survey_rounds WHERE status = ?`, model.RoundPlanned)
	if err != nil {
		return nil, err
	}
	return scanRounds(rows)
}

func (r *roundRepository) ListRoundNonResponders(roundID int64) ([]model.Member, error) {
	rows, err := config.DB.Query(`
		SELECT DISTINCT m.id, m.client_id, m.name, m.email, m.community_id,
		       COALESCE(c.name, ''), m.active, m.invitation_token, m.token_expires_at, m.created_at
		FROM members m
		JOIN invitation_logs il ON il.user_id = m.id AND il.round_id = ?
		LEFT JOIN communities c ON c.id = m.community_id
		WHERE m.active = TRUE
		  AND il.email_status = ?
		  AND (m.community_id IS NULL OR c.active = TRUE)
		  AND NOT EXISTS (
		      SELECT 1 FROM invitation_logs bad
		      WHERE bad.user_id = m.id AND bad.round_id = il.round_id
		        AND bad.delivery_status IN (?, ?)
		  )
		  AND NOT EXISTS (
		      SELECT 1 FROM sessions s
		      WHERE s.user_id = m.id AND s.round_id = il.round_id AND s.completed = TRUE
		  )`,
		roundID, model.EmailStatusSent, model.DeliveryBounced, model.DeliveryComplained)
	if err != nil {
		return nil, err
	}
	return scanMembers(rows)
}

func (r *roundRepository) MarkReminder10Sent(roundID int64) error {
	return r.setFlag(roundID, "reminder_10_sent")
}

func (r *roundRepository) MarkReminder20Sent(roundID int64) error {
	return r.setFlag(roundID, "reminder_20_sent")
}

func (r *roundRepository) MarkAdminReminder14Sent(roundID int64) error {
	return r.setFlag(roundID, "admin_reminder_14_sent")
}

func (r *roundRepository) MarkAdminReminder0Sent(roundID int64) error {
	return r.setFlag(roundID, "admin_reminder_0_sent")
}

func (r *roundRepository) setFlag(roundID int64, column string) error {
	// column comes from the fixed set above, never from input.
	_, err := config.DB.Exec(
		`UPDATE survey_rounds SET `+column+` = TRUE WHERE id = ?`, roundID)
	return err
}

func (r *roundRepository) CountCompletedSessions(roundID int64) (int, error) {
	var count int
	err := config.DB.QueryRow(`
		SELECT COUNT(*) FROM sessions WHERE round_id = ? AND completed = TRUE`,
		roundID).Scan(&count)
	return count, err
}
