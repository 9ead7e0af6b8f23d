package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"ResidentPulse-Server/model"

	"github.com/resend/resend-go/v2"
)

// Service sends templated survey and admin email through Resend. Every
// method is fire-and-forget from the engine's perspective: callers log
// failures, they never propagate them to the originating request.
type Service struct {
	db          *sql.DB
	client      *resend.Client
	from        string
	replyTo     string
	appBaseURL  string
	sendTimeout time.Duration
}

var service *Service

// InitService wires the package-level dispatcher.
func InitService(db *sql.DB) {
	service = NewService(db)
	if !service.IsConfigured() {
		log.Println("notify: RESEND_API_KEY not set, outbound email disabled")
	}
}

func Default() *Service { return service }

func NewService(db *sql.DB) *Service {
	s := &Service{
		db:          db,
		from:        getEnvOrDefault("RESEND_FROM_EMAIL", "ResidentPulse <surveys@residentpulse.io>"),
		replyTo:     os.Getenv("RESEND_REPLY_TO"),
		appBaseURL:  getEnvOrDefault("APP_BASE_URL", "http://localhost:8001"),
		sendTimeout: 30 * time.Second,
	}
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		s.client = resend.NewClient(apiKey)
	}
	return s
}

func (s *Service) IsConfigured() bool {
	return s.client != nil && s.from != ""
}

// SendInvitation emails one board member their personal survey link for a
// freshly launched round. Returns the provider message id so the caller
// can correlate delivery webhooks.
func (s *Service) SendInvitation(member model.Member, token string, round model.SurveyRound, companyName string) (string, error) {
	subject := fmt.Sprintf("%s wants your feedback: board member survey", companyName)
	body := buildInvitationEmail(member.Name, companyName, s.surveyLink(token), round.ClosesAt)
	return s.send(member.Email, subject, body)
}

// SendReminder emails a non-responder with days-remaining context.
func (s *Service) SendReminder(member model.Member, token string, round model.SurveyRound, daysLeft int, companyName string) (string, error) {
	subject := fmt.Sprintf("Reminder: %s board survey closes in %d days", companyName, daysLeft)
	body := buildReminderEmail(member.Name, companyName, s.surveyLink(token), daysLeft)
	return s.send(member.Email, subject, body)
}

// AlertDetails is what admins see about a flagged conversation.
type AlertDetails struct {
	ClientID      string
	CompanyName   string
	CommunityName string
	MemberName    string
	AlertType     string
	Severity      string
	Description   string
}

// NotifyCriticalAlert emails every admin of the tenant. Best-effort.
func (s *Service) NotifyCriticalAlert(d AlertDetails) error {
	subject := fmt.Sprintf("[%s] Critical alert: %s", d.Severity, d.AlertType)
	body := buildAlertEmail(d)
	return s.sendToAdmins(d.ClientID, subject, body)
}

// RoundDetails is the context for round lifecycle admin notices.
type RoundDetails struct {
	ClientID       string
	CompanyName    string
	RoundNumber    int
	ScheduledDate  time.Time
	MembersInvited int
	ResponseCount  int
}

func (s *Service) NotifyRoundLaunched(d RoundDetails) error {
	subject := fmt.Sprintf("Survey round %d launched, %d members invited", d.RoundNumber, d.MembersInvited)
	return s.sendToAdmins(d.ClientID, subject, buildRoundLaunchedEmail(d))
}

func (s *Service) NotifyRoundConcluded(d RoundDetails) error {
	subject := fmt.Sprintf("Survey round %d concluded, %d responses", d.RoundNumber, d.ResponseCount)
	return s.sendToAdmins(d.ClientID, subject, buildRoundConcludedEmail(d))
}

// NotifyRoundApproaching covers both the 14-day and day-of notices;
// daysOut <= 0 means the round is due now.
func (s *Service) NotifyRoundApproaching(d RoundDetails, daysOut int) error {
	var subject string
	if daysOut <= 0 {
		subject = fmt.Sprintf("Survey round %d is ready to launch", d.RoundNumber)
	} else {
		subject = fmt.Sprintf("Survey round %d launches in %d days", d.RoundNumber, daysOut)
	}
	return s.sendToAdmins(d.ClientID, subject, buildRoundApproachingEmail(d, daysOut))
}

func (s *Service) surveyLink(token string) string {
	return fmt.Sprintf("%s/survey/%s", s.appBaseURL, token)
}

// sendToAdmins fans a notice out to every admin email of the tenant.
// Individual failures are logged and do not stop the rest.
func (s *Service) sendToAdmins(clientID, subject, body string) error {
	rows, err := s.db.Query("SELECT email FROM admins WHERE client_id = ? AND active = TRUE", clientID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var lastErr error
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return err
		}
		if _, err := s.send(email, subject, body); err != nil {
			log.Printf("notify: admin email to %s failed: %v", email, err)
			lastErr = err
		}
	}
	return lastErr
}

func (s *Service) send(to, subject, body string) (string, error) {
	if !s.IsConfigured() {
		return "", fmt.Errorf("email service not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	if s.replyTo != "" {
		params.ReplyTo = s.replyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
