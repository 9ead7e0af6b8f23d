package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/ai"
	"ResidentPulse-Server/module/notify"
	"ResidentPulse-Server/utils"
)

// defaultSystemPrompt moderates the survey conversation when a tenant
// has no override configured.
const defaultSystemPrompt = `You are a friendly, professional interviewer conducting a short feedback conversation with an HOA or condo board member about their property management company.

Guidelines:
- Ask one question at a time and keep replies to 2-3 sentences.
- Start by asking what is going well, then what could be better.
- Probe gently for specifics (communication, maintenance, financials, responsiveness).
- At a natural point, ask them to rate, 0-10, how likely they are to recommend the management company to another board.
- Thank them and let them know their feedback goes to the company's leadership in summarized form.
- Never argue, never make commitments on the company's behalf.`

// Summarizer generates and persists a session summary after completion.
// Implemented by the insights service.
type Summarizer interface {
	SummarizeSession(sessionID string) error
}

// AlertNotifier receives flagged-conversation notices.
type AlertNotifier interface {
	NotifyCriticalAlert(d notify.AlertDetails) error
}

type Service interface {
	// StartSession resolves an invitation token into a new or resumed
	// session for the tenant's active round.
	StartSession(token string) (*model.Session, error)
	// PostMessage appends the member's message, obtains one assistant
	// reply, and fires async critical-alert detection.
	PostMessage(ctx context.Context, sessionID, text string) (reply string, at time.Time, err error)
	// SetNPSScore records the 0-10 rating. Once set it is immutable.
	SetNPSScore(sessionID string, score int) error
	// CompleteSession marks the session done and triggers async summary
	// generation. Idempotent in effect.
	CompleteSession(sessionID string) error
}

type service struct {
	repo       Repository
	completer  ai.Completer
	rate       RateStore
	notifier   AlertNotifier
	summarizer Summarizer
}

var chatService Service

// InitService wires the package-level chat engine.
func InitService(repo Repository, completer ai.Completer, rate RateStore, notifier AlertNotifier, summarizer Summarizer) {
	chatService = NewService(repo, completer, rate, notifier, summarizer)
}

func NewService(repo Repository, completer ai.Completer, rate RateStore, notifier AlertNotifier, summarizer Summarizer) Service {
	return &service{repo: repo, completer: completer, rate: rate, notifier: notifier, summarizer: summarizer}
}

func (s *service) StartSession(token string) (*model.Session, error) {
	if token == "" {
		return nil, model.NewValidation("token is required")
	}

	member, err := s.repo.GetMemberByToken(token)
	if err != nil {
		return nil, err
	}
	if member.TokenExpiresAt != nil && member.TokenExpiresAt.Before(time.Now()) {
		return nil, model.NewPrecondition("invitation has expired")
	}

	round, err := s.repo.GetActiveRound(member.ClientID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, model.NewPrecondition("no survey round is currently open")
	}

	existing, err := s.repo.FindOpenSession(member.ClientID, member.Email, round.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	sess := &model.Session{
		ID:            utils.NewSessionID(),
		ClientID:      member.ClientID,
		RoundID:       &round.ID,
		UserID:        &member.ID,
		Email:         member.Email,
		CommunityID:   member.CommunityID,
		CommunityName: member.CommunityName,
	}
	if err := s.repo.CreateSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *service) PostMessage(ctx context.Context, sessionID, text string) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, model.NewValidation("session_id is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", time.Time{}, model.NewValidation("message is required")
	}

	allowed, err := s.rate.Allow(sessionID)
	if err != nil {
		// A broken rate store should not take chat down with it.
		log.Printf("chat: rate store error, allowing request: %v", err)
		allowed = true
	}
	if !allowed {
		return "", time.Time{}, model.NewRateLimited("too many messages, please wait a moment")
	}

	sess, err := s.repo.GetSession(sessionID)
	if err != nil {
		return "", time.Time{}, err
	}

	userMsg, err := s.repo.InsertMessage(sessionID, model.RoleUser, text)
	if err != nil {
		return "", time.Time{}, err
	}

	transcript, err := s.repo.ListMessages(sessionID)
	if err != nil {
		return "", time.Time{}, err
	}

	system, err := s.composeSystemPrompt(sess)
	if err != nil {
		return "", time.Time{}, err
	}

	history := make([]ai.ChatMessage, 0, len(transcript))
	for _, m := range transcript {
		history = append(history, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	reply, err := s.completer.Complete(ctx, system, history, 512)
	if err != nil {
		return "", time.Time{}, model.NewExternal("assistant reply failed", err)
	}

	replyMsg, err := s.repo.InsertMessage(sessionID, model.RoleAssistant, reply)
	if err != nil {
		return "", time.Time{}, err
	}

	// Alert detection is detached from the request: its failure must
	// never affect the reply delivered to the member.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("chat: alert detection panic: %v", r)
			}
		}()
		s.detectCriticalAlert(sess, text, userMsg.ID)
	}()

	return reply, replyMsg.CreatedAt, nil
}

// composeSystemPrompt layers the tenant override, the onboarding
// interview supplement, and up to 5 prior completed sessions by the same
// member as continuity context.
func (s *service) composeSystemPrompt(sess *model.Session) (string, error) {
	client, err := s.repo.GetClient(sess.ClientID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if client.SystemPrompt != nil && strings.TrimSpace(*client.SystemPrompt) != "" {
		b.WriteString(*client.SystemPrompt)
	} else {
		b.WriteString(defaultSystemPrompt)
	}

	if client.InterviewContext != nil && strings.TrimSpace(*client.InterviewContext) != "" {
		b.WriteString("\n\nBackground on the management company (from their onboarding interview):\n")
		b.WriteString(*client.InterviewContext)
	}

	prior, err := s.repo.ListPriorSessions(sess.ClientID, sess.Email, sess.ID, 5)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, p := range prior {
		if p.Summary == nil {
			continue
		}
		score := "unrated"
		if p.NPSScore != nil {
			score = fmt.Sprintf("NPS %d", *p.NPSScore)
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", p.CreatedAt.Format("Jan 2, 2006"), score, *p.Summary))
	}
	if len(lines) > 0 {
		b.WriteString("\n\nThis board member has given feedback before. Use it for continuity, don't repeat the same questions:\n")
		b.WriteString(strings.Join(lines, "\n"))
	}

	return b.String(), nil
}

func (s *service) SetNPSScore(sessionID string, score int) error {
	if sessionID == "" {
		return model.NewValidation("session_id is required")
	}
	if score < 0 || score > 10 {
		return model.NewValidation("nps score must be between 0 and 10")
	}
	if _, err := s.repo.GetSession(sessionID); err != nil {
		return err
	}
	return s.repo.SetNPSScore(sessionID, score)
}

func (s *service) CompleteSession(sessionID string) error {
	if sessionID == "" {
		return model.NewValidation("session_id is required")
	}
	sess, err := s.repo.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sess.Completed {
		return nil
	}
	if err := s.repo.MarkCompleted(sessionID); err != nil {
		return err
	}

	// The session is completed regardless of how the summary attempt
	// goes; the summary lands asynchronously or not at all.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("chat: summary generation panic: %v", r)
			}
		}()
		if err := s.summarizer.SummarizeSession(sessionID); err != nil {
			log.Printf("chat: summary generation failed for session %s: %v", sessionID, err)
		}
	}()

	return nil
}
