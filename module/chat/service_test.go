package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/ai"
	"ResidentPulse-Server/module/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	clients  map[string]*model.Client
	messages map[string][]model.Message
	prior    []model.Session
	alerts   []*model.CriticalAlert
	members  map[string]*model.Member
	round    *model.SurveyRound
	nextMsg  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: map[string]*model.Session{},
		clients:  map[string]*model.Client{},
		messages: map[string][]model.Message{},
		members:  map[string]*model.Member{},
	}
}

func (f *fakeRepo) GetSession(id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, model.NewNotFound("session not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) GetClient(id string) (*model.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, model.NewNotFound("client not found")
	}
	return c, nil
}

func (f *fakeRepo) InsertMessage(sessionID, role, content string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMsg++
	m := model.Message{ID: f.nextMsg, SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Now()}
	f.messages[sessionID] = append(f.messages[sessionID], m)
	return &m, nil
}

func (f *fakeRepo) ListMessages(sessionID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Message(nil), f.messages[sessionID]...), nil
}

func (f *fakeRepo) ListPriorSessions(clientID, email, excludeID string, limit int) ([]model.Session, error) {
	if len(f.prior) > limit {
		return f.prior[:limit], nil
	}
	return f.prior, nil
}

func (f *fakeRepo) MarkCompleted(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.Completed = true
	}
	return nil
}

func (f *fakeRepo) SetNPSScore(sessionID string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok && s.NPSScore == nil {
		s.NPSScore = &score
	}
	return nil
}

func (f *fakeRepo) InsertAlert(a *model.CriticalAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeRepo) GetMemberByToken(token string) (*model.Member, error) {
	m, ok := f.members[token]
	if !ok {
		return nil, model.NewNotFound("invitation not found")
	}
	return m, nil
}

func (f *fakeRepo) GetActiveRound(clientID string) (*model.SurveyRound, error) {
	return f.round, nil
}

func (f *fakeRepo) FindOpenSession(clientID, email string, roundID int64) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ClientID == clientID && s.Email == email && s.RoundID != nil && *s.RoundID == roundID && !s.Completed {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateSession(s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	systems []string
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, history []ai.ChatMessage, maxTokens int) (string, error) {
	f.mu.Lock()
	f.systems = append(f.systems, system)
	f.mu.Unlock()
	return f.reply, f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []notify.AlertDetails
}

func (f *fakeNotifier) NotifyCriticalAlert(d notify.AlertDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, d)
	return nil
}

type fakeSummarizer struct {
	called chan string
}

func (f *fakeSummarizer) SummarizeSession(sessionID string) error {
	f.called <- sessionID
	return nil
}

type allowAllStore struct{ deny bool }

func (s *allowAllStore) Allow(string) (bool, error) { return !s.deny, nil }

func newTestService(repo *fakeRepo, completer *fakeCompleter, store RateStore) (*service, *fakeNotifier, *fakeSummarizer) {
	n := &fakeNotifier{}
	sum := &fakeSummarizer{called: make(chan string, 1)}
	svc := NewService(repo, completer, store, n, sum).(*service)
	return svc, n, sum
}

func seedSession(repo *fakeRepo) *model.Session {
	roundID := int64(7)
	sess := &model.Session{
		ID:       "sess-1",
		ClientID: "client-1",
		RoundID:  &roundID,
		Email:    "board@example.com",
	}
	repo.sessions[sess.ID] = sess
	repo.clients["client-1"] = &model.Client{ID: "client-1", CompanyName: "Summit Property Group"}
	return sess
}

func TestPostMessageAppendsTurnAndReturnsReply(t *testing.T) {
	repo := newFakeRepo()
	seedSession(repo)
	completer := &fakeCompleter{reply: "Thanks for sharing. What could be better?"}
	svc, _, _ := newTestService(repo, completer, &allowAllStore{})

	reply, at, err := svc.PostMessage(context.Background(), "sess-1", "The new manager is great")
	require.NoError(t, err)
	assert.Equal(t, "Thanks for sharing. What could be better?", reply)
	assert.False(t, at.IsZero())

	msgs, _ := repo.ListMessages("sess-1")
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
}

func TestPostMessageValidation(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo, &fakeCompleter{}, &allowAllStore{})

	_, _, err := svc.PostMessage(context.Background(), "", "hello")
	assert.True(t, model.IsKind(err, model.KindValidation))

	_, _, err = svc.PostMessage(context.Background(), "sess-1", "   ")
	assert.True(t, model.IsKind(err, model.KindValidation))
}

func TestPostMessageNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo, &fakeCompleter{reply: "x"}, &allowAllStore{})

	_, _, err := svc.PostMessage(context.Background(), "missing", "hello")
	assert.True(t, model.IsKind(err, model.KindNotFound))
}

func TestPostMessageRateLimited(t *testing.T) {
	repo := newFakeRepo()
	seedSession(repo)
	svc, _, _ := newTestService(repo, &fakeCompleter{reply: "x"}, &allowAllStore{deny: true})

	_, _, err := svc.PostMessage(context.Background(), "sess-1", "hello there")
	assert.True(t, model.IsKind(err, model.KindRateLimited))

	// The rejected message is not appended.
	msgs, _ := repo.ListMessages("sess-1")
	assert.Empty(t, msgs)
}

func TestComposeSystemPromptLayersContext(t *testing.T) {
	repo := newFakeRepo()
	sess := seedSession(repo)
	supplement := "Family-owned firm managing 40 communities in Arizona."
	repo.clients["client-1"].InterviewContext = &supplement

	summary := "Praised maintenance turnaround, wants better budget reporting."
	nine := 9
	repo.prior = []model.Session{{
		ID: "old-1", NPSScore: &nine, Summary: &summary,
		CreatedAt: time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC),
	}}

	svc, _, _ := newTestService(repo, &fakeCompleter{}, &allowAllStore{})
	prompt, err := svc.composeSystemPrompt(sess)
	require.NoError(t, err)

	assert.Contains(t, prompt, "friendly, professional interviewer")
	assert.Contains(t, prompt, supplement)
	assert.Contains(t, prompt, "Oct 3, 2025")
	assert.Contains(t, prompt, "NPS 9")
	assert.Contains(t, prompt, summary)
}

func TestComposeSystemPromptTenantOverride(t *testing.T) {
	repo := newFakeRepo()
	sess := seedSession(repo)
	override := "You are Summit's dedicated feedback assistant."
	repo.clients["client-1"].SystemPrompt = &override

	svc, _, _ := newTestService(repo, &fakeCompleter{}, &allowAllStore{})
	prompt, err := svc.composeSystemPrompt(sess)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, override))
	assert.NotContains(t, prompt, "friendly, professional interviewer")
}

func TestDetectCriticalAlertShortMessageNoop(t *testing.T) {
	repo := newFakeRepo()
	sess := seedSession(repo)
	completer := &fakeCompleter{reply: `{"is_critical": true}`}
	svc, n, _ := newTestService(repo, completer, &allowAllStore{})

	svc.detectCriticalAlert(sess, "too short", 1)

	assert.Empty(t, repo.alerts)
	assert.Empty(t, n.alerts)
	assert.Empty(t, completer.systems, "classifier must not be called for short messages")
}

func TestDetectCriticalAlertPersistsAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	sess := seedSession(repo)
	completer := &fakeCompleter{reply: "```json\n{\"is_critical\": true, \"alert_type\": \"legal_threat\", \"severity\": \"critical\", \"description\": \"Member intends to sue the management company.\"}\n```"}
	svc, n, _ := newTestService(repo, completer, &allowAllStore{})

	svc.detectCriticalAlert(sess, "I'm going to personally sue your management company over this", 42)

	require.Len(t, repo.alerts, 1)
	alert := repo.alerts[0]
	assert.Equal(t, model.AlertLegalThreat, alert.AlertType)
	assert.Equal(t, model.SeverityCritical, alert.Severity)
	assert.Equal(t, int64(42), *alert.SourceMessageID)
	require.Len(t, n.alerts, 1)
	assert.Equal(t, "Summit Property Group", n.alerts[0].CompanyName)
}

func TestDetectCriticalAlertNotCriticalNoop(t *testing.T) {
	repo := newFakeRepo()
	sess := seedSession(repo)
	completer := &fakeCompleter{reply: `{"is_critical": false}`}
	svc, n, _ := newTestService(repo, completer, &allowAllStore{})

	svc.detectCriticalAlert(sess, "I'm going to sue the HOA's landscaping vendor for a contract dispute", 1)

	assert.Empty(t, repo.alerts)
	assert.Empty(t, n.alerts)
}

func TestDetectCriticalAlertUnparseableFailsClosed(t *testing.T) {
	repo := newFakeRepo()
	sess := seedSession(repo)
	completer := &fakeCompleter{reply: "I think this might be serious, hard to say."}
	svc, n, _ := newTestService(repo, completer, &allowAllStore{})

	svc.detectCriticalAlert(sess, "a long enough message about something vaguely concerning here", 1)

	assert.Empty(t, repo.alerts)
	assert.Empty(t, n.alerts)
}

func TestCompleteSessionIdempotentAndSummarizes(t *testing.T) {
	repo := newFakeRepo()
	seedSession(repo)
	svc, _, sum := newTestService(repo, &fakeCompleter{}, &allowAllStore{})

	require.NoError(t, svc.CompleteSession("sess-1"))

	select {
	case id := <-sum.called:
		assert.Equal(t, "sess-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("summarizer was not invoked")
	}

	got, _ := repo.GetSession("sess-1")
	assert.True(t, got.Completed)

	// Second completion is a no-op with the same visible outcome.
	require.NoError(t, svc.CompleteSession("sess-1"))
	select {
	case <-sum.called:
		t.Fatal("summarizer must not run again for an already-completed session")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSetNPSScoreValidation(t *testing.T) {
	repo := newFakeRepo()
	seedSession(repo)
	svc, _, _ := newTestService(repo, &fakeCompleter{}, &allowAllStore{})

	assert.True(t, model.IsKind(svc.SetNPSScore("sess-1", 11), model.KindValidation))
	assert.True(t, model.IsKind(svc.SetNPSScore("sess-1", -1), model.KindValidation))
	require.NoError(t, svc.SetNPSScore("sess-1", 9))

	// Immutable once set.
	require.NoError(t, svc.SetNPSScore("sess-1", 2))
	got, _ := repo.GetSession("sess-1")
	assert.Equal(t, 9, *got.NPSScore)
}

func TestStartSessionResumesOpenSession(t *testing.T) {
	repo := newFakeRepo()
	sess := seedSession(repo)
	roundID := *sess.RoundID
	repo.round = &model.SurveyRound{ID: roundID, ClientID: "client-1", Status: model.RoundInProgress}
	future := time.Now().Add(24 * time.Hour)
	repo.members["tok-1"] = &model.Member{
		ID: "member-1", ClientID: "client-1", Email: "board@example.com",
		Active: true, TokenExpiresAt: &future,
	}

	svc, _, _ := newTestService(repo, &fakeCompleter{}, &allowAllStore{})
	got, err := svc.StartSession("tok-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID, "existing open session is resumed, not duplicated")
}

func TestStartSessionExpiredToken(t *testing.T) {
	repo := newFakeRepo()
	past := time.Now().Add(-time.Hour)
	repo.members["tok-1"] = &model.Member{ID: "m1", ClientID: "c1", TokenExpiresAt: &past}

	svc, _, _ := newTestService(repo, &fakeCompleter{}, &allowAllStore{})
	_, err := svc.StartSession("tok-1")
	assert.True(t, model.IsKind(err, model.KindPrecondition))
}

func TestStartSessionNoActiveRound(t *testing.T) {
	repo := newFakeRepo()
	future := time.Now().Add(time.Hour)
	repo.members["tok-1"] = &model.Member{ID: "m1", ClientID: "c1", TokenExpiresAt: &future}

	svc, _, _ := newTestService(repo, &fakeCompleter{}, &allowAllStore{})
	_, err := svc.StartSession("tok-1")
	assert.True(t, model.IsKind(err, model.KindPrecondition))
}
