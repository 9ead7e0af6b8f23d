package round

import (
	"errors"
	"sync"
	"testing"
	"time"

	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	client   *model.Client
	rounds   map[int64]*model.SurveyRound
	members  []model.Member
	logs     []model.InvitationLog
	// completedSessions maps round id -> member ids with a completed session.
	completedSessions map[int64][]string
	// snapshots holds (roundID, communityID) pairs.
	snapshots map[[2]int64]bool
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		client:            &model.Client{ID: "client-1", CompanyName: "Summit Property Group", SurveyCadence: 2, MemberLimit: 50, Active: true},
		rounds:            map[int64]*model.SurveyRound{},
		completedSessions: map[int64][]string{},
		snapshots:         map[[2]int64]bool{},
	}
}

func (f *fakeRepo) GetClient(clientID string) (*model.Client, error) {
	if clientID != f.client.ID {
		return nil, model.NewNotFound("client not found")
	}
	return f.client, nil
}

func (f *fakeRepo) GetRound(roundID int64, clientID string) (*model.SurveyRound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rd, ok := f.rounds[roundID]
	if !ok || rd.ClientID != clientID {
		return nil, model.NewNotFound("round not found")
	}
	cp := *rd
	return &cp, nil
}

func (f *fakeRepo) ListRounds(clientID string) ([]model.SurveyRound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SurveyRound
	for _, rd := range f.rounds {
		if rd.ClientID == clientID {
			out = append(out, *rd)
		}
	}
	sortRoundsByNumber(out)
	return out, nil
}

func sortRoundsByNumber(rounds []model.SurveyRound) {
	for i := 1; i < len(rounds); i++ {
		for j := i; j > 0 && rounds[j].RoundNumber < rounds[j-1].RoundNumber; j-- {
			rounds[j], rounds[j-1] = rounds[j-1], rounds[j]
		}
	}
}

func (f *fakeRepo) CountRounds(clientID string) (int, error) {
	rounds, _ := f.ListRounds(clientID)
	return len(rounds), nil
}

func (f *fakeRepo) CreateRound(rd *model.SurveyRound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rd.ID = f.nextID
	cp := *rd
	f.rounds[rd.ID] = &cp
	return nil
}

func (f *fakeRepo) DeletePlannedRounds(clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rd := range f.rounds {
		if rd.ClientID == clientID && rd.Status == model.RoundPlanned {
			delete(f.rounds, id)
		}
	}
	return nil
}

func (f *fakeRepo) LatestLaunchedRound(clientID string) (*model.SurveyRound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.SurveyRound
	for _, rd := range f.rounds {
		if rd.ClientID != clientID || rd.LaunchedAt == nil {
			continue
		}
		if latest == nil || rd.LaunchedAt.After(*latest.LaunchedAt) {
			latest = rd
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeRepo) LatestNonPlannedRound(clientID string) (*model.SurveyRound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.SurveyRound
	for _, rd := range f.rounds {
		if rd.ClientID != clientID || rd.Status == model.RoundPlanned {
			continue
		}
		if latest == nil || rd.RoundNumber > latest.RoundNumber {
			latest = rd
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeRepo) ActivateRound(roundID int64, clientID string, launchedAt, closesAt time.Time, membersInvited int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rd := range f.rounds {
		if rd.ClientID == clientID && rd.Status == model.RoundInProgress {
			return false, nil
		}
	}
	rd, ok := f.rounds[roundID]
	if !ok || rd.ClientID != clientID || rd.Status != model.RoundPlanned {
		return false, nil
	}
	rd.Status = model.RoundInProgress
	rd.LaunchedAt = &launchedAt
	rd.ClosesAt = &closesAt
	rd.MembersInvited = membersInvited
	return true, nil
}

func (f *fakeRepo) ConcludeRound(roundID int64, clientID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rd, ok := f.rounds[roundID]
	if !ok || rd.ClientID != clientID || rd.Status != model.RoundInProgress {
		return false, nil
	}
	rd.Status = model.RoundConcluded
	rd.ConcludedAt = &at
	return true, nil
}

func (f *fakeRepo) SnapshotCommunities(roundID int64, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.CommunityID != nil {
			f.snapshots[[2]int64{roundID, *m.CommunityID}] = true
		}
	}
	return nil
}

func (f *fakeRepo) ListActiveMembers(clientID string) ([]model.Member, error) {
	var out []model.Member
	for _, m := range f.members {
		if m.ClientID == clientID && m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountActiveMembers(clientID string) (int, error) {
	members, _ := f.ListActiveMembers(clientID)
	return len(members), nil
}

func (f *fakeRepo) SetMemberInvitation(memberID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.members {
		if f.members[i].ID == memberID {
			f.members[i].InvitationToken = &token
			f.members[i].TokenExpiresAt = &expiresAt
		}
	}
	return nil
}

func (f *fakeRepo) InsertInvitationLog(l *model.InvitationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeRepo) ListInProgressRounds() ([]model.SurveyRound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SurveyRound
	for _, rd := range f.rounds {
		if rd.Status == model.RoundInProgress {
			out = append(out, *rd)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPlannedRounds() ([]model.SurveyRound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SurveyRound
	for _, rd := range f.rounds {
		if rd.Status == model.RoundPlanned {
			out = append(out, *rd)
		}
	}
	return out, nil
}

// ListRoundNonResponders applies the same rules as the SQL variant:
// sent invitation, active member, not bounced or complained, no
// completed session for the round.
func (f *fakeRepo) ListRoundNonResponders(roundID int64) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	invited := map[string]bool{}
	suppressed := map[string]bool{}
	for _, l := range f.logs {
		if l.RoundID != roundID {
			continue
		}
		if l.EmailStatus == model.EmailStatusSent {
			invited[l.UserID] = true
		}
		if l.DeliveryStatus != nil &&
			(*l.DeliveryStatus == model.DeliveryBounced || *l.DeliveryStatus == model.DeliveryComplained) {
			suppressed[l.UserID] = true
		}
	}
	completed := map[string]bool{}
	for _, id := range f.completedSessions[roundID] {
		completed[id] = true
	}

	var out []model.Member
	for _, m := range f.members {
		if m.Active && invited[m.ID] && !suppressed[m.ID] && !completed[m.ID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) setRoundFlag(roundID int64, set func(*model.SurveyRound)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rd, ok := f.rounds[roundID]; ok {
		set(rd)
	}
	return nil
}

func (f *fakeRepo) MarkReminder10Sent(roundID int64) error {
	return f.setRoundFlag(roundID, func(rd *model.SurveyRound) { rd.Reminder10Sent = true })
}

func (f *fakeRepo) MarkReminder20Sent(roundID int64) error {
	return f.setRoundFlag(roundID, func(rd *model.SurveyRound) { rd.Reminder20Sent = true })
}

func (f *fakeRepo) MarkAdminReminder14Sent(roundID int64) error {
	return f.setRoundFlag(roundID, func(rd *model.SurveyRound) { rd.AdminReminder14Sent = true })
}

func (f *fakeRepo) MarkAdminReminder0Sent(roundID int64) error {
	return f.setRoundFlag(roundID, func(rd *model.SurveyRound) { rd.AdminReminder0Sent = true })
}

func (f *fakeRepo) CountCompletedSessions(roundID int64) (int, error) {
	return len(f.completedSessions[roundID]), nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	invitations []string // member emails, in send order
	reminders   []string
	failFor     map[string]bool // member email -> force failure
	launched    int
	concluded   int
	approaching []int // daysOut values
}

func (n *fakeNotifier) SendInvitation(m model.Member, token string, rd model.SurveyRound, company string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[m.Email] {
		return "", errors.New("smtp rejected")
	}
	n.invitations = append(n.invitations, m.Email)
	return "re_" + m.ID, nil
}

func (n *fakeNotifier) SendReminder(m model.Member, token string, rd model.SurveyRound, daysLeft int, company string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, m.Email)
	return "re_r_" + m.ID, nil
}

func (n *fakeNotifier) NotifyRoundLaunched(notify.RoundDetails) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.launched++
	return nil
}

func (n *fakeNotifier) NotifyRoundConcluded(notify.RoundDetails) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.concluded++
	return nil
}

func (n *fakeNotifier) NotifyRoundApproaching(_ notify.RoundDetails, daysOut int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approaching = append(n.approaching, daysOut)
	return nil
}

type fakeInsights struct {
	mu    sync.Mutex
	calls []int64
}

func (g *fakeInsights) GenerateRoundInsights(roundID int64, clientID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, roundID)
	return nil
}

func newTestService(repo *fakeRepo, at time.Time) (*service, *fakeNotifier, *fakeInsights) {
	n := &fakeNotifier{failFor: map[string]bool{}}
	g := &fakeInsights{}
	svc := &service{repo: repo, notifier: n, insights: g, sendDelay: 0, now: func() time.Time { return at }}
	return svc, n, g
}

func member(id, email string, communityID int64) model.Member {
	return model.Member{ID: id, ClientID: "client-1", Name: id, Email: email,
		CommunityID: &communityID, Active: true}
}

func TestScheduleInitialRoundsCadenceTwo(t *testing.T) {
	repo := newFakeRepo()
	first := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(repo, first)

	rounds, err := svc.ScheduleInitialRounds("client-1", first)
	require.NoError(t, err)
	require.Len(t, rounds, 2)

	assert.Equal(t, 1, rounds[0].RoundNumber)
	assert.Equal(t, 2, rounds[1].RoundNumber)
	assert.Equal(t, model.RoundPlanned, rounds[0].Status)
	assert.Equal(t, first, rounds[0].ScheduledDate)
	assert.Equal(t, first.AddDate(0, 6, 0), rounds[1].ScheduledDate)
}

func TestScheduleInitialRoundsCadenceFour(t *testing.T) {
	repo := newFakeRepo()
	repo.client.SurveyCadence = 4
	first := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(repo, first)

	rounds, err := svc.ScheduleInitialRounds("client-1", first)
	require.NoError(t, err)
	require.Len(t, rounds, 4)
	assert.Equal(t, first.AddDate(0, 3, 0), rounds[1].ScheduledDate)
	assert.Equal(t, first.AddDate(0, 9, 0), rounds[3].ScheduledDate)
}

func TestScheduleInitialRoundsRejectsExisting(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	svc, _, _ := newTestService(repo, now)

	_, err := svc.ScheduleInitialRounds("client-1", now)
	require.NoError(t, err)

	_, err = svc.ScheduleInitialRounds("client-1", now)
	assert.True(t, model.IsKind(err, model.KindPrecondition))
}

func TestLaunchHappyPath(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []model.Member{
		member("m1", "a@example.com", 1),
		member("m2", "b@example.com", 2),
	}
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	svc, n, _ := newTestService(repo, now)

	rounds, err := svc.ScheduleInitialRounds("client-1", now)
	require.NoError(t, err)

	result, err := svc.Launch(rounds[0].ID, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Invited)
	assert.Equal(t, 2, result.Sent)
	assert.Zero(t, result.Failed)

	got, _ := repo.GetRound(rounds[0].ID, "client-1")
	assert.Equal(t, model.RoundInProgress, got.Status)
	require.NotNil(t, got.ClosesAt)
	assert.Equal(t, now.Add(30*24*time.Hour), *got.ClosesAt)
	assert.Equal(t, 2, got.MembersInvited)

	// One log row per attempt, each carrying the provider id.
	require.Len(t, repo.logs, 2)
	for _, l := range repo.logs {
		assert.Equal(t, model.EmailStatusSent, l.EmailStatus)
		require.NotNil(t, l.ResendEmailID)
	}
	// Every member got a fresh token expiring with the round.
	for _, m := range repo.members {
		require.NotNil(t, m.InvitationToken)
		assert.Equal(t, *got.ClosesAt, *m.TokenExpiresAt)
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, n.invitations)
}

func TestLaunchPartialFailureContinues(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []model.Member{
		member("m1", "a@example.com", 1),
		member("m2", "b@example.com", 2),
		member("m3", "c@example.com", 3),
	}
	now := time.Now()
	svc, n, _ := newTestService(repo, now)
	n.failFor["b@example.com"] = true

	rounds, err := svc.ScheduleInitialRounds("client-1", now)
	require.NoError(t, err)

	result, err := svc.Launch(rounds[0].ID, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, repo.logs, 3)
	failures := 0
	for _, l := range repo.logs {
		if l.EmailStatus == model.EmailStatusFailed {
			failures++
			require.NotNil(t, l.ErrorMessage)
		}
	}
	assert.Equal(t, 1, failures)
}

func TestLaunchMemberLimitExceededIsAtomic(t *testing.T) {
	repo := newFakeRepo()
	repo.client.MemberLimit = 1
	repo.members = []model.Member{
		member("m1", "a@example.com", 1),
		member("m2", "b@example.com", 2),
	}
	now := time.Now()
	svc, n, _ := newTestService(repo, now)

	rounds, err := svc.ScheduleInitialRounds("client-1", now)
	require.NoError(t, err)

	_, err = svc.Launch(rounds[0].ID, "client-1")
	assert.True(t, model.IsKind(err, model.KindPrecondition))

	// No state change of any kind: round stays planned, no sends, no logs.
	got, _ := repo.GetRound(rounds[0].ID, "client-1")
	assert.Equal(t, model.RoundPlanned, got.Status)
	assert.Empty(t, repo.logs)
	assert.Empty(t, n.invitations)
}

func TestLaunchNoActiveMembers(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	svc, _, _ := newTestService(repo, now)

	rounds, err := svc.ScheduleInitialRounds("client-1", now)
	require.NoError(t, err)

	_, err = svc.Launch(rounds[0].ID, "client-1")
	assert.True(t, model.IsKind(err, model.KindPrecondition))
}

func TestLaunchRejectedWhileAnotherRoundActive(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []model.Member{member("m1", "a@example.com", 1)}
	now := time.Now()
	svc, _, _ := newTestService(repo, now)

	rounds, err := svc.ScheduleInitialRounds("client-1", now)
	require.NoError(t, err)

	_, err = svc.Launch(rounds[0].ID, "client-1")
	require.NoError(t, err)
	logsAfterFirst := len(repo.logs)

	_, err = svc.Launch(rounds[1].ID, "client-1")
	assert.True(t, model.IsKind(err, model.KindPrecondition))
	assert.Len(t, repo.logs, logsAfterFirst, "rejected launch must not send anything")

	got, _ := repo.GetRound(rounds[1].ID, "client-1")
	assert.Equal(t, model.RoundPlanned, got.Status)
}

func TestCloseEarlySnapshotsAndTriggersInsights(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []model.Member{
		member("m1", "a@example.com", 1),
		member("m2", "b@example.com", 2),
	}
	now := time.Now()
	svc, _, g := newTestService(repo, now)

	rounds, err := svc.ScheduleInitialRounds("client-1", now)
	require.NoError(t, err)
	_, err = svc.Launch(rounds[0].ID, "client-1")
	require.NoError(t, err)

	require.NoError(t, svc.CloseEarly(rounds[0].ID, "client-1"))

	got, _ := repo.GetRound(rounds[0].ID, "client-1")
	assert.Equal(t, model.RoundConcluded, got.Status)
	require.NotNil(t, got.ConcludedAt)
	assert.Len(t, repo.snapshots, 2)

	// Re-closing a concluded round is rejected, snapshots unchanged.
	err = svc.CloseEarly(rounds[0].ID, "client-1")
	assert.True(t, model.IsKind(err, model.KindPrecondition))
	assert.Len(t, repo.snapshots, 2)

	waitFor(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.calls) == 1
	}, "insight generation was not triggered")
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSendRemindersDayTenExcludesRespondersAndBounced(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []model.Member{
		member("m1", "a@example.com", 1),
		member("m2", "b@example.com", 2),
		member("m3", "c@example.com", 3),
	}
	launch := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	svc, n, _ := newTestService(repo, launch)

	rounds, err := svc.ScheduleInitialRounds("client-1", launch)
	require.NoError(t, err)
	_, err = svc.Launch(rounds[0].ID, "client-1")
	require.NoError(t, err)

	// m2's invitation bounced; m3 already completed a session.
	bounced := model.DeliveryBounced
	for i := range repo.logs {
		if repo.logs[i].UserID == "m2" {
			repo.logs[i].DeliveryStatus = &bounced
		}
	}
	repo.completedSessions[rounds[0].ID] = []string{"m3"}

	// Day 11 after launch.
	svc.now = func() time.Time { return launch.AddDate(0, 0, 11) }
	require.NoError(t, svc.SendReminders())

	assert.Equal(t, []string{"a@example.com"}, n.reminders)
	got, _ := repo.GetRound(rounds[0].ID, "client-1")
	assert.True(t, got.Reminder10Sent)
	assert.False(t, got.Reminder20Sent)

	// Next tick within the same window sends nothing new.
	require.NoError(t, svc.SendReminders())
	assert.Len(t, n.reminders, 1)
}

func TestSendRemindersDayTwenty(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []model.Member{member("m1", "a@example.com", 1)}
	launch := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	svc, n, _ := newTestService(repo, launch)

	rounds, err := svc.ScheduleInitialRounds("client-1", launch)
	require.NoError(t, err)
	_, err = svc.Launch(rounds[0].ID, "client-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return launch.AddDate(0, 0, 11) }
	require.NoError(t, svc.SendReminders())
	svc.now = func() time.Time { return launch.AddDate(0, 0, 21) }
	require.NoError(t, svc.SendReminders())

	assert.Len(t, n.reminders, 2)
	got, _ := repo.GetRound(rounds[0].ID, "client-1")
	assert.True(t, got.Reminder10Sent)
	assert.True(t, got.Reminder20Sent)
}

func TestSendRemindersBeforeThresholdNoop(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []model.Member{member("m1", "a@example.com", 1)}
	launch := time.Now()
	svc, n, _ := newTestService(repo, launch)

	rounds, err := svc.ScheduleInitialRounds("client-1", launch)
	require.NoError(t, err)
	_, err = svc.Launch(rounds[0].ID, "client-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return launch.AddDate(0, 0, 5) }
	require.NoError(t, svc.SendReminders())
	assert.Empty(t, n.reminders)
}

func TestSendApproachingReminders(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	svc, n, _ := newTestService(repo, now)

	// Round 1 launches in 10 days, round 2 in 6 months.
	_, err := svc.ScheduleInitialRounds("client-1", now.AddDate(0, 0, 10))
	require.NoError(t, err)

	require.NoError(t, svc.SendApproachingReminders())
	require.Len(t, n.approaching, 1)
	assert.Greater(t, n.approaching[0], 0)

	// Flag holds: second tick sends nothing.
	require.NoError(t, svc.SendApproachingReminders())
	assert.Len(t, n.approaching, 1)

	// On the scheduled day the day-of notice fires once.
	svc.now = func() time.Time { return now.AddDate(0, 0, 10).Add(time.Hour) }
	require.NoError(t, svc.SendApproachingReminders())
	require.Len(t, n.approaching, 2)
	assert.Zero(t, n.approaching[1])

	require.NoError(t, svc.SendApproachingReminders())
	assert.Len(t, n.approaching, 2)
}

func TestRecalculateCadenceContinuesNumbering(t *testing.T) {
	repo := newFakeRepo()
	repo.members = []model.Member{member("m1", "a@example.com", 1)}
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(repo, start)

	rounds, err := svc.ScheduleInitialRounds("client-1", start)
	require.NoError(t, err)
	_, err = svc.Launch(rounds[0].ID, "client-1")
	require.NoError(t, err)
	require.NoError(t, svc.CloseEarly(rounds[0].ID, "client-1"))

	// Upgrade to quarterly and rebuild the plan.
	repo.client.SurveyCadence = 4
	svc.now = func() time.Time { return start.AddDate(0, 2, 0) }
	require.NoError(t, svc.RecalculateCadence("client-1"))

	all, err := repo.ListRounds("client-1")
	require.NoError(t, err)
	require.Len(t, all, 4) // 1 concluded + 3 regenerated planned

	assert.Equal(t, model.RoundConcluded, all[0].Status)
	for i, rd := range all[1:] {
		assert.Equal(t, model.RoundPlanned, rd.Status)
		assert.Equal(t, i+2, rd.RoundNumber)
	}
}

func TestEnsureRoundsMatchCadenceBackfills(t *testing.T) {
	repo := newFakeRepo()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(repo, start)

	_, err := svc.ScheduleInitialRounds("client-1", start)
	require.NoError(t, err)

	repo.client.SurveyCadence = 4
	require.NoError(t, svc.EnsureRoundsMatchCadence("client-1"))

	all, err := repo.ListRounds("client-1")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 3, all[2].RoundNumber)
	assert.Equal(t, 4, all[3].RoundNumber)
}

func TestEnsureRoundsMatchCadenceNoRoundsIsNoop(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo, time.Now())

	require.NoError(t, svc.EnsureRoundsMatchCadence("client-1"))
	count, _ := repo.CountRounds("client-1")
	assert.Zero(t, count)
}

func TestRegenerateInsightsRequiresLaunchedRound(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	svc, _, g := newTestService(repo, now)

	rounds, err := svc.ScheduleInitialRounds("client-1", now)
	require.NoError(t, err)

	err = svc.RegenerateInsights(rounds[0].ID, "client-1")
	assert.True(t, model.IsKind(err, model.KindPrecondition))
	assert.Empty(t, g.calls)
}
