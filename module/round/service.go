package round

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/notify"
	"ResidentPulse-Server/utils"
)

// Notifier is the outbound email surface the state machine drives.
// Satisfied by notify.Service.
type Notifier interface {
	SendInvitation(member model.Member, token string, round model.SurveyRound, companyName string) (string, error)
	SendReminder(member model.Member, token string, round model.SurveyRound, daysLeft int, companyName string) (string, error)
	NotifyRoundLaunched(d notify.RoundDetails) error
	NotifyRoundConcluded(d notify.RoundDetails) error
	NotifyRoundApproaching(d notify.RoundDetails, daysOut int) error
}

// InsightGenerator triggers post-conclusion analysis. Satisfied by the
// insights service.
type InsightGenerator interface {
	GenerateRoundInsights(roundID int64, clientID string) error
}

// LaunchResult reports the invitation fan-out outcome.
type LaunchResult struct {
	RoundID int64 `json:"roundId"`
	Invited int   `json:"invited"`
	Sent    int   `json:"sent"`
	Failed  int   `json:"failed"`
}

type Service interface {
	// ScheduleInitialRounds creates the client's first year of planned
	// rounds. Fails if any round already exists.
	ScheduleInitialRounds(clientID string, firstLaunch time.Time) ([]model.SurveyRound, error)
	// ListRounds backfills missing planned rounds to match the cadence
	// before returning the full list.
	ListRounds(clientID string) ([]model.SurveyRound, error)
	EnsureRoundsMatchCadence(clientID string) error
	// Launch moves a planned round to in_progress and fans invitations
	// out sequentially, paced to respect the email provider's limits.
	Launch(roundID int64, clientID string) (*LaunchResult, error)
	CloseEarly(roundID int64, clientID string) error
	AutoConclude(r model.SurveyRound) error
	// RecalculateCadence rebuilds the planned rounds after a cadence
	// setting change.
	RecalculateCadence(clientID string) error
	RegenerateInsights(roundID int64, clientID string) error

	// Daily scheduler entry points.
	SendReminders() error
	SendApproachingReminders() error
	// ConcludeExpired auto-concludes every in-progress round whose
	// close date has passed.
	ConcludeExpired() error
}

type service struct {
	repo      Repository
	notifier  Notifier
	insights  InsightGenerator
	sendDelay time.Duration
	now       func() time.Time
}

var roundService Service

func InitService(repo Repository, notifier Notifier, insights InsightGenerator) {
	roundService = NewService(repo, notifier, insights)
}

func Default() Service { return roundService }

func NewService(repo Repository, notifier Notifier, insights InsightGenerator) Service {
	return &service{
		repo:      repo,
		notifier:  notifier,
		insights:  insights,
		sendDelay: sendDelayFromEnv(),
		now:       time.Now,
	}
}

func sendDelayFromEnv() time.Duration {
	if raw := os.Getenv("INVITE_SEND_DELAY_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return 500 * time.Millisecond
}

// cadenceOf returns rounds per year, clamped to the supported settings.
func cadenceOf(client *model.Client) int {
	if client.SurveyCadence == 4 {
		return 4
	}
	return model.DefaultCadence
}

func intervalMonths(cadence int) int { return 12 / cadence }

func (s *service) ScheduleInitialRounds(clientID string, firstLaunch time.Time) ([]model.SurveyRound, error) {
	client, err := s.repo.GetClient(clientID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountRounds(clientID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, model.NewPrecondition("rounds already scheduled for this client")
	}

	cadence := cadenceOf(client)
	interval := intervalMonths(cadence)
	created := make([]model.SurveyRound, 0, cadence)
	for i := 0; i < cadence; i++ {
		rd := model.SurveyRound{
			ClientID:      clientID,
			RoundNumber:   i + 1,
			Status:        model.RoundPlanned,
			ScheduledDate: firstLaunch.AddDate(0, i*interval, 0),
		}
		if err := s.repo.CreateRound(&rd); err != nil {
			return nil, err
		}
		created = append(created, rd)
	}
	return created, nil
}

func (s *service) ListRounds(clientID string) ([]model.SurveyRound, error) {
	if err := s.EnsureRoundsMatchCadence(clientID); err != nil {
		log.Printf("round: cadence backfill failed for client %s: %v", clientID, err)
	}
	return s.repo.ListRounds(clientID)
}

// EnsureRoundsMatchCadence backfills trailing planned rounds when the
// cadence setting outgrew the existing schedule. Clients with no rounds
// at all are left alone until they schedule explicitly.
func (s *service) EnsureRoundsMatchCadence(clientID string) error {
	existing, err := s.repo.ListRounds(clientID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}
	client, err := s.repo.GetClient(clientID)
	if err != nil {
		return err
	}
	cadence := cadenceOf(client)
	if len(existing) >= cadence {
		return nil
	}

	anchor := s.now()
	if latest, err := s.repo.LatestLaunchedRound(clientID); err != nil {
		return err
	} else if latest != nil && latest.LaunchedAt != nil {
		anchor = *latest.LaunchedAt
	}

	nextNumber := existing[len(existing)-1].RoundNumber + 1
	now := s.now()
	missing := cadence - len(existing)
	for k := 1; k <= missing; k++ {
		date := anchor.AddDate(0, k*intervalMonths(cadence), 0)
		if date.Before(now) {
			// Never synthesize a round that is already overdue.
			date = now.AddDate(0, 0, 30*k)
		}
		rd := model.SurveyRound{
			ClientID:      clientID,
			RoundNumber:   nextNumber,
			Status:        model.RoundPlanned,
			ScheduledDate: date,
		}
		if err := s.repo.CreateRound(&rd); err != nil {
			return err
		}
		nextNumber++
	}
	return nil
}

func (s *service) Launch(roundID int64, clientID string) (*LaunchResult, error) {
	rd, err := s.repo.GetRound(roundID, clientID)
	if err != nil {
		return nil, err
	}
	if rd.Status != model.RoundPlanned {
		return nil, model.NewPrecondition("round is not in planned status")
	}
	client, err := s.repo.GetClient(clientID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListActiveMembers(clientID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, model.NewPrecondition("no active board members to invite")
	}
	if client.MemberLimit > 0 && len(members) > client.MemberLimit {
		return nil, model.NewPrecondition(
			fmt.Sprintf("active member count %d exceeds the plan limit of %d", len(members), client.MemberLimit))
	}

	launchedAt := s.now()
	closesAt := launchedAt.Add(model.RoundDuration)
	ok, err := s.repo.ActivateRound(roundID, clientID, launchedAt, closesAt, len(members))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewPrecondition("another round is already in progress")
	}
	rd.Status = model.RoundInProgress
	rd.LaunchedAt = &launchedAt
	rd.ClosesAt = &closesAt
	rd.MembersInvited = len(members)

	result := &LaunchResult{RoundID: roundID, Invited: len(members)}
	for i, m := range members {
		if i > 0 {
			time.Sleep(s.sendDelay)
		}
		token := utils.NewInvitationToken()
		if err := s.repo.SetMemberInvitation(m.ID, token, closesAt); err != nil {
			log.Printf("round: token assignment failed for member %s: %v", m.ID, err)
			s.logInvitation(m.ID, roundID, "", err)
			result.Failed++
			continue
		}
		resendID, err := s.notifier.SendInvitation(m, token, *rd, client.CompanyName)
		s.logInvitation(m.ID, roundID, resendID, err)
		if err != nil {
			log.Printf("round: invitation to %s failed: %v", m.Email, err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.detach("round launched notice", func() error {
		return s.notifier.NotifyRoundLaunched(notify.RoundDetails{
			ClientID:       clientID,
			CompanyName:    client.CompanyName,
			RoundNumber:    rd.RoundNumber,
			ScheduledDate:  rd.ScheduledDate,
			MembersInvited: len(members),
		})
	})
	return result, nil
}

// logInvitation records one attempt, success or failure.
func (s *service) logInvitation(memberID string, roundID int64, resendID string, sendErr error) {
	l := model.InvitationLog{UserID: memberID, RoundID: roundID, EmailStatus: model.EmailStatusSent}
	if sendErr != nil {
		l.EmailStatus = model.EmailStatusFailed
		msg := sendErr.Error()
		l.ErrorMessage = &msg
	}
	if resendID != "" {
		l.ResendEmailID = &resendID
	}
	if err := s.repo.InsertInvitationLog(&l); err != nil {
		log.Printf("round: invitation log write failed for member %s: %v", memberID, err)
	}
}

func (s *service) CloseEarly(roundID int64, clientID string) error {
	rd, err := s.repo.GetRound(roundID, clientID)
	if err != nil {
		return err
	}
	return s.conclude(rd)
}

func (s *service) AutoConclude(r model.SurveyRound) error {
	return s.conclude(&r)
}

func (s *service) conclude(rd *model.SurveyRound) error {
	ok, err := s.repo.ConcludeRound(rd.ID, rd.ClientID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return model.NewPrecondition("round is not in progress")
	}

	// The snapshot preserves community metadata as of conclusion. The
	// transition already happened, so a snapshot failure is logged
	// rather than reported as a failed close.
	if err := s.repo.SnapshotCommunities(rd.ID, rd.ClientID); err != nil {
		log.Printf("round: community snapshot failed for round %d: %v", rd.ID, err)
	}

	responses, err := s.repo.CountCompletedSessions(rd.ID)
	if err != nil {
		log.Printf("round: response count failed for round %d: %v", rd.ID, err)
	}
	client, err := s.repo.GetClient(rd.ClientID)
	companyName := ""
	if err == nil {
		companyName = client.CompanyName
	}

	s.detach("round concluded notice", func() error {
		return s.notifier.NotifyRoundConcluded(notify.RoundDetails{
			ClientID:       rd.ClientID,
			CompanyName:    companyName,
			RoundNumber:    rd.RoundNumber,
			ScheduledDate:  rd.ScheduledDate,
			MembersInvited: rd.MembersInvited,
			ResponseCount:  responses,
		})
	})
	s.detach("insight generation", func() error {
		return s.insights.GenerateRoundInsights(rd.ID, rd.ClientID)
	})
	return nil
}

func (s *service) ConcludeExpired() error {
	rounds, err := s.repo.ListInProgressRounds()
	if err != nil {
		return err
	}
	now := s.now()
	for _, rd := range rounds {
		if rd.ClosesAt == nil || rd.ClosesAt.After(now) {
			continue
		}
		if err := s.AutoConclude(rd); err != nil {
			log.Printf("round: auto-conclude failed for round %d: %v", rd.ID, err)
		}
	}
	return nil
}

func (s *service) RecalculateCadence(clientID string) error {
	client, err := s.repo.GetClient(clientID)
	if err != nil {
		return err
	}
	cadence := cadenceOf(client)

	if err := s.repo.DeletePlannedRounds(clientID); err != nil {
		return err
	}

	anchor := s.now()
	nextNumber := 1
	remaining := cadence
	latest, err := s.repo.LatestNonPlannedRound(clientID)
	if err != nil {
		return err
	}
	if latest != nil {
		switch {
		case latest.ConcludedAt != nil:
			anchor = *latest.ConcludedAt
		case latest.ClosesAt != nil:
			anchor = *latest.ClosesAt
		default:
			anchor = latest.ScheduledDate
		}
		nextNumber = latest.RoundNumber + 1
		count, err := s.repo.CountRounds(clientID)
		if err != nil {
			return err
		}
		remaining = cadence - count
	}

	now := s.now()
	for k := 1; k <= remaining; k++ {
		date := anchor.AddDate(0, k*intervalMonths(cadence), 0)
		if date.Before(now) {
			date = now.AddDate(0, 0, 30*k)
		}
		rd := model.SurveyRound{
			ClientID:      clientID,
			RoundNumber:   nextNumber,
			Status:        model.RoundPlanned,
			ScheduledDate: date,
		}
		if err := s.repo.CreateRound(&rd); err != nil {
			return err
		}
		nextNumber++
	}
	return nil
}

func (s *service) RegenerateInsights(roundID int64, clientID string) error {
	rd, err := s.repo.GetRound(roundID, clientID)
	if err != nil {
		return err
	}
	if rd.Status == model.RoundPlanned {
		return model.NewPrecondition("round has not launched yet")
	}
	return s.insights.GenerateRoundInsights(roundID, clientID)
}

// SendReminders dispatches day-10 and day-20 non-responder nudges for
// every in-progress round across all tenants. Individual failures never
// stop the batch.
func (s *service) SendReminders() error {
	rounds, err := s.repo.ListInProgressRounds()
	if err != nil {
		return err
	}
	now := s.now()
	for _, rd := range rounds {
		if rd.LaunchedAt == nil {
			continue
		}
		daysSince := int(now.Sub(*rd.LaunchedAt).Hours() / 24)
		switch {
		case !rd.Reminder10Sent && daysSince >= model.ReminderDay10:
			s.remindRound(rd, s.repo.MarkReminder10Sent)
		case !rd.Reminder20Sent && daysSince >= model.ReminderDay20:
			s.remindRound(rd, s.repo.MarkReminder20Sent)
		}
	}
	return nil
}

func (s *service) remindRound(rd model.SurveyRound, markSent func(int64) error) {
	client, err := s.repo.GetClient(rd.ClientID)
	if err != nil {
		log.Printf("round: client lookup failed for round %d: %v", rd.ID, err)
		return
	}
	members, err := s.repo.ListRoundNonResponders(rd.ID)
	if err != nil {
		log.Printf("round: non-responder query failed for round %d: %v", rd.ID, err)
		return
	}

	daysLeft := 0
	if rd.ClosesAt != nil {
		if d := int(rd.ClosesAt.Sub(s.now()).Hours() / 24); d > 0 {
			daysLeft = d
		}
	}

	for i, m := range members {
		if i > 0 {
			time.Sleep(s.sendDelay)
		}
		if m.InvitationToken == nil {
			log.Printf("round: member %s has no invitation token, skipping reminder", m.ID)
			continue
		}
		resendID, err := s.notifier.SendReminder(m, *m.InvitationToken, rd, daysLeft, client.CompanyName)
		s.logInvitation(m.ID, rd.ID, resendID, err)
		if err != nil {
			log.Printf("round: reminder to %s failed: %v", m.Email, err)
		}
	}

	// The flag flips even when some sends failed: a partially delivered
	// batch must not repeat on the next tick.
	if err := markSent(rd.ID); err != nil {
		log.Printf("round: reminder flag update failed for round %d: %v", rd.ID, err)
	}
}

// SendApproachingReminders warns admins 14 days out and again on the
// scheduled day. Each notice fires at most once per round.
func (s *service) SendApproachingReminders() error {
	rounds, err := s.repo.ListPlannedRounds()
	if err != nil {
		return err
	}
	now := s.now()
	for _, rd := range rounds {
		due := rd.ScheduledDate
		if !rd.AdminReminder14Sent && due.After(now) && due.Before(now.Add(model.ApproachingWindow)) {
			daysOut := int(due.Sub(now).Hours()/24) + 1
			s.notifyApproaching(rd, daysOut, s.repo.MarkAdminReminder14Sent)
		}
		if !rd.AdminReminder0Sent && !due.After(now) {
			s.notifyApproaching(rd, 0, s.repo.MarkAdminReminder0Sent)
		}
	}
	return nil
}

func (s *service) notifyApproaching(rd model.SurveyRound, daysOut int, markSent func(int64) error) {
	client, err := s.repo.GetClient(rd.ClientID)
	if err != nil {
		log.Printf("round: client lookup failed for round %d: %v", rd.ID, err)
		return
	}
	err = s.notifier.NotifyRoundApproaching(notify.RoundDetails{
		ClientID:      rd.ClientID,
		CompanyName:   client.CompanyName,
		RoundNumber:   rd.RoundNumber,
		ScheduledDate: rd.ScheduledDate,
	}, daysOut)
	if err != nil {
		log.Printf("round: approaching notice failed for round %d: %v", rd.ID, err)
		return
	}
	if err := markSent(rd.ID); err != nil {
		log.Printf("round: approaching flag update failed for round %d: %v", rd.ID, err)
	}
}

// detach runs a side effect in the background with its own terminal
// error handler.
func (s *service) detach(name string, fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("round: %s panic: %v", name, r)
			}
		}()
		if err := fn(); err != nil {
			log.Printf("round: %s failed: %v", name, err)
		}
	}()
}
