package model

import "time"

// SurveyRound is one measurement cycle for one client. At most one round
// per client is in_progress at any time; round numbers are sequential
// and 1-based per client.
type SurveyRound struct {
	ID                  int64      `json:"id"`
	ClientID            string     `json:"clientId"`
	RoundNumber         int        `json:"roundNumber"`
	Status              string     `json:"status"` // planned | in_progress | concluded
	ScheduledDate       time.Time  `json:"scheduledDate"`
	LaunchedAt          *time.Time `json:"launchedAt,omitempty"`
	ClosesAt            *time.Time `json:"closesAt,omitempty"` // set at launch, launch + 30 days
	ConcludedAt         *time.Time `json:"concludedAt,omitempty"`
	MembersInvited      int        `json:"membersInvited"`
	Reminder10Sent      bool       `json:"reminder10Sent"`
	Reminder20Sent      bool       `json:"reminder20Sent"`
	AdminReminder14Sent bool       `json:"adminReminder14Sent"`
	AdminReminder0Sent  bool       `json:"adminReminder0Sent"`
	InsightsJSON        *string    `json:"insightsJson,omitempty"`
	InsightsGeneratedAt *time.Time `json:"insightsGeneratedAt,omitempty"`
	WordFrequencies     *string    `json:"wordFrequencies,omitempty"` // cached JSON array
}

// InvitationLog records one outbound invitation or reminder attempt.
// ResendEmailID correlates the row with delivery webhooks; a member whose
// latest delivery status for a round is bounced or complained is excluded
// from that round's reminder fan-out.
type InvitationLog struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"userId"`
	RoundID        int64     `json:"roundId"`
	EmailStatus    string    `json:"emailStatus"` // sent | failed
	DeliveryStatus *string   `json:"deliveryStatus,omitempty"`
	ErrorMessage   *string   `json:"errorMessage,omitempty"`
	ResendEmailID  *string   `json:"resendEmailId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
