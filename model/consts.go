package model

import "time"

// Round statuses. A round never leaves "concluded".
const (
	RoundPlanned    = "planned"
	RoundInProgress = "in_progress"
	RoundConcluded  = "concluded"
)

// Message roles in a session transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Invitation email send outcomes.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// Delivery statuses reported by the email provider's webhooks.
// A missing status is treated as delivered.
const (
	DeliveryDelivered  = "delivered"
	DeliveryBounced    = "bounced"
	DeliveryComplained = "complained"
	DeliveryDelayed    = "delayed"
)

// Community cohorts, classified from the lower-median NPS score.
const (
	CohortPromoter  = "promoter"
	CohortPassive   = "passive"
	CohortDetractor = "detractor"
)

// Critical alert classification.
const (
	AlertContractTermination = "contract_termination"
	AlertLegalThreat         = "legal_threat"
	AlertSafetyConcern       = "safety_concern"
	AlertOtherCritical       = "other_critical"

	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

const (
	// RoundDuration is how long a launched round stays open.
	RoundDuration = 30 * 24 * time.Hour

	// DefaultCadence is rounds per year when a client has no setting.
	DefaultCadence = 2

	// Reminder thresholds after launch, in days.
	ReminderDay10 = 10
	ReminderDay20 = 20

	// ApproachingWindow is how far ahead admins are warned of a planned round.
	ApproachingWindow = 14 * 24 * time.Hour

	// ChatRateLimit / ChatRateWindow bound messages per session.
	ChatRateLimit  = 10
	ChatRateWindow = 60 * time.Second
)
