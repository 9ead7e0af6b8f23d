package model

import "time"

// CriticalAlert is an urgent concern flagged by the async classifier.
// Alerts are never created synchronously with a chat reply.
type CriticalAlert struct {
	ID              int64     `json:"id"`
	ClientID        string    `json:"clientId"`
	RoundID         *int64    `json:"roundId,omitempty"`
	SessionID       string    `json:"sessionId"`
	UserID          *string   `json:"userId,omitempty"`
	AlertType       string    `json:"alertType"` // contract_termination | legal_threat | safety_concern | other_critical
	Severity        string    `json:"severity"`  // high | critical
	Description     string    `json:"description"`
	SourceMessageID *int64    `json:"sourceMessageId,omitempty"`
	Dismissed       bool      `json:"dismissed"`
	Solved          bool      `json:"solved"`
	CreatedAt       time.Time `json:"createdAt"`
}
