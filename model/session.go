package model

import "time"

// Session is one board member's survey conversation, usually within one
// round. NPSScore is immutable aggregation input once set; Completed
// flips false→true exactly once; Summary is generated once, async,
// after completion.
type Session struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"clientId"`
	RoundID       *int64     `json:"roundId,omitempty"` // nullable: sessions may predate rounds
	UserID        *string    `json:"userId,omitempty"`
	Email         string     `json:"email"`
	NPSScore      *int       `json:"npsScore,omitempty"` // 0-10
	Completed     bool       `json:"completed"`
	Summary       *string    `json:"summary,omitempty"`
	CommunityID   *int64     `json:"communityId,omitempty"`
	CommunityName string     `json:"communityName,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// Message is one turn in a session transcript, immutable once written.
// Transcript order is creation order.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"` // user | assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
