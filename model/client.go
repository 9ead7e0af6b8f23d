package model

import "time"

// Client is one property-management company tenant. Every other entity
// is scoped by ClientID; cross-tenant reads are rejected as not found.
type Client struct {
	ID               string     `json:"id"`
	CompanyName      string     `json:"companyName"`
	SystemPrompt     *string    `json:"systemPrompt,omitempty"`     // overrides the global chat prompt
	InterviewContext *string    `json:"interviewContext,omitempty"` // onboarding interview supplement
	SurveyCadence    int        `json:"surveyCadence"`              // rounds per year, 2 or 4
	MemberLimit      int        `json:"memberLimit"`                // subscription cap on invited members
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"createdAt"`
	DeactivatedAt    *time.Time `json:"deactivatedAt,omitempty"`
}

// Member is a board member: a survey respondent belonging to one client.
type Member struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"clientId"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	CommunityID     *int64     `json:"communityId,omitempty"`
	CommunityName   string     `json:"communityName,omitempty"`
	Active          bool       `json:"active"`
	InvitationToken *string    `json:"-"`
	TokenExpiresAt  *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Community is an HOA/condo association managed by a client.
type Community struct {
	ID            int64   `json:"id"`
	ClientID      string  `json:"clientId"`
	Name          string  `json:"name"`
	ManagerName   string  `json:"managerName"`
	PropertyType  string  `json:"propertyType"`
	UnitCount     int     `json:"unitCount"`
	ContractValue float64 `json:"contractValue"`
	Active        bool    `json:"active"`
}

// CommunitySnapshot preserves a community's metadata as of a round's
// conclusion, so historical reporting survives later edits or
// deactivation of the live community row.
type CommunitySnapshot struct {
	RoundID       int64   `json:"roundId"`
	CommunityID   int64   `json:"communityId"`
	ClientID      string  `json:"clientId"`
	Name          string  `json:"name"`
	ManagerName   string  `json:"managerName"`
	PropertyType  string  `json:"propertyType"`
	UnitCount     int     `json:"unitCount"`
	ContractValue float64 `json:"contractValue"`
}
