package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// NewInvitationToken returns a unique survey-invitation token. Dashes are
// stripped so the token survives URL and email-client mangling.
func NewInvitationToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
