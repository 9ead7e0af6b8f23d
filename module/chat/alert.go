package chat

import (
	"context"
	"log"

	"ResidentPulse-Server/model"
	"ResidentPulse-Server/module/ai"
	"ResidentPulse-Server/module/notify"
)

// Messages shorter than this can't contain an actionable emergency.
const minAlertLength = 30

const alertRubric = `You screen one board member message from an HOA feedback conversation for urgent issues requiring immediate attention from the property management company's leadership.

Flag ONLY these cases:
- contract_termination: the board member states explicit intent to terminate or not renew the management contract
- legal_threat: a personal legal threat directed at the management company itself
- safety_concern: an active safety emergency at a property (fire hazard, structural danger, threats of violence)
- other_critical: another genuinely urgent item demanding same-day attention

Do NOT flag:
- routine collections or covenant-enforcement legal action (liens, fines, disputes with vendors or residents)
- general venting, frustration, or criticism, however harsh
- hypotheticals or past events already resolved

Respond with JSON only:
{"is_critical": true|false, "alert_type": "contract_termination|legal_threat|safety_concern|other_critical", "severity": "high|critical", "description": "one sentence for the management company"}`

// alertVerdict is the strict JSON shape the classifier must return.
type alertVerdict struct {
	IsCritical  bool   `json:"is_critical"`
	AlertType   string `json:"alert_type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// detectCriticalAlert runs the best-effort classification pass over one
// user message. It never raises to the caller: any failure is logged and
// the conversation continues unaffected. Unparseable output fails closed
// toward "not critical".
func (s *service) detectCriticalAlert(sess *model.Session, text string, messageID int64) {
	if len(text) < minAlertLength {
		return
	}

	raw, err := s.completer.Complete(context.Background(), alertRubric,
		[]ai.ChatMessage{{Role: model.RoleUser, Content: text}}, 256)
	if err != nil {
		log.Printf("chat: alert classification failed for session %s: %v", sess.ID, err)
		return
	}

	var verdict alertVerdict
	if !ai.ExtractObject(raw, &verdict) {
		log.Printf("chat: unparseable alert verdict for session %s", sess.ID)
		return
	}
	if !verdict.IsCritical {
		return
	}

	if !validAlertType(verdict.AlertType) {
		verdict.AlertType = model.AlertOtherCritical
	}
	if verdict.Severity != model.SeverityCritical {
		verdict.Severity = model.SeverityHigh
	}
	if verdict.Description == "" {
		verdict.Description = "Urgent concern raised in a survey conversation."
	}

	alert := &model.CriticalAlert{
		ClientID:        sess.ClientID,
		RoundID:         sess.RoundID,
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		AlertType:       verdict.AlertType,
		Severity:        verdict.Severity,
		Description:     verdict.Description,
		SourceMessageID: &messageID,
	}
	if err := s.repo.InsertAlert(alert); err != nil {
		log.Printf("chat: failed to persist alert for session %s: %v", sess.ID, err)
		return
	}

	client, err := s.repo.GetClient(sess.ClientID)
	companyName := ""
	if err == nil {
		companyName = client.CompanyName
	}
	details := notify.AlertDetails{
		ClientID:      sess.ClientID,
		CompanyName:   companyName,
		CommunityName: sess.CommunityName,
		MemberName:    sess.Email,
		AlertType:     verdict.AlertType,
		Severity:      verdict.Severity,
		Description:   verdict.Description,
	}
	if err := s.notifier.NotifyCriticalAlert(details); err != nil {
		log.Printf("chat: alert notification failed for session %s: %v", sess.ID, err)
	}
}

func validAlertType(t string) bool {
	switch t {
	case model.AlertContractTermination, model.AlertLegalThreat,
		model.AlertSafetyConcern, model.AlertOtherCritical:
		return true
	}
	return false
}
