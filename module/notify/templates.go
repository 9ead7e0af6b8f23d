package notify

import (
	"fmt"
	"time"
)

const emailStyle = `
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #f8f9fa; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; border-bottom: 3px solid #2d6a4f; }
        .header h1 { margin: 0; font-size: 24px; font-weight: 600; color: #333; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .button { display: inline-block; padding: 14px 28px; background: #2d6a4f; color: #ffffff !important; border-radius: 8px; text-decoration: none; font-weight: bold; margin: 20px 0; }
        .meta { background: #fff; border-left: 4px solid #2d6a4f; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .alert { background: #fff3cd; border-left: 4px solid #dc3545; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .footer { text-align: center; color: #999; font-size: 12px; margin-top: 20px; }
    </style>`

func wrap(title, inner string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">%s
</head>
<body>
    <div class="container">
        <div class="header"><h1>%s</h1></div>
        <div class="content">%s</div>
        <div class="footer">
            <p>Sent automatically by ResidentPulse. Please do not reply.</p>
        </div>
    </div>
</body>
</html>`, emailStyle, title, inner)
}

func buildInvitationEmail(memberName, companyName, link string, closesAt *time.Time) string {
	deadline := ""
	if closesAt != nil {
		deadline = fmt.Sprintf(`<p>The survey closes on <strong>%s</strong>.</p>`, closesAt.Format("January 2, 2006"))
	}
	inner := fmt.Sprintf(`
            <p>Hi %s,</p>
            <p>%s has asked for candid feedback from its board members. The
            survey is a short conversation: share what's working, what isn't,
            and rate your overall experience.</p>
            <p style="text-align:center"><a class="button" href="%s">Start the survey</a></p>
            %s
            <p>Your responses go to %s's leadership in summarized form.</p>`,
		memberName, companyName, link, deadline, companyName)
	return wrap("Your feedback is requested", inner)
}

func buildReminderEmail(memberName, companyName, link string, daysLeft int) string {
	inner := fmt.Sprintf(`
            <p>Hi %s,</p>
            <p>Just a reminder that %s's board member survey is still open and
            it closes in <strong>%d days</strong>.</p>
            <p style="text-align:center"><a class="button" href="%s">Share your feedback</a></p>
            <p>It only takes a few minutes, and every board voice counts.</p>`,
		memberName, companyName, daysLeft, link)
	return wrap("Survey closing soon", inner)
}

func buildAlertEmail(d AlertDetails) string {
	inner := fmt.Sprintf(`
            <p>A conversation in your current survey round was flagged as urgent.</p>
            <div class="alert">
                <p><strong>Type:</strong> %s (%s severity)</p>
                <p><strong>Board member:</strong> %s, %s</p>
                <p><strong>Summary:</strong> %s</p>
            </div>
            <p>Review the full conversation in your ResidentPulse dashboard.</p>`,
		d.AlertType, d.Severity, d.MemberName, d.CommunityName, d.Description)
	return wrap("Critical alert", inner)
}

func buildRoundLaunchedEmail(d RoundDetails) string {
	inner := fmt.Sprintf(`
            <p>Survey round %d for %s is now live.</p>
            <div class="meta">
                <p><strong>Members invited:</strong> %d</p>
                <p><strong>Closes:</strong> 30 days from launch</p>
            </div>
            <p>You'll get reminder and conclusion updates automatically.</p>`,
		d.RoundNumber, d.CompanyName, d.MembersInvited)
	return wrap("Round launched", inner)
}

func buildRoundConcludedEmail(d RoundDetails) string {
	inner := fmt.Sprintf(`
            <p>Survey round %d for %s has concluded with <strong>%d responses</strong>.</p>
            <p>Insights are being generated and will appear in your dashboard shortly.</p>`,
		d.RoundNumber, d.CompanyName, d.ResponseCount)
	return wrap("Round concluded", inner)
}

func buildRoundApproachingEmail(d RoundDetails, daysOut int) string {
	var lead string
	if daysOut <= 0 {
		lead = fmt.Sprintf(`<p>Survey round %d for %s is scheduled for today. Launch it from your dashboard when your member list is ready.</p>`,
			d.RoundNumber, d.CompanyName)
	} else {
		lead = fmt.Sprintf(`<p>Survey round %d for %s is scheduled for <strong>%s</strong>, %d days from now. A good moment to review your board member roster.</p>`,
			d.RoundNumber, d.CompanyName, d.ScheduledDate.Format("January 2, 2006"), daysOut)
	}
	return wrap("Upcoming survey round", lead)
}
