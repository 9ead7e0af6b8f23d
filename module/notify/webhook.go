package notify

import (
	"net/http"

	"ResidentPulse-Server/config"
	"ResidentPulse-Server/model"
	"ResidentPulse-Server/utils"

	"github.com/gin-gonic/gin"
)

// resendEvent is the subset of Resend's webhook payload we care about.
type resendEvent struct {
	Type string `json:"type"` // email.delivered, email.bounced, ...
	Data struct {
		EmailID string `json:"email_id"`
	} `json:"data"`
}

var deliveryStatusByEvent = map[string]string{
	"email.delivered":        model.DeliveryDelivered,
	"email.bounced":          model.DeliveryBounced,
	"email.complained":       model.DeliveryComplained,
	"email.delivery_delayed": model.DeliveryDelayed,
}

// ResendWebhookHandler records delivery outcomes on invitation_logs.
// Bounced/complained rows later suppress reminder fan-out for the round.
func ResendWebhookHandler(c *gin.Context) {
	var event resendEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.SendError(c, http.StatusBadRequest, "invalid webhook payload", err)
		return
	}

	status, ok := deliveryStatusByEvent[event.Type]
	if !ok || event.Data.EmailID == "" {
		// Not a delivery event we track; acknowledge so Resend stops retrying.
		c.JSON(http.StatusOK, gin.H{"ignored": true})
		return
	}

	_, err := config.DB.Exec(`
		UPDATE invitation_logs
		SET delivery_status = ?
		WHERE resend_email_id = ?`, status, event.Data.EmailID)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "failed to record delivery status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
