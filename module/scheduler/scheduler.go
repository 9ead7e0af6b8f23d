package scheduler

import (
	"log"
	"os"

	"github.com/robfig/cron/v3"
)

// Engine is the slice of the round lifecycle the daily tick drives.
type Engine interface {
	SendApproachingReminders() error
	ConcludeExpired() error
	SendReminders() error
}

// Start registers the daily tick and starts the cron runner. The
// schedule comes from DAILY_CRON, defaulting to 06:00 every day.
func Start(engine Engine) *cron.Cron {
	expr := os.Getenv("DAILY_CRON")
	if expr == "" {
		expr = "0 6 * * *"
	}

	c := cron.New()
	if _, err := c.AddFunc(expr, func() { RunDaily(engine) }); err != nil {
		log.Printf("scheduler: invalid DAILY_CRON %q: %v", expr, err)
		return nil
	}
	c.Start()
	log.Printf("scheduler: daily tick registered (%s)", expr)
	return c
}

// RunDaily executes the three time-driven stages in a fixed order:
// admin approaching notices, then auto-conclusion of expired rounds,
// then non-responder reminders. Conclusion runs before reminders so a
// round that should close today never gets a same-day reminder. A
// failed stage is logged and the remaining stages still run; nothing
// retries within the same tick.
func RunDaily(engine Engine) {
	log.Println("scheduler: daily tick started")

	if err := engine.SendApproachingReminders(); err != nil {
		log.Printf("scheduler: approaching reminders failed: %v", err)
	}
	if err := engine.ConcludeExpired(); err != nil {
		log.Printf("scheduler: auto-conclusion failed: %v", err)
	}
	if err := engine.SendReminders(); err != nil {
		log.Printf("scheduler: non-responder reminders failed: %v", err)
	}

	log.Println("scheduler: daily tick finished")
}
