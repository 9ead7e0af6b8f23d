package model

import (
	"time"

	"golang.org/x/time/rate"
)

type BaseResponse struct {
	Code        int         `json:"code"`
	Data        interface{} `json:"data"`
	Message     string      `json:"message"`
	Description string      `json:"description,omitempty"`
}

// IpLimiter is one entry in the per-IP request limiter table.
type IpLimiter struct {
	Limiter    *rate.Limiter
	LastActive time.Time
}
