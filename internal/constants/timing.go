package constants

import "time"

// Requeue intervals used by controllers.
const (
	RequeueShort    = 5 * time.Second
	RequeueStandard = 1 * time.Minute

	RequeueSafetyNetBase   = 20 * time.Minute
	RequeueSafetyNetJitter = 5 * time.Minute
)

// Retry settings for live resource lookups.
const (
	LookupRetryBase        = 200 * time.Millisecond
	LookupRetryMax         = 5 * time.Second
	LookupRetryMaxAttempts = 4
)
