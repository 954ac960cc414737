package escalation

import "errors"

var (
	// ErrNoPhrases is returned when a detector is created without phrases.
	ErrNoPhrases = errors.New("at least one target phrase required")

	// ErrInvalidThreshold is returned for thresholds outside (0, 1].
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")

	// ErrNotify wraps delivery failures.
	ErrNotify = errors.New("notification failed")

	// ErrNoRecipients is returned when an SMTP notifier has nobody to mail.
	ErrNoRecipients = errors.New("no recipients configured")
)
