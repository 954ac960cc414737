package messenger

import "errors"

var (
	// ErrSendFailed is returned when the Graph API rejects a message.
	ErrSendFailed = errors.New("send failed")

	// ErrTokenRequired is returned when a client is created without a page token.
	ErrTokenRequired = errors.New("page access token required")

	// ErrSenderRequired is returned when a dispatcher has no sender.
	ErrSenderRequired = errors.New("sender required")

	// ErrDeduplicatorRequired is returned when a dispatcher has no deduplicator.
	ErrDeduplicatorRequired = errors.New("deduplicator required")

	// ErrAskerRequired is returned when a dispatcher has no chat service.
	ErrAskerRequired = errors.New("chat service required")
)
