package conversation

import "errors"

var (
	// ErrCompleterRequired is returned when a completer is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrTurnRepositoryRequired is returned when a turn repository is not provided.
	ErrTurnRepositoryRequired = errors.New("turn repository required")

	// ErrGreetingRepositoryRequired is returned when a greeting repository is not provided.
	ErrGreetingRepositoryRequired = errors.New("greeting repository required")

	// ErrProfileStoreRequired is returned by WithProfiles without a store or extractor.
	ErrProfileStoreRequired = errors.New("profile store and extractor required")

	// ErrEmptyUserID is returned when a request has no user id.
	ErrEmptyUserID = errors.New("user id cannot be empty")

	// ErrEmptyMessage is returned when a request has no message text.
	ErrEmptyMessage = errors.New("message cannot be empty")
)
