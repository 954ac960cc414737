package chat

import "errors"

var (
	// ErrSessionNotFound is returned when a question names an unknown session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrNoRetriever is returned when no retriever serves a session's backend.
	ErrNoRetriever = errors.New("no retriever for backend")

	// ErrRegistryRequired is returned when a session registry is not provided.
	ErrRegistryRequired = errors.New("session registry required")

	// ErrEngineRequired is returned when a conversation engine is not provided.
	ErrEngineRequired = errors.New("conversation engine required")

	// ErrReducerRequired is returned when a context reducer is not provided.
	ErrReducerRequired = errors.New("context reducer required")
)
