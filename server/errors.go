package server

import "errors"

var (
	// ErrIngesterRequired is returned when a server has no ingestion pipeline.
	ErrIngesterRequired = errors.New("ingester required")

	// ErrAskerRequired is returned when a server has no chat service.
	ErrAskerRequired = errors.New("chat service required")
)
