package ingest

import "errors"

var (
	// ErrInvalidPayload means required upload fields are missing. Nothing is written.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrDuplicateFile means the file name was already ingested.
	ErrDuplicateFile = errors.New("file already exists")
	// ErrStore wraps any other store failure. Its message is not meant for clients.
	ErrStore = errors.New("store failure")
)
