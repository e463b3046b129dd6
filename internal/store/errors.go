package store

import "errors"

// Store-level sentinel errors, mapped from the backing implementation's
// native errors (gorm.ErrRecordNotFound etc. for PostgresStore, plain Go
// errors for InMemoryStore) into the kinds the engine's facade and loop
// expect to classify via errors.Is.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrTransient     = errors.New("store: transient failure")
	ErrFatal         = errors.New("store: fatal failure")
)
