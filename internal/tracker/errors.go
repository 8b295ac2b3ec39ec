package tracker

import "errors"

// ErrVersionNotRecorded indicates no record exists for the given version.
var ErrVersionNotRecorded = errors.New("version not recorded in schema_migrations")

// ErrChecksumMismatch indicates a script was edited after its version
// committed.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")
