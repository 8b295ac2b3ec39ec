package database

import "errors"

// ErrInvalidDatabaseURL indicates the provided database URL could not be parsed.
var ErrInvalidDatabaseURL = errors.New("invalid database URL")

// ErrConnectionFailed indicates a connection to the database could not be established.
var ErrConnectionFailed = errors.New("database connection failed")

// ErrLockNotAcquired indicates another migration run already holds the
// advisory lock.
var ErrLockNotAcquired = errors.New("migration lock held by another process")
