package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// BaselineVersion is reserved for the bootstrap unit that creates the
// applied-state table itself. Migration scripts start at version 1.
const BaselineVersion Version = 0

// Version identifies a single migration unit. Versions on disk must form a
// strictly increasing sequence with no duplicates and no holes.
type Version int

// Decision is the terminal keyword that closes a unit's transaction. The zero
// value is DecisionRollback, so an undecided unit never commits by accident.
type Decision int

const (
	// DecisionRollback discards the unit's effects after a trial execution.
	// A script stays in this state until a human flips its last keyword.
	DecisionRollback Decision = iota

	// DecisionCommit makes the unit's effects durable.
	DecisionCommit
)

// String returns the SQL keyword for the decision.
func (d Decision) String() string {
	if d == DecisionCommit {
		return "COMMIT"
	}

	return "ROLLBACK"
}

// Unit is one numbered migration script: an ordered list of SQL operations
// framed by BEGIN and a terminal COMMIT or ROLLBACK. Units are immutable
// once loaded.
type Unit struct {
	Version    Version
	Name       string   // "add_analysis_mode", taken from the filename
	Operations []string // statements between BEGIN and the terminal keyword
	Decision   Decision
	Checksum   string // SHA-256 hex digest of the script file
	FilePath   string
}

// Gated reports whether the unit still ends in ROLLBACK and is therefore
// executed only as a trial run.
func (u *Unit) Gated() bool {
	return u.Decision == DecisionRollback
}

// Ref returns the unit's "NNN_name" reference used in logs and output.
func (u *Unit) Ref() string {
	return fmt.Sprintf("%03d_%s", u.Version, u.Name)
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
