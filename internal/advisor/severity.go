package advisor

// Severity grades how much scrutiny a finding deserves before the unit's
// gate is flipped to COMMIT.
type Severity int

const (
	// Safe indicates nothing noteworthy.
	Safe Severity = iota
	// Notice flags an operation worth a second look.
	Notice
	// Warning flags an operation that can stall a live contest database.
	Warning
	// Critical flags an operation that destroys data once committed.
	Critical
)

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	switch s {
	case Safe:
		return "SAFE"
	case Notice:
		return "NOTICE"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Color returns an ANSI color code for terminal output.
func (s Severity) Color() string {
	switch s {
	case Safe:
		return "\033[32m" // green
	case Notice:
		return "\033[36m" // cyan
	case Warning:
		return "\033[33m" // yellow
	case Critical:
		return "\033[31m" // red
	default:
		return "\033[0m" // reset
	}
}
