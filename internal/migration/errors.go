package migration

import "strings"

// ValidationError reports a malformed migration source set: an unparsable
// script, a broken transaction frame, a duplicate version, or a hole in the
// version sequence. It is always raised before any database contact.
type ValidationError struct {
	Path   string // file the error is tied to, empty for set-wide errors
	Reason string
	Err    error // underlying parse or frame error, if any
}

func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}

	b.WriteString(e.Reason)

	if e.Err != nil {
		if e.Reason != "" {
			b.WriteString(": ")
		}

		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
