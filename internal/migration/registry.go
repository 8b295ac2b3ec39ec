package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// filenamePattern matches numbered migration scripts:
//
//	{version}_{name}.sql  (e.g., 014_add_analysis_mode.sql)
//
// Anything else in the directory is ignored.
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by Load
	`^(\d+)_([A-Za-z0-9_]+)\.sql$`,
)

// Load reads every migration script in dir and returns the units sorted by
// version. The whole set is validated before any database work: versions
// must be unique and hole-free, and every script must carry a well-formed
// transaction frame. Any violation aborts the load with a ValidationError.
func Load(dir string) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var units []Unit

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		u, err := readUnit(dir, entry.Name(), matches[1], matches[2])
		if err != nil {
			return nil, err
		}

		units = append(units, u)
	}

	sortUnits(units)

	if err := validateSequence(units); err != nil {
		return nil, err
	}

	return units, nil
}

// readUnit parses one script file into a Unit.
func readUnit(dir, filename, rawVersion, name string) (Unit, error) {
	version, err := strconv.Atoi(rawVersion)
	if err != nil || version <= 0 {
		return Unit{}, &ValidationError{
			Path:   filename,
			Reason: fmt.Sprintf("version %q must be a positive integer (version 0 is reserved for the baseline)", rawVersion),
		}
	}

	path := filepath.Join(dir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		return Unit{}, fmt.Errorf("reading migration file %s: %w", path, err)
	}

	src := string(data)

	ops, decision, err := parseScript(src)
	if err != nil {
		return Unit{}, &ValidationError{Path: filename, Err: err}
	}

	return Unit{
		Version:    Version(version),
		Name:       name,
		Operations: ops,
		Decision:   decision,
		Checksum:   ComputeChecksum(src),
		FilePath:   path,
	}, nil
}

// sortUnits orders units by version in place. The sort is stable so
// duplicate versions keep directory order for error reporting.
func sortUnits(units []Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Version < units[j].Version
	})
}

// validateSequence rejects duplicate versions and holes. Units must already
// be sorted. The sequence may start anywhere above zero, since history below
// the lowest script may have been pruned, but every step inside the set must
// be exactly one.
func validateSequence(units []Unit) error {
	for i := 1; i < len(units); i++ {
		prev, cur := &units[i-1], &units[i]

		switch {
		case cur.Version == prev.Version:
			return &ValidationError{Reason: fmt.Sprintf(
				"duplicate version %d: %s and %s",
				cur.Version, filepath.Base(prev.FilePath), filepath.Base(cur.FilePath))}
		case cur.Version != prev.Version+1:
			return &ValidationError{Reason: fmt.Sprintf(
				"hole in version sequence: %d is followed by %d", prev.Version, cur.Version)}
		}
	}

	return nil
}
