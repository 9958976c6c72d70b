// Package id issues run identifiers. Run ids are ULIDs, so they sort by
// creation time both as strings and in SQLite indexes.
package id

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh run id. Ids issued in the same millisecond still
// increase.
func New() string {
	return ulid.Make().String()
}

// Valid reports whether s is a well-formed run id.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Time returns the creation time encoded in a run id.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
