package memory

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// KeyLayout is the UTC ISO-8601 layout used for storage keys. The fixed
// microsecond width keeps lexicographic order equal to chronological order.
const KeyLayout = "2006-01-02T15:04:05.000000"

// KeyStrategy derives a storage key from the write time.
type KeyStrategy interface {
	Next(now time.Time) string
}

// KeysFor returns the strategy named by config ("timestamp" or "unique").
func KeysFor(name string) (KeyStrategy, error) {
	switch name {
	case "", "timestamp":
		return TimestampKeys{}, nil
	case "unique":
		return &UniqueTimestampKeys{}, nil
	default:
		return nil, fmt.Errorf("unknown key strategy %q (use timestamp or unique)", name)
	}
}

// TimestampKeys uses the bare UTC timestamp. Two writes in the same
// microsecond get the same key and the later one wins.
type TimestampKeys struct{}

func (TimestampKeys) Next(now time.Time) string {
	return now.UTC().Format(KeyLayout)
}

// UniqueTimestampKeys appends a per-process sequence number to the timestamp
// so writes in the same microsecond never share a key.
type UniqueTimestampKeys struct {
	seq atomic.Uint64
}

func (u *UniqueTimestampKeys) Next(now time.Time) string {
	return fmt.Sprintf("%s_%09d", now.UTC().Format(KeyLayout), u.seq.Add(1))
}

// ValidKey reports whether key can name an entry: a non-empty file stem with
// no path components.
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, "/\\\x00")
}
