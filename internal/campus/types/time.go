package types

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the canonical stored timestamp form. Values compare
// correctly as plain strings.
const TimeLayout = "2006-01-02 15:04:05"

// Now returns the current UTC time truncated to whole seconds.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a canonical timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q is not in %q form: %w", s, TimeLayout, err)
	}
	return t, nil
}
