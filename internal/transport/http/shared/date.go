package shared

import "time"

// dateOnly is how clients usually send startDate and endDate; full
// RFC3339 timestamps are accepted too.
const dateOnly = "2006-01-02"

// ParseDate parses a YYYY-MM-DD or RFC3339 value. Empty input is not an
// error; it parses to the zero time so optional parameters stay optional.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(dateOnly, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
