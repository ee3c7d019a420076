package transform

import (
	"regexp"
	"time"
)

// canonical layout for datetime strings stored inside JSON blobs.
const utcLayout = "2006-01-02T15:04:05+00:00"

var datetimeRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?$`)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NormalizeDatetimes walks a decoded JSON value and rewrites every
// datetime-looking string to canonical UTC. Naive strings are taken as
// already-UTC; zoned strings are converted. Everything else passes through
// untouched.
func NormalizeDatetimes(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = NormalizeDatetimes(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = NormalizeDatetimes(item)
		}
		return v
	case string:
		return normalizeDatetimeString(v)
	default:
		return value
	}
}

func normalizeDatetimeString(s string) string {
	if !datetimeRegex.MatchString(s) {
		return s
	}
	parsed, ok := ParseDatetime(s)
	if !ok {
		return s
	}
	return parsed.UTC().Format(utcLayout)
}

// ParseDatetime accepts the datetime shapes the upstream feed produces.
// Strings without a zone are interpreted as UTC.
func ParseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
