// Package timefmt renders and parses the timestamp formats used on the
// wire: ISO-8601, RFC-822, and epoch seconds.
package timefmt

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Names of the supported timestamp formats, as they appear in the
// timestampFormat trait.
const (
	ISO8601  = "iso8601"
	RFC822   = "rfc822"
	UnixTime = "unixtime"
)

// iso8601Layout renders instants as UTC with a Z suffix.
const iso8601Layout = "2006-01-02T15:04:05Z"

// rfc822Layout matches the HTTP date format.
const rfc822Layout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Format renders t using the named format. It fails when the format
// name is unrecognized.
func Format(t time.Time, format string) (string, error) {
	switch format {
	case ISO8601:
		return t.UTC().Format(iso8601Layout), nil
	case RFC822:
		return t.UTC().Format(rfc822Layout), nil
	case UnixTime:
		return strconv.FormatInt(t.Unix(), 10), nil
	default:
		return "", fmt.Errorf("timefmt: unrecognized timestamp format %q", format)
	}
}

// parseLayouts are the string layouts accepted by [Parse], tried in order.
var parseLayouts = []string{
	iso8601Layout,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	time.RFC3339Nano,
	rfc822Layout,
	time.RFC1123,
	time.RFC1123Z,
}

// Parse normalizes a wire timestamp into a UTC [time.Time]. It accepts
// an epoch number (integer or fractional), a bare ISO-8601 datetime, an
// ISO-8601 datetime with a Z suffix or an explicit numeric offset, and
// an RFC-822 datetime.
func Parse(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case float64:
		seconds, frac := math.Modf(v)
		return time.Unix(int64(seconds), int64(frac*1e9)).UTC(), nil
	case string:
		return parseString(v)
	default:
		return time.Time{}, fmt.Errorf("timefmt: cannot parse %T as a timestamp", value)
	}
}

func parseString(value string) (time.Time, error) {
	// Epoch values may arrive as strings too.
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(seconds, 0).UTC(), nil
	}
	if epoch, err := strconv.ParseFloat(value, 64); err == nil {
		seconds, frac := math.Modf(epoch)
		return time.Unix(int64(seconds), int64(frac*1e9)).UTC(), nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timefmt: cannot parse %q as a timestamp", value)
}
