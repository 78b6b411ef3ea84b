package util

import (
	"strings"
	"time"
)

const (
	deftDateFormat = "2006-01-02"
	compactFormat  = "20060102"
)

//bucketEpoch anchors date-bucket computation.
var bucketEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

//bucketDays near-identical requests within the same trading window share keys.
const bucketDays = 3

//ParseDate accepts both 2006-01-02 and 20060102 layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{deftDateFormat, compactFormat} {
		if t, e := time.Parse(layout, s); e == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

//DateBucket projects a date string onto its 3-day bucket id. Unparsable or
//empty dates map to -1, which keys "no bound" requests consistently.
func DateBucket(s string) int {
	t, ok := ParseDate(s)
	if !ok {
		return -1
	}
	return int(t.Sub(bucketEpoch).Hours() / 24 / bucketDays)
}

//CompactDate reformats a date string to the 20060102 layout used by upstream
//daily endpoints; returns the input when it cannot be parsed.
func CompactDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format(compactFormat)
}

//CanonicalDate reformats a date string to 2006-01-02.
func CanonicalDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format(deftDateFormat)
}

//DefaultDateRange returns the trailing n-day window ending today.
func DefaultDateRange(days int) (start, end string) {
	now := time.Now()
	return now.AddDate(0, 0, -days).Format(deftDateFormat), now.Format(deftDateFormat)
}
