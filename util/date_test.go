package util

import (
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	for _, s := range []string{"2025-06-02", "20250602", " 2025-06-02 "} {
		d, ok := ParseDate(s)
		if !ok {
			t.Errorf("ParseDate(%q) failed", s)
			continue
		}
		if d.Year() != 2025 || d.Month() != time.June || d.Day() != 2 {
			t.Errorf("ParseDate(%q) = %s", s, d)
		}
	}
	if _, ok := ParseDate("06/02/2025"); ok {
		t.Errorf("unexpected layout accepted")
	}
}

func TestDateBucket(t *testing.T) {
	if got := DateBucket("2020-01-01"); got != 0 {
		t.Errorf("epoch bucket = %d", got)
	}
	if got := DateBucket("2020-01-04"); got != 1 {
		t.Errorf("day 3 bucket = %d", got)
	}
	//dates inside one 3-day window share a bucket
	if DateBucket("2025-06-01") != DateBucket("2025-06-02") {
		t.Errorf("same-window dates diverge")
	}
	if got := DateBucket(""); got != -1 {
		t.Errorf("empty date bucket = %d, want -1", got)
	}
	if got := DateBucket("not-a-date"); got != -1 {
		t.Errorf("junk date bucket = %d, want -1", got)
	}
}

func TestDateReformat(t *testing.T) {
	if got := CompactDate("2025-06-02"); got != "20250602" {
		t.Errorf("CompactDate = %s", got)
	}
	if got := CanonicalDate("20250602"); got != "2025-06-02" {
		t.Errorf("CanonicalDate = %s", got)
	}
	//unparsable input passes through
	if got := CompactDate("junk"); got != "junk" {
		t.Errorf("CompactDate(junk) = %s", got)
	}
}

func TestDefaultDateRange(t *testing.T) {
	start, end := DefaultDateRange(30)
	s, ok1 := ParseDate(start)
	e, ok2 := ParseDate(end)
	if !ok1 || !ok2 {
		t.Fatalf("range not parsable: %s / %s", start, end)
	}
	if int(e.Sub(s).Hours()/24) != 30 {
		t.Errorf("window width wrong: %s / %s", start, end)
	}
}
