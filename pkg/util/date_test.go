package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeNaiveISO(t *testing.T) {
	got, ok := ParseTime("2024-10-10T10:10:10.123456")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2024, 10, 10, 10, 10, 10, 123456000, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2024-03-31")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 31 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDate(t *testing.T) {
	if _, ok := ParseDate("2024-10-10T10:10:10Z"); ok {
		t.Fatalf("datetime accepted as date")
	}
	got, ok := ParseDate("2024-02-29")
	if !ok || got.Day() != 29 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 3); got != 3 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("x", 3); got != 3 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("2", 3); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" gdp, cpi ,,pmi ")
	if len(got) != 3 || got[0] != "gdp" || got[1] != "cpi" || got[2] != "pmi" {
		t.Fatalf("unexpected split %v", got)
	}
}
