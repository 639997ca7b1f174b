package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	xutil "EconDash/pkg/util"
)

// Timestamp decodes the service's datetime strings, which may omit the zone.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, ok := xutil.ParseTime(s)
	if !ok {
		return fmt.Errorf("timestamp: unrecognised value %q", s)
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
