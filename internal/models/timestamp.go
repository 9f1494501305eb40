package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a document time value. It is written as an RFC 3339 string
// and read from any of the shapes older clients stored: RFC 3339 strings,
// integer milliseconds since the epoch, or a native {seconds, nanoseconds}
// timestamp object.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func Now() Timestamp {
	return NewTimestamp(time.Now().Truncate(time.Microsecond))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02",
}

type nativeTimestamp struct {
	Seconds      *int64 `json:"seconds"`
	Nanoseconds  int64  `json:"nanoseconds"`
	USeconds     *int64 `json:"_seconds"`
	UNanoseconds int64  `json:"_nanoseconds"`
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseTimestamp(s)
		if err != nil {
			return err
		}
		*t = parsed
		return nil

	case '{':
		var native nativeTimestamp
		if err := json.Unmarshal(data, &native); err != nil {
			return fmt.Errorf("decode timestamp object: %w", err)
		}
		switch {
		case native.Seconds != nil:
			*t = NewTimestamp(time.Unix(*native.Seconds, native.Nanoseconds))
		case native.USeconds != nil:
			*t = NewTimestamp(time.Unix(*native.USeconds, native.UNanoseconds))
		default:
			return fmt.Errorf("timestamp object has no seconds field")
		}
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode timestamp %s: %w", data, err)
	}
	*t = NewTimestamp(time.UnixMilli(int64(ms)))
	return nil
}

// ParseTimestamp accepts an RFC 3339 / ISO-8601 string or a decimal string of
// milliseconds since the epoch.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(parsed), nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewTimestamp(time.UnixMilli(ms)), nil
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}
