package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Flag 兼容 JSON 布尔值与 0/1 整数（服务端两种写法都有）
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "":
		*f = false
		return nil
	case "true":
		*f = true
		return nil
	case "false":
		*f = false
		return nil
	}
	unquoted := string(bytes.Trim(data, `"`))
	if b, err := strconv.ParseBool(unquoted); err == nil {
		*f = Flag(b)
		return nil
	}
	n, err := strconv.ParseFloat(unquoted, 64)
	if err != nil {
		return fmt.Errorf("flag: unsupported value %s", data)
	}
	*f = n != 0
	return nil
}

// Timestamp 兼容带时区的 RFC3339 以及服务端的无时区 ISO 时间
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp 按已知格式依次尝试解析
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	// 未知格式保留零值，不让单个字段丢掉整条记录
	parsed, err := ParseTimestamp(s)
	if err != nil {
		t.Time = time.Time{}
		return nil
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// SameDay reports whether t falls on the same local calendar day as ref.
func (t Timestamp) SameDay(ref time.Time) bool {
	if t.IsZero() {
		return false
	}
	y1, m1, d1 := t.Local().Date()
	y2, m2, d2 := ref.Local().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
