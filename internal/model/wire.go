package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Hours is a decimal quantity of hours. The backend serializes decimals as strings
// ("1500.50"); numbers are accepted too.
type Hours float64

func (h *Hours) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*h = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*h = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || !finite(f) {
			return fmt.Errorf("invalid hours %q", s)
		}
		*h = Hours(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*h = Hours(f)
	return nil
}

func (h Hours) String() string {
	return strconv.FormatFloat(float64(h), 'f', -1, 64)
}

// ParseHours parses user input. Empty input yields (nil, nil).
func ParseHours(s string) (*Hours, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	h := Hours(f)
	return &h, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// HoursPtrString renders an optional value the way an input field would show it.
func HoursPtrString(h *Hours) string {
	if h == nil {
		return ""
	}
	return h.String()
}

const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form.
type Date string

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return Date(s), nil
}

func (d Date) Time() (time.Time, bool) {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (d Date) String() string { return string(d) }

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date { return Date(t.Format(DateLayout)) }

// DatePtrString renders an optional date; nil yields "".
func DatePtrString(d *Date) string {
	if d == nil {
		return ""
	}
	return string(*d)
}

// FormatDate renders an optional date for display ("N/A" when missing).
func FormatDate(d *Date) string {
	if d == nil || strings.TrimSpace(string(*d)) == "" {
		return "N/A"
	}
	if _, ok := d.Time(); !ok {
		return "Date invalide"
	}
	return string(*d)
}

// FlexID accepts both numeric and string ids on the wire.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// ShortTime renders the HH:MM part of a backend time ("08:30:00" -> "08:30").
func ShortTime(s *string) string {
	if s == nil {
		return ""
	}
	t := strings.TrimSpace(*s)
	if len(t) >= 5 {
		return t[:5]
	}
	return t
}
