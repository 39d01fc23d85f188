package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Weekday is a meeting day. Monday is 1 and Sunday is 7 so that sorting by
// Weekday yields the academic week order.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// AllWeekdays lists the days in week order.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether d is one of Monday..Sunday
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

// ParseWeekday accepts day names and their abbreviations of at least three
// letters ("MON", "Thurs", "Monday"), "TH", and the single-letter registrar
// codes M T W R F S U.
func ParseWeekday(s string) (Weekday, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "M":
		return Monday, nil
	case "T":
		return Tuesday, nil
	case "W":
		return Wednesday, nil
	case "R", "TH":
		return Thursday, nil
	case "F":
		return Friday, nil
	case "S":
		return Saturday, nil
	case "U":
		return Sunday, nil
	}
	if len(v) >= 3 {
		for i := Monday; i <= Sunday; i++ {
			if strings.HasPrefix(weekdayFullNames[i], v) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

var weekdayFullNames = [...]string{"", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// ParseDays parses a day list: a single day ("MON", "Monday", "TH"), a
// separated list ("MON,WED", "Tue Thu") or compact registrar letters
// ("MWF", "TR").
func ParseDays(s string) ([]Weekday, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.ContainsAny(s, ", ") {
		var days []Weekday
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
			d, err := ParseWeekday(part)
			if err != nil {
				return nil, err
			}
			days = append(days, d)
		}
		return days, nil
	}
	if len(s) >= 2 {
		if d, err := ParseWeekday(s); err == nil {
			return []Weekday{d}, nil
		}
	}
	days := make([]Weekday, 0, len(s))
	for _, r := range s {
		d, err := ParseWeekday(string(r))
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// MarshalJSON encodes the day by its short name.
func (d Weekday) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid weekday %d", int(d))
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either the short name or the numeric value.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseWeekday(name)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid weekday: %s", string(data))
	}
	if !Weekday(n).Valid() {
		return fmt.Errorf("invalid weekday: %d", n)
	}
	*d = Weekday(n)
	return nil
}

// ClockTime is a wall-clock time of day in minutes since midnight.
type ClockTime int

// NewClockTime builds a ClockTime from hours and minutes.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime parses "HH:MM" (24-hour).
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return NewClockTime(h, m), nil
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes the time as "HH:MM".
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM".
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("clock time must be a string: %w", err)
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeWindow is a half-open interval [Start, End) within one day.
type TimeWindow struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// Empty reports whether the window covers no time.
func (w TimeWindow) Empty() bool {
	return w.End <= w.Start
}

// Intersect returns the overlap of two windows. The result is Empty when the
// windows only touch or do not meet at all.
func (w TimeWindow) Intersect(o TimeWindow) TimeWindow {
	start, end := w.Start, w.End
	if o.Start > start {
		start = o.Start
	}
	if o.End < end {
		end = o.End
	}
	return TimeWindow{Start: start, End: end}
}
