package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a wall-clock time as seconds since midnight. 24:00:00 is allowed so a working
// window can close at midnight. The canonical text form is "HH:mm:ss".
type TimeOfDay int

func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, fmt.Errorf("time of day %02d:%02d:%02d out of range", hour, minute, second)
	}
	t := TimeOfDay(hour*3600 + minute*60 + second)
	if t > secondsPerDay {
		return 0, fmt.Errorf("time of day %02d:%02d:%02d out of range", hour, minute, second)
	}
	return t, nil
}

// Clock builds a TimeOfDay from literal components and panics on invalid input.
func Clock(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute, 0)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay accepts "HH:mm" and "HH:mm:ss".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	nums := [3]int{}
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		nums[i] = n
	}
	t, err := NewTimeOfDay(nums[0], nums[1], nums[2])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t, nil
}

// TimeOfDayOf returns the wall-clock time of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// TimeOfDayFromValue normalises the shapes a time arrives in from clients: a "HH:mm[:ss]"
// string, a {hour, minute, second} object decoded into a map, or an existing TimeOfDay.
func TimeOfDayFromValue(v any) (TimeOfDay, error) {
	switch val := v.(type) {
	case TimeOfDay:
		return val, nil
	case *TimeOfDay:
		if val == nil {
			return 0, fmt.Errorf("time of day is required")
		}
		return *val, nil
	case string:
		return ParseTimeOfDay(val)
	case map[string]any:
		var parts [3]int
		for i, key := range []string{"hour", "minute", "second"} {
			raw, ok := val[key]
			if !ok {
				if key == "second" {
					continue
				}
				return 0, fmt.Errorf("time of day object missing %q", key)
			}
			n, err := wholeNumber(raw)
			if err != nil {
				return 0, fmt.Errorf("time of day %s: %w", key, err)
			}
			parts[i] = n
		}
		return NewTimeOfDay(parts[0], parts[1], parts[2])
	case nil:
		return 0, fmt.Errorf("time of day is required")
	default:
		return 0, fmt.Errorf("unsupported time of day value %T", v)
	}
}

func wholeNumber(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unsupported number %T", v)
	}
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// Seconds returns the offset from midnight in seconds.
func (t TimeOfDay) Seconds() int { return int(t) }

func (t TimeOfDay) AddMinutes(m int) TimeOfDay { return t + TimeOfDay(m*60) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// On anchors t to the given date in loc.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc).Add(time.Duration(t) * time.Second)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	v, err := TimeOfDayFromValue(raw)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
