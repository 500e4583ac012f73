package schedule

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// calendarFile is the on-disk layout read by LoadCalendar:
//
//	windows:
//	  - weekday: 2          # 0=Sunday … 6=Saturday, or an English name
//	    start: "20:00"
//	    end: "21:00"
//	    interval_minutes: 60
type calendarFile struct {
	Windows []struct {
		Weekday         string `yaml:"weekday"`
		Start           string `yaml:"start"`
		End             string `yaml:"end"`
		IntervalMinutes int    `yaml:"interval_minutes"`
	} `yaml:"windows"`
}

// LoadCalendar reads a YAML calendar from path. An empty path returns the
// default calendar.
func LoadCalendar(path string) (*Calendar, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCalendar(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCalendar(raw)
}

// ParseCalendar decodes a YAML calendar document.
func ParseCalendar(raw []byte) (*Calendar, error) {
	var f calendarFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("schedule: decode calendar: %w", err)
	}
	windows := make([]WeeklyWindow, 0, len(f.Windows))
	for i, w := range f.Windows {
		day, err := parseWeekday(w.Weekday)
		if err != nil {
			return nil, fmt.Errorf("schedule: window %d: %w", i, err)
		}
		start, err := ParseTimeOfDay(w.Start)
		if err != nil {
			return nil, fmt.Errorf("schedule: window %d start: %w", i, err)
		}
		end, err := ParseTimeOfDay(w.End)
		if err != nil {
			return nil, fmt.Errorf("schedule: window %d end: %w", i, err)
		}
		windows = append(windows, WeeklyWindow{Weekday: day, Start: start, End: end, IntervalMinutes: w.IntervalMinutes})
	}
	return NewCalendar(windows...)
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return time.Weekday(s[0] - '0'), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
