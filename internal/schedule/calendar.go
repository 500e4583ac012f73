package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// WeeklyWindow is the bookable window for one weekday: slots start at Start
// and every IntervalMinutes after it while they are strictly before End.
type WeeklyWindow struct {
	Weekday         time.Weekday `json:"weekday"`
	Start           TimeOfDay    `json:"start"`
	End             TimeOfDay    `json:"end"`
	IntervalMinutes int          `json:"interval_minutes"`
}

// Calendar is an immutable weekday → window lookup. The zero value has no
// bookable days. Build one with NewCalendar or DefaultCalendar.
type Calendar struct {
	windows map[time.Weekday]WeeklyWindow
}

// NewCalendar validates windows and returns a Calendar. Each weekday may
// appear at most once, Start must be before End and the interval positive.
func NewCalendar(windows ...WeeklyWindow) (*Calendar, error) {
	c := &Calendar{windows: make(map[time.Weekday]WeeklyWindow, len(windows))}
	for _, w := range windows {
		if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
			return nil, fmt.Errorf("schedule: weekday %d out of range 0-6", int(w.Weekday))
		}
		if _, dup := c.windows[w.Weekday]; dup {
			return nil, fmt.Errorf("schedule: duplicate window for %s", w.Weekday)
		}
		if w.Start >= w.End {
			return nil, fmt.Errorf("schedule: %s window start %s must be before end %s", w.Weekday, w.Start, w.End)
		}
		if w.IntervalMinutes <= 0 || w.IntervalMinutes >= minutesPerDay {
			return nil, fmt.Errorf("schedule: %s interval must be between 1 and %d minutes", w.Weekday, minutesPerDay-1)
		}
		c.windows[w.Weekday] = w
	}
	if len(c.windows) == 0 {
		return nil, errors.New("schedule: calendar needs at least one window")
	}
	return c, nil
}

// DefaultCalendar returns the office hours: Tuesday to Thursday 20:00-21:00
// hourly, Saturday 17:00-20:00 and Sunday 18:00-20:00 every half hour.
func DefaultCalendar() *Calendar {
	c, err := NewCalendar(
		WeeklyWindow{Weekday: time.Sunday, Start: MustTimeOfDay("18:00"), End: MustTimeOfDay("20:00"), IntervalMinutes: 30},
		WeeklyWindow{Weekday: time.Tuesday, Start: MustTimeOfDay("20:00"), End: MustTimeOfDay("21:00"), IntervalMinutes: 60},
		WeeklyWindow{Weekday: time.Wednesday, Start: MustTimeOfDay("20:00"), End: MustTimeOfDay("21:00"), IntervalMinutes: 60},
		WeeklyWindow{Weekday: time.Thursday, Start: MustTimeOfDay("20:00"), End: MustTimeOfDay("21:00"), IntervalMinutes: 60},
		WeeklyWindow{Weekday: time.Saturday, Start: MustTimeOfDay("17:00"), End: MustTimeOfDay("20:00"), IntervalMinutes: 30},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// IsWeekdayBookable reports whether the weekday has a window.
func (c *Calendar) IsWeekdayBookable(d time.Weekday) bool {
	if c == nil {
		return false
	}
	_, ok := c.windows[d]
	return ok
}

// WindowFor returns the window configured for the weekday, if any.
func (c *Calendar) WindowFor(d time.Weekday) (WeeklyWindow, bool) {
	if c == nil {
		return WeeklyWindow{}, false
	}
	w, ok := c.windows[d]
	return w, ok
}

// Weekdays returns the bookable weekdays in Sunday-first order.
func (c *Calendar) Weekdays() []time.Weekday {
	if c == nil {
		return nil
	}
	out := make([]time.Weekday, 0, len(c.windows))
	for d := range c.windows {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Windows returns a copy of all windows in Sunday-first order.
func (c *Calendar) Windows() []WeeklyWindow {
	days := c.Weekdays()
	out := make([]WeeklyWindow, 0, len(days))
	for _, d := range days {
		out = append(out, c.windows[d])
	}
	return out
}
