package schedule

import (
	"fmt"
	"strings"
	"time"
)

// SlotCheck is the outcome of ValidateSlot. Reason is user-facing.
type SlotCheck struct {
	Valid  bool
	Reason string
}

// DayAvailability describes one upcoming bookable day.
type DayAvailability struct {
	Date    Date         `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	DayName string       `json:"day_name"`
	Slots   []TimeOfDay  `json:"slots"`
}

// GenerateSlots returns the ordered start times for the weekday. The window
// end is exclusive, and a trailing interval shorter than IntervalMinutes is
// dropped. Unconfigured weekdays yield an empty slice.
func (c *Calendar) GenerateSlots(d time.Weekday) []TimeOfDay {
	w, ok := c.WindowFor(d)
	if !ok {
		return []TimeOfDay{}
	}
	out := make([]TimeOfDay, 0, (int(w.End-w.Start)+w.IntervalMinutes-1)/w.IntervalMinutes)
	for cur := w.Start; cur < w.End; cur += TimeOfDay(w.IntervalMinutes) {
		out = append(out, cur)
	}
	return out
}

// ValidateSlot checks that the date falls on a bookable weekday and that t is
// one of that weekday's generated slots.
func (c *Calendar) ValidateSlot(date Date, t TimeOfDay) SlotCheck {
	day := date.Weekday()
	w, ok := c.WindowFor(day)
	if !ok {
		return SlotCheck{
			Reason: fmt.Sprintf("Los %s no están disponibles para citas. Días disponibles: %s",
				DayNamePlural(day), c.bookableDaysList()),
		}
	}
	for _, s := range c.GenerateSlots(day) {
		if s == t {
			return SlotCheck{Valid: true, Reason: "Horario válido"}
		}
	}
	return SlotCheck{
		Reason: fmt.Sprintf("Los %s solo están disponibles de %s a %s", DayNamePlural(day), w.Start, w.End),
	}
}

// UpcomingDays lists the bookable days in [from, from+days), each with its
// slot list. A non-positive days yields nil.
func (c *Calendar) UpcomingDays(from Date, days int) []DayAvailability {
	if days <= 0 {
		return nil
	}
	var out []DayAvailability
	for i := 0; i < days; i++ {
		d := from.AddDays(i)
		wd := d.Weekday()
		if !c.IsWeekdayBookable(wd) {
			continue
		}
		out = append(out, DayAvailability{
			Date:    d,
			Weekday: wd,
			DayName: DayName(wd),
			Slots:   c.GenerateSlots(wd),
		})
	}
	return out
}

func (c *Calendar) bookableDaysList() string {
	days := c.Weekdays()
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, DayName(d))
	}
	return strings.Join(names, ", ")
}
