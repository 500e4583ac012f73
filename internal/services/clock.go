package services

import (
	"time"

	"github.com/obispado/citas-backend/internal/schedule"
)

// Clock returns the current instant. Tests substitute a fixed clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// today evaluates the clock's date in loc (time.Local when nil).
func (c Clock) today(loc *time.Location) schedule.Date {
	return schedule.Today(c.now(), loc)
}
