package schedule

import (
	"fmt"
	"time"
)

var dayNames = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// Spanish weekday names ending in -s are invariant in the plural.
var dayNamesPlural = [...]string{"Domingos", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábados"}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// DayName returns the Spanish name of the weekday, capitalized.
func DayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return d.String()
	}
	return dayNames[d]
}

// DayNamePlural returns the capitalized Spanish plural ("Sábados").
func DayNamePlural(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return d.String()
	}
	return dayNamesPlural[d]
}

// FormatLong renders the date as "martes, 20 de octubre de 2026".
func FormatLong(d Date) string {
	if d.Month < time.January || d.Month > time.December {
		return d.String()
	}
	wd := dayNames[d.Weekday()]
	// Lower-case the leading letter only; the remaining letters already are.
	lower := []rune(wd)
	if len(lower) > 0 {
		lower[0] = toLowerASCII(lower[0])
	}
	return fmt.Sprintf("%s, %d de %s de %d", string(lower), d.Day, monthNames[d.Month-1], d.Year)
}

func toLowerASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
