package format

import (
	"fmt"
	"time"
)

var weekdays = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

var months = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// DayLabel names an agenda day the way the agenda groups it,
// e.g. "quinta-feira, 16 de outubro". Today and tomorrow get short labels.
func DayLabel(iso string, now time.Time) string {
	d, ok := parseDay(iso)
	if !ok {
		return DatePlaceholder
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	switch {
	case d.Equal(today):
		return "Hoje"
	case d.Equal(today.AddDate(0, 0, 1)):
		return "Amanhã"
	}
	return fmt.Sprintf("%s, %d de %s", weekdays[d.Weekday()], d.Day(), months[d.Month()-1])
}

// Location loads an IANA zone, falling back to UTC.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
