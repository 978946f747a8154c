// Package format renders the values shown on the dashboard screens:
// money, dates, overdue counters, phone numbers and search keys.
package format

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/unicode/norm"
)

// DatePlaceholder is shown for missing or unreadable dates.
const DatePlaceholder = "--/--/----"

const isoDate = "2006-1-2"

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Currency renders amount as Brazilian reais, e.g. "R$ 1.234,56".
// The symbol is followed by a non-breaking space.
func Currency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	// avoid "-R$ 0,00" for values that round to zero
	if math.Round(amount*100) == 0 {
		sign = ""
	}
	return sign + "R$\u00a0" + printer.Sprint(number.Decimal(amount, number.Scale(2)))
}

// Date renders "YYYY-MM-DD" as "DD/MM/YYYY". A trailing time part is ignored.
func Date(iso string) string {
	t, ok := parseDay(iso)
	if !ok {
		return DatePlaceholder
	}
	return t.Format("02/01/2006")
}

// DaysOverdue returns how many calendar days have passed since due,
// counted from the local date of now. Due today, in the future or
// unreadable yields 0.
func DaysOverdue(due string, now time.Time) int {
	d, ok := parseDay(due)
	if !ok {
		return 0
	}
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	days := int(math.Ceil(today.Sub(d).Hours() / 24))
	if days <= 0 {
		return 0
	}
	return days
}

// Today returns the local calendar date of now as "YYYY-MM-DD".
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}

// Month returns the "YYYY-MM" prefix of now's local date.
func Month(now time.Time) string {
	return now.Format("2006-01")
}

// Phone renders a Brazilian number in national format, e.g. "(11) 98765-4321".
// Anything the parser rejects is returned unchanged.
func Phone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, "BR")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}

// Fold lowercases s and strips diacritics so "São Paulo" matches "sao paulo".
func Fold(s string) string {
	t := norm.NFD.String(s)
	t = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return unicode.ToLower(r)
	}, t)
	return norm.NFC.String(t)
}

// parseDay reads the date part of an ISO string as a UTC midnight.
func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
