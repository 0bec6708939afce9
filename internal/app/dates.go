package app

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Scraped timestamps arrive in wildly different shapes per platform, in
// Spanish and English. ResolveTimestamp tries, in order: relative phrases,
// absolute dates, month+year; anything else resolves to now. It never fails.
func ResolveTimestamp(raw string, now time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return now
	}
	// Booking prefixes dates with a label ("Fecha del comentario: 18 de
	// septiembre de 2025"); keep only what follows the last label.
	if i := strings.LastIndex(s, ": "); i >= 0 {
		s = strings.TrimSpace(s[i+2:])
	}
	if t, ok := resolveRelative(s, now); ok {
		return t
	}
	if t, ok := parseAbsolute(s); ok {
		return t
	}
	if t, ok := parseMonthYear(s); ok {
		return t
	}
	return now
}

var relativeRe = regexp.MustCompile(`(?i)^(?:hace\s+(?:un[ao]?|\d+)\s+[a-zá-ú]+|(?:an?|\d+)\s+[a-z]+\s+ago)$`)
var relativeNumRe = regexp.MustCompile(`\d+`)

// resolveRelative handles "hace 3 semanas", "2 months ago" and friends.
// Sub-day units (hours, minutes, "hoy") resolve to now.
func resolveRelative(s string, now time.Time) (time.Time, bool) {
	low := strings.ToLower(s)
	if low == "hoy" || low == "today" || low == "ayer" || low == "yesterday" {
		if low == "ayer" || low == "yesterday" {
			return now.AddDate(0, 0, -1), true
		}
		return now, true
	}
	if !relativeRe.MatchString(low) {
		return time.Time{}, false
	}
	n := 1
	if m := relativeNumRe.FindString(low); m != "" {
		n, _ = strconv.Atoi(m)
	}
	switch {
	case strings.Contains(low, "día"), strings.Contains(low, "dia"), strings.Contains(low, "day"):
		return now.AddDate(0, 0, -n), true
	case strings.Contains(low, "semana"), strings.Contains(low, "week"):
		return now.AddDate(0, 0, -7*n), true
	case strings.Contains(low, "mes"), strings.Contains(low, "month"):
		return now.AddDate(0, -n, 0), true
	case strings.Contains(low, "año"), strings.Contains(low, "ano"), strings.Contains(low, "year"):
		return now.AddDate(-n, 0, 0), true
	case strings.Contains(low, "hora"), strings.Contains(low, "hour"),
		strings.Contains(low, "minuto"), strings.Contains(low, "minute"):
		return now, true
	}
	return time.Time{}, false
}

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"January 2, 2006",
	"2 January 2006",
}

var spanishFullDateRe = regexp.MustCompile(`(?i)^(\d{1,2})\s+de\s+([a-zá-ú]+)\s+de\s+(\d{4})$`)

func parseAbsolute(s string) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// "18 de septiembre de 2025"
	if m := spanishFullDateRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		if month, ok := monthsByName[strings.ToLower(m[2])]; ok {
			year, _ := strconv.Atoi(m[3])
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

var monthYearRe = regexp.MustCompile(`(?i)^([a-zá-ú]+)\s+(?:de\s+)?(\d{4})$`)

// parseMonthYear handles "agosto de 2025" / "August 2025", anchored to the
// first day of the month.
func parseMonthYear(s string) (time.Time, bool) {
	m := monthYearRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthsByName[strings.ToLower(m[1])]
	if !ok {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[2])
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
}

var monthsByName = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"setiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,

	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}
