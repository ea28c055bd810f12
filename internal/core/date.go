package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day at UTC midnight.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func Today() Date {
	return DateOf(time.Now())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Period returns the month d falls in.
func (d Date) Period() Period {
	return PeriodOf(d.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// UnmarshalJSON accepts plain dates and full timestamps.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	*d = DateOf(t)
	return nil
}

var (
	slashDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	longDatePattern  = regexp.MustCompile(`(?i)^(\d{1,2})\s+de\s+(\p{L}+)\s+de\s+(\d{4})$`)

	monthNames = map[string]time.Month{
		"janeiro": time.January, "jan": time.January,
		"fevereiro": time.February, "fev": time.February,
		"marco": time.March, "mar": time.March,
		"abril": time.April, "abr": time.April,
		"maio": time.May, "mai": time.May,
		"junho": time.June, "jun": time.June,
		"julho": time.July, "jul": time.July,
		"agosto": time.August, "ago": time.August,
		"setembro": time.September, "set": time.September,
		"outubro": time.October, "out": time.October,
		"novembro": time.November, "nov": time.November,
		"dezembro": time.December, "dez": time.December,
	}

	fallbackLayouts = []string{
		DateLayout,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"02-01-2006",
		"02.01.2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
	}
)

// ParseDate reads a statement date. The bool reports whether any format matched.
//
// Formats are tried in order: dd/mm/yyyy, "d de <mês> de yyyy" with full or
// abbreviated Portuguese month names, then a set of ISO and English layouts.
func ParseDate(raw string) (Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, false
	}

	if m := slashDatePattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return calendarDate(year, time.Month(month), day)
	}

	if m := longDatePattern.FindStringSubmatch(s); m != nil {
		month, ok := monthNames[FoldText(m[2])]
		if !ok {
			return Date{}, false
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		return calendarDate(year, month, day)
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	return Date{}, false
}

// ParseBrazilianDate is the lenient form of ParseDate: unreadable input yields today.
func ParseBrazilianDate(raw string) Date {
	if d, ok := ParseDate(raw); ok {
		return d
	}
	return Today()
}

// calendarDate rejects out-of-range components instead of letting time.Date roll them over.
func calendarDate(year int, month time.Month, day int) (Date, bool) {
	if month < time.January || month > time.December || day < 1 {
		return Date{}, false
	}
	d := NewDate(year, month, day)
	if d.Month() != month || d.Day() != day {
		return Date{}, false
	}
	return d, true
}
