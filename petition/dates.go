package petition

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DisplayDateLayout renders dates as "02 February 2006".
const DisplayDateLayout = "02 January 2006"

var dateLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var datePrefix = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)

// FormatDate renders a petition date as DD Month YYYY in UTC. Month names are
// always English.
//
// Case data has been seen with day and month transposed (2019-22-02 for 22
// February 2019); when the month field is out of range but the day field is a
// valid month the two are swapped. Anything else that cannot be read yields
// the empty string.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(DisplayDateLayout)
		}
	}

	m := datePrefix.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month > 12 && day >= 1 && day <= 12 {
		month, day = day, month
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return ""
	}
	return t.Format(DisplayDateLayout)
}
