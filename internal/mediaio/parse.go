package mediaio

import (
	"strconv"
	"strings"
	"time"
)

// parseExifDate accepts a native "YYYY:MM:DD HH:MM:SS" EXIF date string
// (colon-separated date normalized to dashes) and rejects years before
// 1980 as invalid, per spec §6.
func parseExifDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if len(s) >= 10 && s[4] == ':' && s[7] == ':' {
		s = s[:4] + "-" + s[5:7] + "-" + s[8:]
	}
	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() < 1980 {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func parseIntLoose(s string) (int, bool) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}

func parseFloatLoose(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
