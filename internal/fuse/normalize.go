package fuse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reDateYMD = regexp.MustCompile(`(20\d{2})[-/ ]?(\d{2})[-/ ]?(\d{2})`)
	reDateMDY = regexp.MustCompile(`(\d{2})[-/ ](\d{2})[-/ ](20\d{2})`)
	reEmail   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	reDigits  = regexp.MustCompile(`\D`)
	reAmount  = regexp.MustCompile(`[0-9]+(?:\.[0-9]{1,2})?`)
)

// normalizers maps each semantic field to its canonicalizer. Fields without an
// entry pass through unchanged.
var normalizers = map[string]func(any) any{
	"date":   normDate,
	"email":  normEmail,
	"phone":  normPhone,
	"amount": normAmount,
}

func normalizeField(field string, v any) any {
	if fn, ok := normalizers[field]; ok {
		return fn(v)
	}
	return v
}

// normDate extracts a canonical YYYY-MM-DD via a year-month-day pattern scan.
// Strings without a recognizable date pass through unchanged.
func normDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if m := reDateYMD.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	// month-day-year forms like 03/05/2024
	if m := reDateMDY.FindStringSubmatch(s); m != nil {
		return m[3] + "-" + m[1] + "-" + m[2]
	}
	return v
}

// normEmail validates against a simple local@domain.tld shape, discarding
// anything else to null.
func normEmail(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if !reEmail.MatchString(s) {
		return nil
	}
	return s
}

// normPhone keeps digits only; fewer than 7 digits is discarded to null.
func normPhone(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	digits := reDigits.ReplaceAllString(s, "")
	if len(digits) < 7 {
		return nil
	}
	return digits
}

// normAmount parses the first decimal-like numeric substring as a float,
// discarding to null when absent.
func normAmount(v any) any {
	if v == nil {
		return nil
	}
	s := strings.ReplaceAll(fmt.Sprint(v), ",", "")
	m := reAmount.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return f
}

// canon renders a value for the case/whitespace-insensitive agreement check.
func canon(v any) string {
	return strings.ToLower(strings.Join(strings.Fields(fmt.Sprint(v)), " "))
}
