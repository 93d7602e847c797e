package docstore

import "time"

// dateMillis reads a date string the way SQLite's julianday() does and
// returns it as Unix milliseconds. Accepted forms start with YYYY-MM-DD,
// optionally followed by spaces or 'T' and HH:MM[:SS[.fff...]] with an
// optional Z or ±HH:MM zone. Fractional seconds round to the millisecond.
// Out-of-range days roll over into the next month, as in SQLite.
func dateMillis(s string) (int64, bool) {
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return 0, false
	}
	y, ok1 := digits(s[0:4])
	mo, ok2 := digits(s[5:7])
	d, ok3 := digits(s[8:10])
	if !ok1 || !ok2 || !ok3 || mo < 1 || mo > 12 || d < 1 || d > 31 {
		return 0, false
	}
	base := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC).UnixMilli()

	rest := s[10:]
	for len(rest) > 0 && (isSpace(rest[0]) || rest[0] == 'T') {
		rest = rest[1:]
	}
	if rest == "" {
		return base, true
	}
	clock, ok := clockMillis(rest)
	if !ok {
		return 0, false
	}
	return base + clock, true
}

// clockMillis parses HH:MM[:SS[.fff]] plus an optional zone and returns the
// UTC offset from midnight in milliseconds.
func clockMillis(s string) (int64, bool) {
	if len(s) < 5 || s[2] != ':' {
		return 0, false
	}
	h, ok1 := digits(s[0:2])
	m, ok2 := digits(s[3:5])
	if !ok1 || !ok2 || h > 24 || m > 59 {
		return 0, false
	}
	s = s[5:]
	var sec float64
	if len(s) > 0 && s[0] == ':' {
		if len(s) < 3 {
			return 0, false
		}
		whole, ok := digits(s[1:3])
		if !ok || whole > 59 {
			return 0, false
		}
		s = s[3:]
		var frac float64
		if len(s) > 1 && s[0] == '.' && isDigit(s[1]) {
			scale := 1.0
			s = s[1:]
			for len(s) > 0 && isDigit(s[0]) {
				frac = frac*10 + float64(s[0]-'0')
				scale *= 10
				s = s[1:]
			}
			frac /= scale
		}
		sec = float64(whole) + frac
	}
	tz, ok := zoneMinutes(s)
	if !ok {
		return 0, false
	}
	return int64(h)*3600000 + int64(m)*60000 + int64(sec*1000+0.5) - int64(tz)*60000, true
}

func zoneMinutes(s string) (int, bool) {
	for len(s) > 0 && isSpace(s[0]) {
		s = s[1:]
	}
	if s == "" {
		return 0, true
	}
	tz := 0
	switch s[0] {
	case 'Z', 'z':
		s = s[1:]
	case '+', '-':
		if len(s) < 6 || s[3] != ':' {
			return 0, false
		}
		hh, ok1 := digits(s[1:3])
		mm, ok2 := digits(s[4:6])
		if !ok1 || !ok2 || hh > 14 || mm > 59 {
			return 0, false
		}
		tz = hh*60 + mm
		if s[0] == '-' {
			tz = -tz
		}
		s = s[6:]
	default:
		return 0, false
	}
	for len(s) > 0 && isSpace(s[0]) {
		s = s[1:]
	}
	return tz, s == ""
}

func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}
