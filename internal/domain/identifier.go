package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier prefixes.
const (
	PIDPrefix = "PID"
	TIDPrefix = "TID"
)

// PIDYearPrefix returns the prefix shared by every PID issued in year, e.g. "PID26".
func PIDYearPrefix(year int) string {
	return fmt.Sprintf("%s%02d", PIDPrefix, year%100)
}

// NextPID returns the participant identifier following the highest valid PID
// of the same year found in existing. Sequences restart every year.
func NextPID(year int, existing []string) string {
	prefix := PIDYearPrefix(year)
	return formatIdentifier(PIDPrefix, year, highestSequence(existing, prefix, 0)+1)
}

// NextTID returns the team identifier following the highest valid TID in
// existing. Team identifiers share one sequence across years; the year digits
// only stamp when the team was formed.
func NextTID(year int, existing []string) string {
	return formatIdentifier(TIDPrefix, year, highestSequence(existing, TIDPrefix, 2)+1)
}

// NormalizePID trims and upper-cases a user supplied PID.
func NormalizePID(pid string) string {
	return strings.ToUpper(strings.TrimSpace(pid))
}

func formatIdentifier(prefix string, year, seq int) string {
	return fmt.Sprintf("%s%02d%04d", prefix, year%100, seq)
}

// highestSequence parses the numeric suffix of every value starting with prefix,
// skipping skip characters after the prefix. Values that do not parse are ignored.
func highestSequence(values []string, prefix string, skip int) int {
	best := 0
	for _, v := range values {
		if !strings.HasPrefix(v, prefix) {
			continue
		}
		rest := v[len(prefix):]
		if len(rest) <= skip {
			continue
		}
		digits := rest[skip:]
		if skip > 0 && !allDigits(rest[:skip]) {
			continue
		}
		if !allDigits(digits) {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
