package finance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// FormatCents renders cents as dollars ("$1,234.05", "-$0.50") / Affiche des cents en dollars
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

// ParseCents reads a dollar amount such as "12.5" or "$1,000.00" / Lit un montant en dollars
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), "$"), ",", ""))
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", domain.ErrInvalidInput)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("%w: amount %q must have at most two decimals", domain.ErrInvalidInput, s)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("%w: invalid amount %q", domain.ErrInvalidInput, s)
	}
	var f int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("%w: invalid amount %q", domain.ErrInvalidInput, s)
		}
	}
	return w*100 + f, nil
}
