// Package advancement handles merit badge requirement numbering and the
// badge catalog file format.
package advancement

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// ReqNum is a parsed requirement number / Numéro d'exigence analysé
//
// "6A(a)(1)" parses to {Number: 6, Letter: "A", Groups: ["a", "1"]}.
type ReqNum struct {
	Number int
	Letter string
	Groups []string
}

// ParseReqNum accepts display or canonical notation / Accepte la notation affichée ou canonique
func ParseReqNum(s string) (ReqNum, error) {
	s = normalize(s)
	if s == "" {
		return ReqNum{}, fmt.Errorf("%w: empty requirement number", domain.ErrInvalidInput)
	}

	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == 0 {
		return ReqNum{}, invalidReqNum(s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return ReqNum{}, invalidReqNum(s)
	}
	r := ReqNum{Number: n}

	if i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		r.Letter = s[i : i+1]
		i++
	}

	for i < len(s) {
		if s[i] == '(' {
			end := strings.IndexByte(s[i:], ')')
			if end < 0 {
				return ReqNum{}, invalidReqNum(s)
			}
			g := s[i+1 : i+end]
			if !isGroup(g) {
				return ReqNum{}, invalidReqNum(s)
			}
			r.Groups = append(r.Groups, g)
			i += end + 1
			continue
		}
		j := i
		switch {
		case isLower(s[i]):
			for j < len(s) && isLower(s[j]) {
				j++
			}
		case isDigit(s[i]):
			for j < len(s) && isDigit(s[j]) {
				j++
			}
		default:
			return ReqNum{}, invalidReqNum(s)
		}
		r.Groups = append(r.Groups, s[i:j])
		i = j
	}
	return r, nil
}

// Display renders "6A(a)(1)" / Rend la notation affichée
func (r ReqNum) Display() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(r.Number))
	b.WriteString(r.Letter)
	for _, g := range r.Groups {
		b.WriteByte('(')
		b.WriteString(g)
		b.WriteByte(')')
	}
	return b.String()
}

// Canonical renders "6Aa1" / Rend la notation canonique
func (r ReqNum) Canonical() string {
	return strconv.Itoa(r.Number) + r.Letter + strings.Join(r.Groups, "")
}

// SortKey renders a key whose byte order matches Compare / Clé de tri cohérente avec Compare
func (r ReqNum) SortKey() string {
	parts := []string{fmt.Sprintf("%04d", r.Number), r.Letter}
	for _, g := range r.Groups {
		if isDigit(g[0]) {
			n, _ := strconv.Atoi(g)
			parts = append(parts, fmt.Sprintf("0%04d", n))
		} else {
			parts = append(parts, "1"+g)
		}
	}
	return strings.Join(parts, ".")
}

// ToDisplay converts a requirement number to display form / Convertit en notation affichée
func ToDisplay(s string) (string, error) {
	r, err := ParseReqNum(s)
	if err != nil {
		return "", err
	}
	return r.Display(), nil
}

// ToCanonical converts a requirement number to canonical form / Convertit en notation canonique
func ToCanonical(s string) (string, error) {
	r, err := ParseReqNum(s)
	if err != nil {
		return "", err
	}
	return r.Canonical(), nil
}

// SortKey returns the sort key for s, or s itself when it does not parse.
func SortKey(s string) string {
	r, err := ParseReqNum(s)
	if err != nil {
		return s
	}
	return r.SortKey()
}

// CompareRequirementNumbers orders numbers naturally / Ordonne les numéros naturellement
//
// 2 < 10, 6A < 6B, 6A(a) < 6A(b), 6 < 6A. Unparseable input compares as text
// after every valid number.
func CompareRequirementNumbers(a, b string) int {
	ra, errA := ParseReqNum(a)
	rb, errB := ParseReqNum(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	return ra.compare(rb)
}

func (r ReqNum) compare(o ReqNum) int {
	if r.Number != o.Number {
		return cmpInt(r.Number, o.Number)
	}
	if c := strings.Compare(r.Letter, o.Letter); c != 0 {
		return c
	}
	for i := 0; i < len(r.Groups) && i < len(o.Groups); i++ {
		if c := compareGroup(r.Groups[i], o.Groups[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(r.Groups), len(o.Groups))
}

func compareGroup(a, b string) int {
	da, db := isDigit(a[0]), isDigit(b[0])
	switch {
	case da && db:
		na, _ := strconv.Atoi(a)
		nb, _ := strconv.Atoi(b)
		return cmpInt(na, nb)
	case da:
		return -1
	case db:
		return 1
	}
	return strings.Compare(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSuffix(s, ".")
}

func isGroup(g string) bool {
	if g == "" {
		return false
	}
	digits := isDigit(g[0])
	for i := 0; i < len(g); i++ {
		if digits && !isDigit(g[i]) || !digits && !isLower(g[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func invalidReqNum(s string) error {
	return fmt.Errorf("%w: malformed requirement number %q", domain.ErrInvalidInput, s)
}
