package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/richblaalid/chuckbox/internal/domain"
)

type column int

const (
	colMemberID column = iota
	colFirstName
	colLastName
	colNickname
	colBirthDate
	colPatrol
	colRank
	colPosition
	colEmail
	colPhone
	colMemberType
)

// headerAliases maps normalised header text to columns.
var headerAliases = map[string]column{
	"bsamemberid": colMemberID,
	"memberid":    colMemberID,
	"bsaid":       colMemberID,
	"firstname":   colFirstName,
	"first":       colFirstName,
	"lastname":    colLastName,
	"last":        colLastName,
	"nickname":    colNickname,
	"dateofbirth": colBirthDate,
	"dob":         colBirthDate,
	"birthdate":   colBirthDate,
	"patrol":      colPatrol,
	"den":         colPatrol,
	"rank":        colRank,
	"position":    colPosition,
	"email":       colEmail,
	"phone":       colPhone,
	"membertype":  colMemberType,
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseCSV reads a roster export with a header row / Lit un export d'effectif avec en-tête
//
// Row problems are collected with their 1-based line number; the returned
// error is reserved for unreadable input or unusable headers.
func ParseCSV(r io.Reader) ([]Entry, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: empty roster file", domain.ErrInvalidInput)
		}
		return nil, nil, fmt.Errorf("%w: read header: %w", domain.ErrInvalidInput, err)
	}

	cols := make(map[column]int)
	for i, h := range header {
		if c, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	if _, ok := cols[colFirstName]; !ok {
		return nil, nil, fmt.Errorf("%w: missing First Name column", domain.ErrInvalidInput)
	}
	if _, ok := cols[colLastName]; !ok {
		return nil, nil, fmt.Errorf("%w: missing Last Name column", domain.ErrInvalidInput)
	}

	var (
		entries []Entry
		rowErrs []RowError
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rowErrs = append(rowErrs, RowError{Line: pe.StartLine, Message: pe.Err.Error()})
				continue
			}
			return nil, nil, err
		}
		line, _ := cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}

		get := func(c column) string {
			i, ok := cols[c]
			if !ok || i >= len(rec) {
				return ""
			}
			return clean(rec[i])
		}

		e := Entry{
			BSAMemberID: get(colMemberID),
			FirstName:   get(colFirstName),
			LastName:    get(colLastName),
			Nickname:    get(colNickname),
			Patrol:      get(colPatrol),
			Rank:        get(colRank),
			Position:    get(colPosition),
			Email:       strings.ToLower(get(colEmail)),
			Phone:       get(colPhone),
			Youth:       isYouthType(get(colMemberType)),
		}
		if e.FirstName == "" || e.LastName == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Message: "first and last name are required"})
			continue
		}
		bd, err := ParseDate(get(colBirthDate))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Message: err.Error()})
			continue
		}
		e.BirthDate = bd
		entries = append(entries, e)
	}
	return entries, rowErrs, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
