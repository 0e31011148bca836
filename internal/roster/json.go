package roster

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// jsonRow mirrors the CSV columns for JSON uploads.
type jsonRow struct {
	BSAMemberID string `json:"bsa_member_id"`
	MemberID    string `json:"member_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Nickname    string `json:"nickname"`
	BirthDate   string `json:"birth_date"`
	DOB         string `json:"dob"`
	Patrol      string `json:"patrol"`
	Den         string `json:"den"`
	Rank        string `json:"rank"`
	Position    string `json:"position"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	MemberType  string `json:"member_type"`
}

// ParseJSON reads an array of roster objects / Lit un tableau d'objets d'effectif
//
// RowError.Line is the 1-based position of the object in the array.
func ParseJSON(r io.Reader) ([]Entry, []RowError, error) {
	var rows []jsonRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, nil, fmt.Errorf("%w: decode roster: %w", domain.ErrInvalidInput, err)
	}

	var (
		entries []Entry
		rowErrs []RowError
	)
	for i, row := range rows {
		e := Entry{
			BSAMemberID: clean(firstNonEmpty(row.BSAMemberID, row.MemberID)),
			FirstName:   clean(row.FirstName),
			LastName:    clean(row.LastName),
			Nickname:    clean(row.Nickname),
			Patrol:      clean(firstNonEmpty(row.Patrol, row.Den)),
			Rank:        clean(row.Rank),
			Position:    clean(row.Position),
			Email:       strings.ToLower(clean(row.Email)),
			Phone:       clean(row.Phone),
			Youth:       isYouthType(row.MemberType),
		}
		if e.FirstName == "" && e.LastName == "" && e.BSAMemberID == "" {
			continue
		}
		if e.FirstName == "" || e.LastName == "" {
			rowErrs = append(rowErrs, RowError{Line: i + 1, Message: "first and last name are required"})
			continue
		}
		bd, err := ParseDate(firstNonEmpty(row.BirthDate, row.DOB))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: i + 1, Message: err.Error()})
			continue
		}
		e.BirthDate = bd
		entries = append(entries, e)
	}
	return entries, rowErrs, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
