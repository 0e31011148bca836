// Package roster parses external roster exports (CSV, JSON and the browser
// extension's HTML snapshot) and diffs them against a unit's scouts.
package roster

import (
	"fmt"
	"strings"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// Entry is one person from an external roster / Une personne d'un effectif externe
type Entry struct {
	BSAMemberID string     `json:"bsa_member_id,omitempty"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Nickname    string     `json:"nickname,omitempty"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Patrol      string     `json:"patrol,omitempty"`
	Rank        string     `json:"rank,omitempty"`
	Position    string     `json:"position,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Youth       bool       `json:"youth"`
}

// Name returns "First Last" / Retourne "Prénom Nom"
func (e Entry) Name() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// RowError is a problem with one input row / Problème sur une ligne d'entrée
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006"}

// ParseDate accepts YYYY-MM-DD, MM/DD/YYYY and M/D/YYYY / Accepte les formats de date usuels
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: unrecognised date %q", domain.ErrInvalidInput, s)
}

// clean trims and collapses inner whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isYouthType interprets a member type column; blank means youth.
func isYouthType(s string) bool {
	s = strings.ToLower(clean(s))
	if s == "" {
		return true
	}
	return strings.Contains(s, "youth") || strings.Contains(s, "scout") || strings.Contains(s, "cub")
}
