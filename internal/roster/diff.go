package roster

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// FieldChange is one field that differs between the roster and an import.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Update is an existing scout whose data changes / Scout existant modifié
type Update struct {
	ScoutID int64         `json:"scout_id"`
	Name    string        `json:"name"`
	Entry   Entry         `json:"entry"`
	Changes []FieldChange `json:"changes"`
}

// Match names an existing scout / Désigne un scout existant
type Match struct {
	ScoutID int64  `json:"scout_id"`
	Name    string `json:"name"`
}

// Diff is the result of comparing an import with the roster / Résultat de la comparaison
type Diff struct {
	Added     []Entry  `json:"added"`
	Updated   []Update `json:"updated"`
	Unchanged []Match  `json:"unchanged"`
	Missing   []Match  `json:"missing"`
	Skipped   int      `json:"skipped"` // Adults and duplicate rows
}

// Summary counts diff results / Compte les résultats
type Summary struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Missing   int `json:"missing"`
	Skipped   int `json:"skipped"`
}

// Summary returns the diff counts / Retourne les compteurs
func (d *Diff) Summary() Summary {
	return Summary{
		Added:     len(d.Added),
		Updated:   len(d.Updated),
		Unchanged: len(d.Unchanged),
		Missing:   len(d.Missing),
		Skipped:   d.Skipped,
	}
}

// IsEmpty reports whether applying the diff would change nothing.
func (d *Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Missing) == 0
}

// DiffRoster compares incoming youth entries with current scouts / Compare un import avec l'effectif
//
// Entries match by BSA member ID first, across the whole import, then by
// case-insensitive first and last name when neither side has a conflicting
// member ID or birth date. Each scout matches at most once. Missing lists
// active scouts nobody matched.
func DiffRoster(current []domain.Scout, incoming []Entry) Diff {
	var d Diff

	byID := make(map[string]int)
	byName := make(map[string][]int)
	for i, s := range current {
		if s.BSAMemberID != "" {
			byID[s.BSAMemberID] = i
		}
		k := nameKey(s.FirstName, s.LastName)
		byName[k] = append(byName[k], i)
	}

	matched := make(map[int]bool, len(current))
	seenIDs := make(map[string]bool, len(incoming))

	// Drop adults and repeated IDs, then claim scouts by member ID so a
	// name-only row earlier in the file cannot take them.
	var keep []Entry
	claims := make(map[int]int, len(incoming)) // entry -> scout
	for _, e := range incoming {
		if !e.Youth {
			d.Skipped++
			continue
		}
		if e.BSAMemberID != "" {
			if seenIDs[e.BSAMemberID] {
				d.Skipped++
				continue
			}
			seenIDs[e.BSAMemberID] = true
			if i, ok := byID[e.BSAMemberID]; ok {
				claims[len(keep)] = i
				matched[i] = true
			}
		}
		keep = append(keep, e)
	}

	for n, e := range keep {
		idx, ok := claims[n]
		if !ok {
			if idx, ok = matchByName(current, byName, matched, e); !ok {
				d.Added = append(d.Added, e)
				continue
			}
			matched[idx] = true
		}

		s := current[idx]
		if changes := Changes(&s, e); len(changes) > 0 {
			d.Updated = append(d.Updated, Update{ScoutID: s.ID, Name: s.DisplayName(), Entry: e, Changes: changes})
		} else {
			d.Unchanged = append(d.Unchanged, Match{ScoutID: s.ID, Name: s.DisplayName()})
		}
	}

	for i, s := range current {
		if !matched[i] && s.IsActive() {
			d.Missing = append(d.Missing, Match{ScoutID: s.ID, Name: s.DisplayName()})
		}
	}
	slices.SortFunc(d.Missing, func(a, b Match) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ScoutID, b.ScoutID))
	})
	return d
}

func matchByName(current []domain.Scout, byName map[string][]int, matched map[int]bool, e Entry) (int, bool) {
	for _, i := range byName[nameKey(e.FirstName, e.LastName)] {
		if matched[i] {
			continue
		}
		s := current[i]
		if e.BSAMemberID != "" && s.BSAMemberID != "" && s.BSAMemberID != e.BSAMemberID {
			continue
		}
		if e.BirthDate != nil && s.BirthDate != nil && !sameDay(*e.BirthDate, *s.BirthDate) {
			continue
		}
		return i, true
	}
	return 0, false
}

// Changes lists the fields an entry would change on s / Liste les champs modifiés
//
// Blank incoming fields never clear existing data.
func Changes(s *domain.Scout, e Entry) []FieldChange {
	var out []FieldChange
	add := func(field, from, to string) {
		if to != "" && from != to {
			out = append(out, FieldChange{Field: field, From: from, To: to})
		}
	}

	add("bsa_member_id", s.BSAMemberID, e.BSAMemberID)
	add("first_name", s.FirstName, e.FirstName)
	add("last_name", s.LastName, e.LastName)
	add("nickname", s.Nickname, e.Nickname)
	if e.BirthDate != nil && (s.BirthDate == nil || !sameDay(*s.BirthDate, *e.BirthDate)) {
		out = append(out, FieldChange{Field: "birth_date", From: formatDate(s.BirthDate), To: formatDate(e.BirthDate)})
	}
	if e.Patrol != "" && !strings.EqualFold(s.PatrolName, e.Patrol) {
		out = append(out, FieldChange{Field: "patrol", From: s.PatrolName, To: e.Patrol})
	}
	add("rank", s.Rank, e.Rank)
	add("position", s.Position, e.Position)
	if !s.IsActive() {
		out = append(out, FieldChange{Field: "status", From: string(s.Status), To: string(domain.ScoutActive)})
	}
	return out
}

func nameKey(first, last string) string {
	return strings.ToLower(clean(first)) + "|" + strings.ToLower(clean(last))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
