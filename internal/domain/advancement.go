package domain

import "time"

// MeritBadge is a catalog entry / Entrée du catalogue de badges
type MeritBadge struct {
	ID            int64         `json:"id"`
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	EagleRequired bool          `json:"eagle_required"`
	Version       string        `json:"version,omitempty"`
	Requirements  []Requirement `json:"requirements,omitempty"`
}

// Requirement is one numbered requirement of a badge / Exigence numérotée d'un badge
//
// Number is stored in canonical form ("6Aa1").
type Requirement struct {
	ID          int64  `json:"id"`
	BadgeID     int64  `json:"badge_id"`
	Number      string `json:"number"`
	Description string `json:"description"`
	SortKey     string `json:"-"`
}

// ScoutBadge tracks a scout working on a badge / Suivi d'un badge par un scout
type ScoutBadge struct {
	ID          int64
	ScoutID     int64
	BadgeID     int64
	BadgeCode   string
	BadgeName   string
	Counselor   string
	StartedAt   time.Time
	CompletedAt *time.Time
	Completions []RequirementCompletion
}

// IsComplete reports whether the badge was awarded / Indique si le badge est obtenu
func (b *ScoutBadge) IsComplete() bool {
	return b.CompletedAt != nil
}

// RequirementCompletion records a signed-off requirement / Exigence validée
type RequirementCompletion struct {
	ScoutBadgeID  int64
	RequirementID int64
	Number        string
	CompletedAt   time.Time
	RecordedBy    int64
}
