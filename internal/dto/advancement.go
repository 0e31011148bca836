package dto

import (
	"time"

	"github.com/richblaalid/chuckbox/internal/advancement"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/roster"
)

// ScoutBadgeResponse is a scout's work on one badge / Travail d'un scout sur un badge
type ScoutBadgeResponse struct {
	ID          int64                `json:"id"`
	ScoutID     int64                `json:"scout_id"`
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Counselor   string               `json:"counselor,omitempty"`
	StartedAt   time.Time            `json:"started_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	Completions []CompletionResponse `json:"completions"`
}

// CompletionResponse is one signed-off requirement / Une exigence validée
type CompletionResponse struct {
	Number      string    `json:"number"` // Display form / Notation affichée
	CompletedAt time.Time `json:"completed_at"`
	RecordedBy  int64     `json:"recorded_by"`
}

// ScoutBadgeToDTO converts badge progress, numbers in display form / Convertit la progression
func ScoutBadgeToDTO(b *domain.ScoutBadge) *ScoutBadgeResponse {
	out := &ScoutBadgeResponse{
		ID:          b.ID,
		ScoutID:     b.ScoutID,
		Code:        b.BadgeCode,
		Name:        b.BadgeName,
		Counselor:   b.Counselor,
		StartedAt:   b.StartedAt,
		CompletedAt: b.CompletedAt,
		Completions: make([]CompletionResponse, 0, len(b.Completions)),
	}
	for _, c := range b.Completions {
		number := c.Number
		if d, err := advancement.ToDisplay(c.Number); err == nil {
			number = d
		}
		out.Completions = append(out.Completions, CompletionResponse{
			Number:      number,
			CompletedAt: c.CompletedAt,
			RecordedBy:  c.RecordedBy,
		})
	}
	return out
}

// StartBadgeRequest opens a badge for a scout / Ouvre un badge pour un scout
type StartBadgeRequest struct {
	Code      string `json:"code"`
	Counselor string `json:"counselor"`
}

// RequirementRequest signs off a requirement in either notation / Valide une exigence
type RequirementRequest struct {
	Number      string `json:"number"`
	CompletedAt string `json:"completed_at"`
}

// Date parses the optional completion date / Analyse la date facultative
func (r RequirementRequest) Date() (*time.Time, error) {
	return roster.ParseDate(r.CompletedAt)
}

// CompleteBadgeRequest finishes a badge / Termine un badge
type CompleteBadgeRequest struct {
	Force bool `json:"force"`
}
