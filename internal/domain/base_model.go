package domain

import "time"

// BaseModel carries the timestamps shared by profiles, units and scouts
// Horodatages communs aux profils, unités et scouts
type BaseModel struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	// DeletedAt is set when the row is soft-deleted (deactivated scouts) / Suppression logique
	DeletedAt *time.Time
}

