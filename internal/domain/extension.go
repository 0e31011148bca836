package domain

import "time"

// ExtensionToken authorizes the roster browser extension / Autorise l'extension navigateur
type ExtensionToken struct {
	ID         int64
	UnitID     int64
	ProfileID  int64
	Name       string
	TokenHash  string
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// IsActive reports whether the token can be used at now / Indique si le token est utilisable
func (t *ExtensionToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// SyncStatus is the state of a staged roster sync / État d'une synchro d'effectif
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncApplied   SyncStatus = "applied"
	SyncExpired   SyncStatus = "expired"
	SyncCancelled SyncStatus = "cancelled"
)

// RosterSync is a staged import waiting for confirmation / Import en attente de confirmation
type RosterSync struct {
	ID        string
	UnitID    int64
	TokenID   int64
	Status    SyncStatus
	Payload   []byte // JSON encoded entries and preview
	CreatedAt time.Time
	ExpiresAt time.Time
	AppliedAt *time.Time
}

// IsExpired reports whether the sync can no longer be confirmed / Indique si la synchro a expiré
func (s *RosterSync) IsExpired(now time.Time) bool {
	return s.Status == SyncExpired || (s.Status == SyncPending && !now.Before(s.ExpiresAt))
}
