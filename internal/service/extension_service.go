package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
	"github.com/richblaalid/chuckbox/internal/roster"
	"github.com/richblaalid/chuckbox/internal/service/auth"
)

// ExtensionTokenPrefix marks roster extension tokens / Préfixe des tokens de l'extension
const ExtensionTokenPrefix = "cbx_"

// SyncPreview is a staged roster sync shown before confirmation / Aperçu d'une synchro
type SyncPreview struct {
	ID        string            `json:"id"`
	Status    domain.SyncStatus `json:"status"`
	ExpiresAt time.Time         `json:"expires_at"`
	Diff      roster.Diff       `json:"diff"`
	Summary   roster.Summary    `json:"summary"`
}

// syncPayload is what a staged sync stores.
type syncPayload struct {
	Entries []roster.Entry `json:"entries"`
	Diff    roster.Diff    `json:"diff"`
}

// ExtensionService manages extension tokens and staged syncs / Gère tokens et synchros de l'extension
type ExtensionService struct {
	db         ports.TxBeginner
	extensions ports.ExtensionRepository
	scouts     ports.ScoutRepository
	access     *Access
	roster     *RosterService
	conf       *config.Config
	metrics    RosterMetricsRecorder
	now        func() time.Time
}

// NewExtensionService creates the extension service / Crée le service de l'extension
func NewExtensionService(
	db ports.TxBeginner,
	extensions ports.ExtensionRepository,
	scouts ports.ScoutRepository,
	access *Access,
	rosterSvc *RosterService,
	conf *config.Config,
	metrics RosterMetricsRecorder,
) *ExtensionService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ExtensionService{
		db:         db,
		extensions: extensions,
		scouts:     scouts,
		access:     access,
		roster:     rosterSvc,
		conf:       conf,
		metrics:    metrics,
		now:        time.Now,
	}
}

func newExtensionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return ExtensionTokenPrefix + hex.EncodeToString(b), nil
}

// Tokens / Tokens

// CreateExtensionToken issues a token; the plaintext is returned once / Émet un token
func (s *ExtensionService) CreateExtensionToken(ctx context.Context, actor *domain.Membership, name string) (*domain.ExtensionToken, string, error) {
	if !actor.Can(domain.PermissionRosterSync) {
		return nil, "", domain.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Browser extension"
	}
	if len(name) > 100 {
		return nil, "", invalid("token name is limited to 100 characters")
	}

	plain, err := newExtensionToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}
	tok := &domain.ExtensionToken{
		UnitID:    actor.UnitID,
		ProfileID: actor.ProfileID,
		Name:      name,
		TokenHash: auth.HashToken(plain),
		ExpiresAt: s.now().Add(s.conf.Extension.TokenTTL).UTC(),
	}
	if err := s.extensions.CreateToken(ctx, tok); err != nil {
		return nil, "", repoErr("extension token", err)
	}
	slog.Info("extension token created", "unit_id", actor.UnitID, "token_id", tok.ID, "profile_id", actor.ProfileID)
	return tok, plain, nil
}

func (s *ExtensionService) ListExtensionTokens(ctx context.Context, actor *domain.Membership) ([]domain.ExtensionToken, error) {
	if !actor.Can(domain.PermissionRosterSync) {
		return nil, domain.ErrForbidden
	}
	return s.extensions.ListTokens(ctx, actor.UnitID)
}

func (s *ExtensionService) RevokeExtensionToken(ctx context.Context, actor *domain.Membership, tokenID int64) error {
	if !actor.Can(domain.PermissionRosterSync) {
		return domain.ErrForbidden
	}
	if err := s.extensions.RevokeToken(ctx, actor.UnitID, tokenID, s.now()); err != nil {
		return repoErr("extension token", err)
	}
	slog.Info("extension token revoked", "unit_id", actor.UnitID, "token_id", tokenID, "by", actor.ProfileID)
	return nil
}

// AuthenticateExtension resolves a bearer token to its token and creator membership.
// Every failure is ErrInvalidToken.
func (s *ExtensionService) AuthenticateExtension(ctx context.Context, plain string) (*domain.ExtensionToken, *domain.Membership, error) {
	if !strings.HasPrefix(plain, ExtensionTokenPrefix) {
		return nil, nil, ErrInvalidToken
	}
	tok, err := s.extensions.GetTokenByHash(ctx, auth.HashToken(plain))
	if err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load extension token: %w", err)
	}
	now := s.now()
	if !tok.IsActive(now) {
		return nil, nil, ErrInvalidToken
	}

	// The creator may have lost access since the token was issued
	m, err := s.access.Require(ctx, tok.UnitID, tok.ProfileID, domain.PermissionRosterSync)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}

	if err := s.extensions.TouchToken(ctx, tok.ID, now); err != nil {
		slog.Warn("failed to touch extension token", "token_id", tok.ID, "err", err)
	}
	return tok, m, nil
}

// Syncs / Synchros

// StageSync parses a roster snapshot and stores a pending sync / Analyse un instantané et prépare une synchro
func (s *ExtensionService) StageSync(ctx context.Context, tok *domain.ExtensionToken, snapshot io.Reader) (*SyncPreview, error) {
	entries, err := roster.ParseSnapshot(snapshot)
	if err != nil {
		s.metrics.RecordRosterImport(SourceExtension, "invalid")
		return nil, err
	}

	current, err := s.scouts.List(ctx, tok.UnitID, ports.ScoutFilter{IncludeInactive: true})
	if err != nil {
		return nil, fmt.Errorf("list scouts: %w", err)
	}
	payload := syncPayload{Entries: entries, Diff: roster.DiffRoster(current, entries)}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode sync: %w", err)
	}

	now := s.now().UTC()
	sync := &domain.RosterSync{
		ID:        uuid.NewString(),
		UnitID:    tok.UnitID,
		TokenID:   tok.ID,
		Status:    domain.SyncPending,
		Payload:   raw,
		CreatedAt: now,
		ExpiresAt: now.Add(s.conf.Extension.SyncTTL),
	}
	if err := s.extensions.CreateSync(ctx, sync); err != nil {
		return nil, repoErr("roster sync", err)
	}
	s.metrics.RecordRosterImport(SourceExtension, "staged")
	return previewOf(sync, payload, now), nil
}

func previewOf(sync *domain.RosterSync, payload syncPayload, now time.Time) *SyncPreview {
	status := sync.Status
	if sync.IsExpired(now) {
		status = domain.SyncExpired
	}
	return &SyncPreview{
		ID:        sync.ID,
		Status:    status,
		ExpiresAt: sync.ExpiresAt,
		Diff:      payload.Diff,
		Summary:   payload.Diff.Summary(),
	}
}

func (s *ExtensionService) loadSync(ctx context.Context, unitID int64, id string) (*domain.RosterSync, syncPayload, error) {
	var payload syncPayload
	sync, err := s.extensions.GetSync(ctx, unitID, id)
	if err != nil {
		return nil, payload, repoErr("roster sync", err)
	}
	if err := json.Unmarshal(sync.Payload, &payload); err != nil {
		return nil, payload, fmt.Errorf("decode roster sync %s: %w", id, err)
	}
	return sync, payload, nil
}

// GetSync returns a staged sync preview / Retourne l'aperçu d'une synchro
func (s *ExtensionService) GetSync(ctx context.Context, actor *domain.Membership, id string) (*SyncPreview, error) {
	if !actor.Can(domain.PermissionRosterSync) {
		return nil, domain.ErrForbidden
	}
	sync, payload, err := s.loadSync(ctx, actor.UnitID, id)
	if err != nil {
		return nil, err
	}
	return previewOf(sync, payload, s.now()), nil
}

// ConfirmSync applies a pending sync exactly once / Applique une synchro une seule fois
//
// The roster is diffed again at confirmation so edits made after staging are respected.
func (s *ExtensionService) ConfirmSync(ctx context.Context, actor *domain.Membership, id string, deactivateMissing bool) (*ImportResult, error) {
	if !actor.Can(domain.PermissionRosterSync) {
		return nil, domain.ErrForbidden
	}
	sync, payload, err := s.loadSync(ctx, actor.UnitID, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch {
	case sync.Status == domain.SyncApplied:
		return nil, fmt.Errorf("%w: sync already applied", domain.ErrConflict)
	case sync.Status == domain.SyncCancelled:
		return nil, fmt.Errorf("%w: sync was cancelled", domain.ErrConflict)
	case sync.IsExpired(now):
		return nil, domain.ErrSyncExpired
	}

	claim := func(tx *sql.Tx) error {
		ok, err := s.extensions.WithTx(tx).MarkSyncApplied(ctx, actor.UnitID, id, now)
		if err != nil {
			return fmt.Errorf("mark sync applied: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: sync already applied", domain.ErrConflict)
		}
		return nil
	}
	return s.roster.applyImport(ctx, actor.UnitID, payload.Entries, ImportOptions{
		DeactivateMissing: deactivateMissing,
		Source:            SourceExtension,
	}, claim)
}

// ExpireSyncs marks overdue pending syncs expired / Expire les synchros en retard
func (s *ExtensionService) ExpireSyncs(ctx context.Context) (int64, error) {
	return s.extensions.ExpireSyncs(ctx, s.now())
}

// PurgeTokens deletes tokens expired or revoked over a week ago / Supprime les vieux tokens
func (s *ExtensionService) PurgeTokens(ctx context.Context) (int64, error) {
	return s.extensions.PurgeTokens(ctx, s.now().Add(-7*24*time.Hour))
}
