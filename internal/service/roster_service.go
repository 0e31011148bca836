package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
	"github.com/richblaalid/chuckbox/internal/roster"
)

// Roster import sources / Sources d'import
const (
	SourceCSV       = "csv"
	SourceJSON      = "json"
	SourceExtension = "extension"
)

// ScoutInput is the scout form / Formulaire d'un scout
type ScoutInput struct {
	BSAMemberID string
	FirstName   string
	LastName    string
	Nickname    string
	BirthDate   *time.Time
	PatrolID    *int64
	Rank        string
	Position    string
}

// ImportOptions controls how an import is applied / Contrôle l'application d'un import
type ImportOptions struct {
	DeactivateMissing bool
	DryRun            bool
	Source            string
}

// ImportResult reports an applied or previewed import / Résultat d'un import
type ImportResult struct {
	Diff           roster.Diff       `json:"diff"`
	Summary        roster.Summary    `json:"summary"`
	DryRun         bool              `json:"dry_run"`
	PatrolsCreated []string          `json:"patrols_created,omitempty"`
	RowErrors      []roster.RowError `json:"row_errors,omitempty"`
}

// RosterService manages scouts, patrols, guardians and imports / Gère scouts, patrouilles et imports
type RosterService struct {
	db       ports.TxBeginner
	scouts   ports.ScoutRepository
	finance  ports.FinanceRepository
	members  ports.MembershipRepository
	profiles ports.ProfileReader
	access   *Access
	metrics  RosterMetricsRecorder
}

// NewRosterService creates the roster service / Crée le service d'effectif
func NewRosterService(
	db ports.TxBeginner,
	scouts ports.ScoutRepository,
	fin ports.FinanceRepository,
	members ports.MembershipRepository,
	profiles ports.ProfileReader,
	access *Access,
	metrics RosterMetricsRecorder,
) *RosterService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RosterService{
		db:       db,
		scouts:   scouts,
		finance:  fin,
		members:  members,
		profiles: profiles,
		access:   access,
		metrics:  metrics,
	}
}

func validateScout(in *ScoutInput) error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.BSAMemberID = strings.TrimSpace(in.BSAMemberID)
	if in.FirstName == "" || in.LastName == "" {
		return invalid("first and last name are required")
	}
	if len(in.FirstName) > 100 || len(in.LastName) > 100 || len(in.Nickname) > 100 {
		return invalid("names are limited to 100 characters")
	}
	if in.BirthDate != nil && in.BirthDate.After(time.Now()) {
		return invalid("birth date is in the future")
	}
	return nil
}

// checkPatrol verifies a patrol belongs to the unit.
func (s *RosterService) checkPatrol(ctx context.Context, scouts ports.ScoutRepository, unitID int64, patrolID *int64) error {
	if patrolID == nil {
		return nil
	}
	patrols, err := scouts.ListPatrols(ctx, unitID)
	if err != nil {
		return fmt.Errorf("list patrols: %w", err)
	}
	for _, p := range patrols {
		if p.ID == *patrolID {
			return nil
		}
	}
	return invalid("patrol %d does not exist", *patrolID)
}

// Scouts / Scouts

// CreateScout adds a scout and opens their account / Ajoute un scout et ouvre son compte
func (s *RosterService) CreateScout(ctx context.Context, actor *domain.Membership, in ScoutInput) (*domain.Scout, error) {
	if !actor.Can(domain.PermissionRosterWrite) {
		return nil, domain.ErrForbidden
	}
	if err := validateScout(&in); err != nil {
		return nil, err
	}

	scout := &domain.Scout{
		UnitID:      actor.UnitID,
		PatrolID:    in.PatrolID,
		BSAMemberID: in.BSAMemberID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Nickname:    in.Nickname,
		BirthDate:   in.BirthDate,
		Rank:        strings.TrimSpace(in.Rank),
		Position:    strings.TrimSpace(in.Position),
		Status:      domain.ScoutActive,
	}
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		scouts := s.scouts.WithTx(tx)
		if err := s.checkPatrol(ctx, scouts, actor.UnitID, in.PatrolID); err != nil {
			return err
		}
		if err := scouts.Create(ctx, scout); err != nil {
			return repoErr("scout", err)
		}
		if _, err := s.finance.WithTx(tx).CreateAccount(ctx, actor.UnitID, scout.ID); err != nil {
			return repoErr("scout account", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("scout created", "unit_id", actor.UnitID, "scout_id", scout.ID)
	return scout, nil
}

// UpdateScout replaces a scout's details / Remplace les informations d'un scout
func (s *RosterService) UpdateScout(ctx context.Context, actor *domain.Membership, scoutID int64, in ScoutInput) (*domain.Scout, error) {
	if !actor.Can(domain.PermissionRosterWrite) {
		return nil, domain.ErrForbidden
	}
	if err := validateScout(&in); err != nil {
		return nil, err
	}
	scout, err := s.scouts.GetByID(ctx, actor.UnitID, scoutID)
	if err != nil {
		return nil, repoErr("scout", err)
	}
	if err := s.checkPatrol(ctx, s.scouts, actor.UnitID, in.PatrolID); err != nil {
		return nil, err
	}

	scout.PatrolID = in.PatrolID
	scout.BSAMemberID = in.BSAMemberID
	scout.FirstName = in.FirstName
	scout.LastName = in.LastName
	scout.Nickname = in.Nickname
	scout.BirthDate = in.BirthDate
	scout.Rank = strings.TrimSpace(in.Rank)
	scout.Position = strings.TrimSpace(in.Position)
	if err := s.scouts.Update(ctx, scout); err != nil {
		return nil, repoErr("scout", err)
	}
	return s.scouts.GetByID(ctx, actor.UnitID, scoutID)
}

// DeactivateScout removes a scout from the active roster / Retire un scout de l'effectif actif
func (s *RosterService) DeactivateScout(ctx context.Context, actor *domain.Membership, scoutID int64) error {
	if !actor.Can(domain.PermissionRosterWrite) {
		return domain.ErrForbidden
	}
	if err := s.scouts.SetStatus(ctx, actor.UnitID, scoutID, domain.ScoutInactive); err != nil {
		return repoErr("scout", err)
	}
	slog.Info("scout deactivated", "unit_id", actor.UnitID, "scout_id", scoutID, "by", actor.ProfileID)
	return nil
}

// GetScout returns a scout visible to the actor / Retourne un scout visible
func (s *RosterService) GetScout(ctx context.Context, actor *domain.Membership, scoutID int64) (*domain.Scout, error) {
	if err := s.access.CanAccessScout(ctx, actor, scoutID, domain.PermissionRosterRead, domain.PermissionUnitRead); err != nil {
		return nil, err
	}
	scout, err := s.scouts.GetByID(ctx, actor.UnitID, scoutID)
	if err != nil {
		return nil, repoErr("scout", err)
	}
	return scout, nil
}

// ListScouts lists scouts; guardians only see their own / Liste les scouts visibles
func (s *RosterService) ListScouts(ctx context.Context, actor *domain.Membership, includeInactive bool, patrolID *int64) ([]domain.Scout, error) {
	visible, err := s.access.VisibleScouts(ctx, actor, domain.PermissionRosterRead)
	if err != nil {
		return nil, err
	}
	scouts, err := s.scouts.List(ctx, actor.UnitID, ports.ScoutFilter{
		IncludeInactive: includeInactive,
		PatrolID:        patrolID,
		IDs:             visible,
	})
	if err != nil {
		return nil, fmt.Errorf("list scouts: %w", err)
	}
	return scouts, nil
}

// Guardians / Tuteurs

// AddGuardian links a unit member to a scout / Lie un membre de l'unité à un scout
func (s *RosterService) AddGuardian(ctx context.Context, actor *domain.Membership, scoutID int64, email, relationship string) (*domain.Guardian, error) {
	if !actor.Can(domain.PermissionRosterWrite) {
		return nil, domain.ErrForbidden
	}
	relationship = strings.TrimSpace(relationship)
	if relationship == "" {
		relationship = "parent"
	}
	if _, err := s.scouts.GetByID(ctx, actor.UnitID, scoutID); err != nil {
		return nil, repoErr("scout", err)
	}

	profile, err := s.profiles.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, invalid("no account uses that email; invite them to the unit first")
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	m, err := s.members.Get(ctx, actor.UnitID, profile.ID)
	if err != nil || !m.IsActive() {
		return nil, invalid("%s is not a member of this unit", profile.Email)
	}

	g := &domain.Guardian{ScoutID: scoutID, ProfileID: profile.ID, Relationship: relationship}
	if err := s.scouts.AddGuardian(ctx, g); err != nil {
		return nil, repoErr("guardian", err)
	}
	g.Email = profile.Email
	g.Name = profile.FullName()
	return g, nil
}

// ListGuardians lists a scout's guardians / Liste les tuteurs d'un scout
func (s *RosterService) ListGuardians(ctx context.Context, actor *domain.Membership, scoutID int64) ([]domain.Guardian, error) {
	if _, err := s.GetScout(ctx, actor, scoutID); err != nil {
		return nil, err
	}
	return s.scouts.ListGuardians(ctx, []int64{scoutID})
}

// Patrols / Patrouilles

func (s *RosterService) CreatePatrol(ctx context.Context, actor *domain.Membership, name string) (*domain.Patrol, error) {
	if !actor.Can(domain.PermissionRosterWrite) {
		return nil, domain.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, invalid("patrol name is required and limited to 100 characters")
	}
	p := &domain.Patrol{UnitID: actor.UnitID, Name: name}
	if err := s.scouts.CreatePatrol(ctx, p); err != nil {
		return nil, repoErr("patrol", err)
	}
	return p, nil
}

func (s *RosterService) ListPatrols(ctx context.Context, actor *domain.Membership) ([]domain.Patrol, error) {
	if !actor.Can(domain.PermissionUnitRead) {
		return nil, domain.ErrForbidden
	}
	return s.scouts.ListPatrols(ctx, actor.UnitID)
}

// DeletePatrol removes a patrol; its scouts stay unassigned / Supprime une patrouille
func (s *RosterService) DeletePatrol(ctx context.Context, actor *domain.Membership, patrolID int64) error {
	if !actor.Can(domain.PermissionRosterWrite) {
		return domain.ErrForbidden
	}
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		return repoErr("patrol", s.scouts.WithTx(tx).DeletePatrol(ctx, actor.UnitID, patrolID))
	})
}

// Imports / Imports

// ParseImport reads a CSV or JSON roster export / Lit un export CSV ou JSON
func ParseImport(format string, r io.Reader) ([]roster.Entry, []roster.RowError, error) {
	switch strings.ToLower(format) {
	case SourceCSV, "text/csv":
		return roster.ParseCSV(r)
	case SourceJSON, "application/json":
		return roster.ParseJSON(r)
	}
	return nil, nil, invalid("unsupported roster format %q", format)
}

// ImportRoster applies an external roster to the unit / Applique un effectif externe
func (s *RosterService) ImportRoster(ctx context.Context, actor *domain.Membership, entries []roster.Entry, opts ImportOptions) (*ImportResult, error) {
	if !actor.Can(domain.PermissionRosterWrite) {
		return nil, domain.ErrForbidden
	}
	if opts.Source == "" {
		opts.Source = SourceCSV
	}
	return s.applyImport(ctx, actor.UnitID, entries, opts, nil)
}

// applyImport diffs and applies entries in one transaction / Compare et applique en une transaction
//
// claim, when set, runs first in the same transaction.
func (s *RosterService) applyImport(ctx context.Context, unitID int64, entries []roster.Entry, opts ImportOptions, claim func(tx *sql.Tx) error) (*ImportResult, error) {
	result := &ImportResult{DryRun: opts.DryRun}

	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if claim != nil {
			if err := claim(tx); err != nil {
				return err
			}
		}
		scouts := s.scouts.WithTx(tx)
		fin := s.finance.WithTx(tx)

		current, err := scouts.List(ctx, unitID, ports.ScoutFilter{IncludeInactive: true})
		if err != nil {
			return fmt.Errorf("list scouts: %w", err)
		}
		result.Diff = roster.DiffRoster(current, entries)
		result.Summary = result.Diff.Summary()
		if opts.DryRun {
			return nil
		}

		patrols := &patrolResolver{ctx: ctx, repo: scouts, unitID: unitID}
		if err := patrols.load(); err != nil {
			return err
		}

		for _, e := range result.Diff.Added {
			scout := &domain.Scout{UnitID: unitID, Status: domain.ScoutActive}
			if err := mergeEntry(scout, e, patrols); err != nil {
				return err
			}
			if err := scouts.Create(ctx, scout); err != nil {
				return repoErr(fmt.Sprintf("scout %s", e.Name()), err)
			}
			if _, err := fin.CreateAccount(ctx, unitID, scout.ID); err != nil {
				return repoErr("scout account", err)
			}
		}

		byID := make(map[int64]domain.Scout, len(current))
		for _, sc := range current {
			byID[sc.ID] = sc
		}
		for _, u := range result.Diff.Updated {
			scout := byID[u.ScoutID]
			if err := mergeEntry(&scout, u.Entry, patrols); err != nil {
				return err
			}
			if err := scouts.Update(ctx, &scout); err != nil {
				return repoErr(fmt.Sprintf("scout %s", u.Name), err)
			}
			if !scout.IsActive() {
				if err := scouts.SetStatus(ctx, unitID, scout.ID, domain.ScoutActive); err != nil {
					return repoErr("scout", err)
				}
			}
		}

		if opts.DeactivateMissing {
			for _, m := range result.Diff.Missing {
				if err := scouts.SetStatus(ctx, unitID, m.ScoutID, domain.ScoutInactive); err != nil {
					return repoErr("scout", err)
				}
			}
		}
		result.PatrolsCreated = patrols.created
		return nil
	})
	if err != nil {
		s.metrics.RecordRosterImport(opts.Source, "error")
		return nil, err
	}

	outcome := "applied"
	if opts.DryRun {
		outcome = "preview"
	}
	s.metrics.RecordRosterImport(opts.Source, outcome)
	slog.Info("roster import", "unit_id", unitID, "source", opts.Source, "dry_run", opts.DryRun,
		"added", result.Summary.Added, "updated", result.Summary.Updated, "missing", result.Summary.Missing)
	return result, nil
}

// mergeEntry copies non-blank entry fields onto a scout / Copie les champs renseignés
func mergeEntry(s *domain.Scout, e roster.Entry, patrols *patrolResolver) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.BSAMemberID, e.BSAMemberID)
	set(&s.FirstName, e.FirstName)
	set(&s.LastName, e.LastName)
	set(&s.Nickname, e.Nickname)
	set(&s.Rank, e.Rank)
	set(&s.Position, e.Position)
	if e.BirthDate != nil {
		s.BirthDate = e.BirthDate
	}
	if e.Patrol != "" {
		id, err := patrols.resolve(e.Patrol)
		if err != nil {
			return err
		}
		s.PatrolID = &id
		s.PatrolName = e.Patrol
	}
	return nil
}

// patrolResolver maps patrol names to IDs, creating missing patrols.
type patrolResolver struct {
	ctx     context.Context
	repo    ports.ScoutRepository
	unitID  int64
	byName  map[string]int64
	created []string
}

func (r *patrolResolver) load() error {
	patrols, err := r.repo.ListPatrols(r.ctx, r.unitID)
	if err != nil {
		return fmt.Errorf("list patrols: %w", err)
	}
	r.byName = make(map[string]int64, len(patrols))
	for _, p := range patrols {
		r.byName[strings.ToLower(p.Name)] = p.ID
	}
	return nil
}

func (r *patrolResolver) resolve(name string) (int64, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := r.byName[key]; ok {
		return id, nil
	}
	p := &domain.Patrol{UnitID: r.unitID, Name: strings.TrimSpace(name)}
	if err := r.repo.CreatePatrol(r.ctx, p); err != nil {
		return 0, repoErr("patrol", err)
	}
	r.byName[key] = p.ID
	r.created = append(r.created, p.Name)
	return p.ID, nil
}
