package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
	"github.com/richblaalid/chuckbox/internal/service/auth"
)

// NewUnit is the unit creation form / Formulaire de création d'unité
type NewUnit struct {
	Name    string
	Type    string
	Number  string
	Council string
}

// UnitService manages units, memberships and invites / Gère unités, adhésions et invitations
type UnitService struct {
	db       ports.TxBeginner
	units    ports.UnitRepository
	members  ports.MembershipRepository
	profiles ports.ProfileReader
	mailer   *Mailer
	conf     *config.Config
	now      func() time.Time
}

// NewUnitService creates the unit service / Crée le service des unités
func NewUnitService(
	db ports.TxBeginner,
	units ports.UnitRepository,
	members ports.MembershipRepository,
	profiles ports.ProfileReader,
	mailer *Mailer,
	conf *config.Config,
) *UnitService {
	return &UnitService{
		db:       db,
		units:    units,
		members:  members,
		profiles: profiles,
		mailer:   mailer,
		conf:     conf,
		now:      time.Now,
	}
}

// CreateUnit creates a unit with its creator as admin / Crée une unité dont le créateur est admin
func (s *UnitService) CreateUnit(ctx context.Context, profileID int64, in NewUnit) (*domain.Unit, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 200 {
		return nil, invalid("unit name is required and limited to 200 characters")
	}
	unitType, err := domain.ParseUnitType(in.Type)
	if err != nil {
		return nil, err
	}

	unit := &domain.Unit{
		Name:    name,
		Type:    unitType,
		Number:  strings.TrimSpace(in.Number),
		Council: strings.TrimSpace(in.Council),
		Fees: domain.FeeSettings{
			PercentBps:  s.conf.Fees.PercentBps,
			FixedCents:  s.conf.Fees.FixedCents,
			PassToPayer: s.conf.Fees.PassToPayer,
		},
	}

	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.units.WithTx(tx).Create(ctx, unit); err != nil {
			return repoErr("unit", err)
		}
		return repoErr("membership", s.members.WithTx(tx).Upsert(ctx, &domain.Membership{
			UnitID:    unit.ID,
			ProfileID: profileID,
			Role:      domain.RoleAdmin,
		}))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("unit created", "unit_id", unit.ID, "profile_id", profileID)
	return unit, nil
}

// ListMyUnits lists the units a profile belongs to / Liste les unités d'un profil
func (s *UnitService) ListMyUnits(ctx context.Context, profileID int64) ([]ports.UnitMembership, error) {
	units, err := s.units.ListForProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

func (s *UnitService) GetUnit(ctx context.Context, unitID int64) (*domain.Unit, error) {
	u, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return nil, repoErr("unit", err)
	}
	return u, nil
}

// UpdateFeeSettings stores card fee settings and the Square location / Enregistre les frais et l'emplacement Square
func (s *UnitService) UpdateFeeSettings(ctx context.Context, actor *domain.Membership, fees domain.FeeSettings, squareLocationID string) (*domain.Unit, error) {
	if !actor.Can(domain.PermissionFinanceSettings) {
		return nil, domain.ErrForbidden
	}
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	if err := s.units.UpdateSettings(ctx, actor.UnitID, fees, strings.TrimSpace(squareLocationID)); err != nil {
		return nil, repoErr("unit", err)
	}
	return s.GetUnit(ctx, actor.UnitID)
}

func (s *UnitService) ListMembers(ctx context.Context, unitID int64) ([]domain.Membership, error) {
	members, err := s.members.List(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// InviteMember creates an invite and emails its link; the plaintext token is returned once.
func (s *UnitService) InviteMember(ctx context.Context, actor *domain.Membership, email string, role domain.Role) (*domain.Invite, string, error) {
	if !actor.Can(domain.PermissionMembersManage) {
		return nil, "", domain.ErrForbidden
	}
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		return nil, "", invalid("invalid email format")
	}
	if !role.IsValid() {
		return nil, "", invalid("unknown role %q", role)
	}

	token, err := auth.GenerateSecureToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate invite token: %w", err)
	}
	ttl := s.conf.Auth.InviteTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	inv := &domain.Invite{
		UnitID:    actor.UnitID,
		Email:     email,
		Role:      role,
		TokenHash: auth.HashToken(token),
		ExpiresAt: s.now().Add(ttl),
		InvitedBy: actor.ProfileID,
	}
	if err := s.members.CreateInvite(ctx, inv); err != nil {
		return nil, "", repoErr("invite", err)
	}

	unit, err := s.GetUnit(ctx, actor.UnitID)
	if err != nil {
		return nil, "", err
	}
	inviter := actor.Name
	if inviter == "" {
		inviter = "A unit admin"
	}
	if s.mailer != nil {
		s.mailer.SendAsync(TemplateInvite, email, inviteEmail{
			Email:       email,
			UnitName:    unit.DisplayName(),
			InviterName: inviter,
			Role:        string(role),
			AcceptURL:   fmt.Sprintf("%s/invites/accept?token=%s", s.conf.Server.FrontendURL, url.QueryEscape(token)),
			ExpiresAt:   inv.ExpiresAt.Format("January 2, 2006"),
		})
	}
	return inv, token, nil
}

// AcceptInvite joins the unit named by an invite token / Rejoint l'unité de l'invitation
func (s *UnitService) AcceptInvite(ctx context.Context, profileID int64, token string) (*domain.Membership, error) {
	if token == "" {
		return nil, invalid("invite token is required")
	}
	inv, err := s.members.GetInviteByHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load invite: %w", err)
	}
	if !inv.IsUsable(s.now()) {
		return nil, ErrInvalidToken
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, ErrProfileNotFound
	}
	if normalizeEmail(profile.Email) != inv.Email {
		return nil, fmt.Errorf("%w: invite was sent to a different email", domain.ErrForbidden)
	}

	m := &domain.Membership{UnitID: inv.UnitID, ProfileID: profileID, Role: inv.Role}
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		members := s.members.WithTx(tx)
		if err := members.MarkInviteAccepted(ctx, inv.ID, s.now()); err != nil {
			if errors.Is(err, repository.ErrNoRecord) {
				return ErrInvalidToken
			}
			return err
		}
		return repoErr("membership", members.Upsert(ctx, m))
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ChangeRole moves a member to a new role, keeping at least one admin.
func (s *UnitService) ChangeRole(ctx context.Context, actor *domain.Membership, membershipID int64, role domain.Role) (*domain.Membership, error) {
	var target *domain.Membership
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		members := s.members.WithTx(tx)
		var err error
		target, err = members.GetByID(ctx, actor.UnitID, membershipID)
		if err != nil {
			return repoErr("membership", err)
		}
		admins, err := members.CountActiveAdmins(ctx, actor.UnitID)
		if err != nil {
			return err
		}
		if err := domain.CheckRoleChange(actor, target, role, admins); err != nil {
			return err
		}
		if err := members.UpdateRole(ctx, actor.UnitID, membershipID, role); err != nil {
			return repoErr("membership", err)
		}
		target.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("member role changed", "unit_id", actor.UnitID, "membership_id", membershipID, "role", role, "by", actor.ProfileID)
	return target, nil
}

// RemoveMember deactivates a membership, keeping at least one admin.
func (s *UnitService) RemoveMember(ctx context.Context, actor *domain.Membership, membershipID int64) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		members := s.members.WithTx(tx)
		target, err := members.GetByID(ctx, actor.UnitID, membershipID)
		if err != nil {
			return repoErr("membership", err)
		}
		admins, err := members.CountActiveAdmins(ctx, actor.UnitID)
		if err != nil {
			return err
		}
		if err := domain.CheckRemoval(actor, target, admins); err != nil {
			return err
		}
		return repoErr("membership", members.Deactivate(ctx, actor.UnitID, membershipID))
	})
}

// PurgeExpiredInvites deletes invites past expiry / Supprime les invitations expirées
func (s *UnitService) PurgeExpiredInvites(ctx context.Context) error {
	n, err := s.members.PurgeExpiredInvites(ctx, s.now())
	if err != nil {
		return fmt.Errorf("purge invites: %w", err)
	}
	if n > 0 {
		slog.Info("expired invites purged", "count", n)
	}
	return nil
}
