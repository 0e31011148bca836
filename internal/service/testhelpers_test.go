package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/richblaalid/chuckbox/internal/cache"
	"github.com/richblaalid/chuckbox/internal/config"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/mocks"
	"github.com/richblaalid/chuckbox/internal/repository"
	"github.com/richblaalid/chuckbox/internal/repository/sqlitetest"
)

func newTestMailer(t *testing.T) (*Mailer, *mocks.MockEmailSender) {
	t.Helper()
	sender := mocks.NewMockEmailSender()
	mailer, err := NewMailer(sender, nil)
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	return mailer, sender
}

// testEnv wires every unit-scoped service on a migrated SQLite database.
type testEnv struct {
	t       *testing.T
	ctx     context.Context
	db      *sql.DB
	repos   *repository.Adapter
	conf    *config.Config
	sender  *mocks.MockEmailSender
	mailer  *Mailer
	metrics *mocks.MockMetrics
	gateway *mocks.MockPaymentGateway
	cache   *cache.Memory

	access      *Access
	units       *UnitService
	notifier    *BillingNotifier
	ledger      *LedgerService
	payments    *PaymentService
	roster      *RosterService
	extensions  *ExtensionService
	advancement *AdvancementService

	admin *domain.Profile
	unit  *domain.Unit
	actor *domain.Membership // Unit admin
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := sqlitetest.NewDB(t)
	repos := repository.NewAdapter(database, "sqlite")
	conf := testAuthConfig()
	mailer, sender := newTestMailer(t)
	m := mocks.NewMockMetrics()

	e := &testEnv{
		t:       t,
		ctx:     context.Background(),
		db:      database,
		repos:   repos,
		conf:    conf,
		sender:  sender,
		mailer:  mailer,
		metrics: m,
		gateway: mocks.NewMockPaymentGateway(),
		cache:   cache.NewMemory(),
	}

	scouts := repos.ScoutRepository()
	fin := repos.FinanceRepository()
	e.access = NewAccess(repos.MembershipRepository(), scouts)
	e.units = NewUnitService(database, repos.UnitRepository(), repos.MembershipRepository(), repos.ProfileRepository(), mailer, conf)
	e.notifier = NewBillingNotifier(repos.UnitRepository(), scouts, fin, mailer, conf)
	e.ledger = NewLedgerService(database, fin, scouts, e.access, e.notifier, m)
	e.payments = NewPaymentService(e.gateway, e.ledger, repos.UnitRepository(), fin, e.access, mailer, m)
	e.roster = NewRosterService(database, scouts, fin, repos.MembershipRepository(), repos.ProfileRepository(), e.access, m)
	e.extensions = NewExtensionService(database, repos.ExtensionRepository(), scouts, e.access, e.roster, conf, m)
	e.advancement = NewAdvancementService(database, repos.AdvancementRepository(), scouts, e.cache, conf.Cache.TTL, m)

	e.admin = e.profile("admin@troop42.test", "Alex", "Admin")
	unit, err := e.units.CreateUnit(e.ctx, e.admin.ID, NewUnit{Name: "Troop 42", Type: "troop", Number: "42", Council: "Pacific Skyline"})
	require.NoError(t, err)
	e.unit = unit
	e.actor = e.membership(e.admin.ID)

	t.Cleanup(func() {
		e.notifier.Wait()
		e.mailer.Wait()
	})
	return e
}

func (e *testEnv) profile(email, first, last string) *domain.Profile {
	e.t.Helper()
	p, err := e.repos.ProfileRepository().Create(e.ctx, &domain.Profile{
		Email:         email,
		Password:      "hashed",
		FirstName:     first,
		LastName:      last,
		EmailVerified: true,
	})
	require.NoError(e.t, err)
	return p
}

func (e *testEnv) membership(profileID int64) *domain.Membership {
	e.t.Helper()
	m, err := e.access.Membership(e.ctx, e.unit.ID, profileID)
	require.NoError(e.t, err)
	return m
}

// member adds a profile to the unit with role / Ajoute un profil à l'unité
func (e *testEnv) member(email string, role domain.Role) (*domain.Profile, *domain.Membership) {
	e.t.Helper()
	p := e.profile(email, "Pat", fmt.Sprintf("%s-%d", role, len(email)))
	require.NoError(e.t, e.repos.MembershipRepository().Upsert(e.ctx, &domain.Membership{UnitID: e.unit.ID, ProfileID: p.ID, Role: role}))
	return p, e.membership(p.ID)
}

// scout creates a scout with an account / Crée un scout avec son compte
func (e *testEnv) scout(first, last string) (*domain.Scout, *domain.ScoutAccount) {
	e.t.Helper()
	s, err := e.roster.CreateScout(e.ctx, e.actor, ScoutInput{FirstName: first, LastName: last})
	require.NoError(e.t, err)
	return s, e.account(s.ID)
}

func (e *testEnv) account(scoutID int64) *domain.ScoutAccount {
	e.t.Helper()
	acct, err := e.repos.FinanceRepository().GetAccountByScout(e.ctx, e.unit.ID, scoutID)
	require.NoError(e.t, err)
	return acct
}

func (e *testEnv) guardian(scoutID int64, p *domain.Profile) {
	e.t.Helper()
	_, err := e.roster.AddGuardian(e.ctx, e.actor, scoutID, p.Email, "parent")
	require.NoError(e.t, err)
}

// requireReconciled asserts the cached balances match the journal.
func (e *testEnv) requireReconciled() {
	e.t.Helper()
	report, err := e.ledger.Reconcile(e.ctx, e.actor)
	require.NoError(e.t, err)
	require.True(e.t, report.OK(), "reconciliation: %+v", report)
}
