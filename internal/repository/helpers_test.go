package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/repository/sqlitetest"
)

// newTestAdapter opens a migrated SQLite database / Ouvre une base SQLite migrée
func newTestAdapter(t *testing.T) (*Adapter, *sql.DB) {
	t.Helper()
	database := sqlitetest.NewDB(t)
	return NewAdapter(database, "sqlite"), database
}

func seedProfile(t *testing.T, a *Adapter, email string) *domain.Profile {
	t.Helper()
	p, err := a.ProfileRepository().Create(context.Background(), &domain.Profile{
		Email:     email,
		Password:  "hashed",
		FirstName: "Pat",
		LastName:  "Leader",
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return p
}

func seedUnit(t *testing.T, a *Adapter, adminID int64) *domain.Unit {
	t.Helper()
	ctx := context.Background()
	u := &domain.Unit{Name: "Troop 42", Type: domain.UnitTroop, Number: "42", Fees: domain.FeeSettings{PercentBps: 290, FixedCents: 30}}
	if err := a.UnitRepository().Create(ctx, u); err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	if err := a.MembershipRepository().Upsert(ctx, &domain.Membership{UnitID: u.ID, ProfileID: adminID, Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return u
}

func seedScout(t *testing.T, a *Adapter, unitID int64, first, last string) (*domain.Scout, *domain.ScoutAccount) {
	t.Helper()
	ctx := context.Background()
	s := &domain.Scout{UnitID: unitID, FirstName: first, LastName: last}
	if err := a.ScoutRepository().Create(ctx, s); err != nil {
		t.Fatalf("seed scout: %v", err)
	}
	acct, err := a.FinanceRepository().CreateAccount(ctx, unitID, s.ID)
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return s, acct
}
