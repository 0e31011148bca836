package repository

import (
	"context"
	"testing"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinanceRepository_PostingRoundTrip(t *testing.T) {
	a, database := newTestAdapter(t)
	ctx := context.Background()
	admin := seedProfile(t, a, "admin@example.com")
	u := seedUnit(t, a, admin.ID)
	_, acct1 := seedScout(t, a, u.ID, "Ann", "Able")
	_, acct2 := seedScout(t, a, u.ID, "Bo", "Baker")

	tx, err := database.BeginTx(ctx, nil)
	require.NoError(t, err)
	repo := a.FinanceRepository().WithTx(tx)

	entry := &domain.JournalEntry{
		UnitID:         u.ID,
		Kind:           domain.EntryBilling,
		Description:    "Campout",
		IdempotencyKey: "billing-1",
		CreatedBy:      admin.ID,
		Lines: []domain.JournalLine{
			domain.Debit(domain.AccountScoutReceivables, &acct1.ID, 1001, "Campout"),
			domain.Debit(domain.AccountScoutReceivables, &acct2.ID, 1000, "Campout"),
			domain.Credit(domain.AccountProgramIncome, nil, 2001, "Campout"),
		},
	}
	require.NoError(t, repo.InsertEntry(ctx, entry))
	require.NoError(t, repo.ApplyDeltas(ctx, u.ID, domain.ScoutDeltas(entry.Lines), time.Now()))

	b := &domain.BillingRecord{UnitID: u.ID, Description: "Campout", Kind: domain.BillingShared, TotalCents: 2001,
		JournalEntryID: entry.ID, CreatedBy: admin.ID, Charges: []domain.Charge{
			{ScoutAccountID: acct1.ID, AmountCents: 1001},
			{ScoutAccountID: acct2.ID, AmountCents: 1000},
		}}
	require.NoError(t, repo.CreateBilling(ctx, b))
	require.NoError(t, tx.Commit())

	fin := a.FinanceRepository()

	got, err := fin.GetEntryByKey(ctx, u.ID, "billing-1")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	require.Len(t, got.Lines, 3)
	require.NoError(t, got.Validate())

	account, err := fin.GetAccount(ctx, u.ID, acct1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), account.BillingBalanceCents)
	assert.Equal(t, "Ann Able", account.ScoutName)

	record, err := fin.GetBilling(ctx, u.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, record.Charges, 2)
	assert.Equal(t, "Campout", record.Charges[0].Description)

	open, err := fin.OpenCharges(ctx, u.ID, acct1.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)

	// Idempotency keys are unique per unit / Clés d'idempotence uniques par unité
	dup := &domain.JournalEntry{UnitID: u.ID, Kind: domain.EntryBilling, IdempotencyKey: "billing-1", CreatedBy: admin.ID,
		Lines: entry.Lines}
	assert.ErrorIs(t, fin.InsertEntry(ctx, dup), ErrDup)

	lines, err := fin.Statement(ctx, u.ID, acct1.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1001), lines[0].DebitCents)

	totals, err := fin.Totals(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Entries)
	assert.Empty(t, totals.UnbalancedEntries)
	assert.Equal(t, int64(2001), totals.TotalDebitCents)
	assert.Equal(t, totals.TotalDebitCents, totals.TotalCreditCents)
	assert.Equal(t, domain.BalanceDelta{BillingCents: 1000}, totals.Balances[acct2.ID])
}

func TestFinanceRepository_PaymentsAndVoid(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	admin := seedProfile(t, a, "admin@example.com")
	u := seedUnit(t, a, admin.ID)
	_, acct := seedScout(t, a, u.ID, "Ann", "Able")
	fin := a.FinanceRepository()

	entry := &domain.JournalEntry{UnitID: u.ID, Kind: domain.EntryBilling, CreatedBy: admin.ID, Lines: []domain.JournalLine{
		domain.Debit(domain.AccountScoutReceivables, &acct.ID, 500, ""),
		domain.Credit(domain.AccountProgramIncome, nil, 500, ""),
	}}
	require.NoError(t, fin.InsertEntry(ctx, entry))
	b := &domain.BillingRecord{UnitID: u.ID, Description: "Dues", Kind: domain.BillingFixed, TotalCents: 500,
		JournalEntryID: entry.ID, CreatedBy: admin.ID, Charges: []domain.Charge{{ScoutAccountID: acct.ID, AmountCents: 500}}}
	require.NoError(t, fin.CreateBilling(ctx, b))

	charge := b.Charges[0]
	require.NoError(t, fin.AllocateCharge(ctx, u.ID, charge.ID, 200, time.Now()))
	// Overpaying or paying a closed charge matches no row
	assert.ErrorIs(t, fin.AllocateCharge(ctx, u.ID, charge.ID, 301, time.Now()), ErrNoRecord)
	require.NoError(t, fin.AllocateCharge(ctx, u.ID, charge.ID, 300, time.Now()))
	assert.ErrorIs(t, fin.AllocateCharge(ctx, u.ID, charge.ID, 1, time.Now()), ErrNoRecord)

	pEntry := &domain.JournalEntry{UnitID: u.ID, Kind: domain.EntryPayment, IdempotencyKey: "pay-1", CreatedBy: admin.ID, Lines: []domain.JournalLine{
		domain.Debit(domain.AccountCash, nil, 500, ""),
		domain.Credit(domain.AccountScoutReceivables, &acct.ID, 500, ""),
	}}
	require.NoError(t, fin.InsertEntry(ctx, pEntry))
	p := &domain.Payment{UnitID: u.ID, ScoutAccountID: acct.ID, GrossCents: 500, NetCents: 500, Method: domain.PaymentCash,
		Note: "thanks", IdempotencyKey: "pay-1", JournalEntryID: pEntry.ID, CreatedBy: admin.ID,
		Allocations: []domain.PaymentAllocation{{ChargeID: charge.ID, AmountCents: 500}}}
	require.NoError(t, fin.CreatePayment(ctx, p))

	got, err := fin.GetPaymentByKey(ctx, u.ID, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, []domain.PaymentAllocation{{ChargeID: charge.ID, AmountCents: 500}}, got.Allocations)

	list, err := fin.ListPayments(ctx, u.ID, acct.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	gotCharge, err := fin.GetCharge(ctx, u.ID, charge.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChargePaid, gotCharge.Status)
	assert.Equal(t, int64(500), gotCharge.PaidCents)
	assert.NotNil(t, gotCharge.PaidAt)
	assert.Zero(t, gotCharge.Outstanding())

	// A billing with payments applied cannot be voided
	assert.ErrorIs(t, fin.VoidBilling(ctx, u.ID, b.ID), ErrCheckViolation)
	record, err := fin.GetBilling(ctx, u.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillingOpen, record.Status)
	assert.Equal(t, domain.ChargePaid, record.Charges[0].Status)

	records, err := fin.ListBilling(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Charges, 1)
}

func TestFinanceRepository_UnitIsolation(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	admin := seedProfile(t, a, "admin@example.com")
	u1 := seedUnit(t, a, admin.ID)
	u2 := seedUnit(t, a, admin.ID)
	_, acct := seedScout(t, a, u1.ID, "Ann", "Able")
	fin := a.FinanceRepository()

	_, err := fin.GetAccount(ctx, u2.ID, acct.ID)
	assert.ErrorIs(t, err, ErrNoRecord)

	err = fin.ApplyDeltas(ctx, u2.ID, map[int64]domain.BalanceDelta{acct.ID: {BillingCents: 10}}, time.Now())
	assert.ErrorIs(t, err, ErrNoRecord)

	accounts, err := fin.ListAccounts(ctx, u2.ID)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestFinanceRepository_FundsNeverGoNegative(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	admin := seedProfile(t, a, "admin@example.com")
	u := seedUnit(t, a, admin.ID)
	_, acct := seedScout(t, a, u.ID, "Ann", "Able")
	fin := a.FinanceRepository()

	require.NoError(t, fin.ApplyDeltas(ctx, u.ID, map[int64]domain.BalanceDelta{acct.ID: {FundsCents: 100}}, time.Now()))

	err := fin.ApplyDeltas(ctx, u.ID, map[int64]domain.BalanceDelta{acct.ID: {BillingCents: -150, FundsCents: -150}}, time.Now())
	assert.ErrorIs(t, err, ErrCheckViolation)
	got, err := fin.GetAccount(ctx, u.ID, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.FundsBalanceCents)
	assert.Zero(t, got.BillingBalanceCents)

	require.NoError(t, fin.ApplyDeltas(ctx, u.ID, map[int64]domain.BalanceDelta{acct.ID: {FundsCents: -100}}, time.Now()))
	got, err = fin.GetAccount(ctx, u.ID, acct.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FundsBalanceCents)

	// Billing balances may go negative (prepaid)
	require.NoError(t, fin.ApplyDeltas(ctx, u.ID, map[int64]domain.BalanceDelta{acct.ID: {BillingCents: -40}}, time.Now()))
}
