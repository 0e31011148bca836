package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/finance"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository"
)

// maxKeyLength bounds client idempotency keys
const maxKeyLength = 128

// BillingInput describes a new billing / Décrit une nouvelle facturation
type BillingInput struct {
	Description    string
	Kind           domain.BillingKind
	AmountCents    int64 // Total for shared billing, per scout for fixed
	ScoutIDs       []int64
	DueDate        *time.Time
	IdempotencyKey string
}

// PaymentInput describes money received for a scout account / Décrit un paiement reçu
type PaymentInput struct {
	ScoutAccountID int64
	GrossCents     int64
	FeeCents       int64
	Method         domain.PaymentMethod
	Reference      string
	Memo           string
	Meta           map[string]string
	IdempotencyKey string
	ChargeIDs      []int64 // Charges to settle first; open charges oldest first when empty
	CreditCents    int64   // Amount credited to the scout, the gross when zero
}

// LedgerService posts double-entry transactions for scout accounts / Passe les écritures des comptes scouts
//
// Each posting writes the journal entry, cached balances and business rows
// in one transaction. A known idempotency key returns the original result.
type LedgerService struct {
	db       ports.TxBeginner
	finance  ports.FinanceRepository
	scouts   ports.ScoutRepository
	access   *Access
	notifier *BillingNotifier
	metrics  LedgerMetricsRecorder
	now      func() time.Time
}

// NewLedgerService creates the ledger service / Crée le service comptable
func NewLedgerService(
	db ports.TxBeginner,
	fin ports.FinanceRepository,
	scouts ports.ScoutRepository,
	access *Access,
	notifier *BillingNotifier,
	metrics LedgerMetricsRecorder,
) *LedgerService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &LedgerService{
		db:       db,
		finance:  fin,
		scouts:   scouts,
		access:   access,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
	}
}

// errReplay signals that an idempotency key was already used
var errReplay = errors.New("idempotent replay")

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return uuid.NewString(), nil
	}
	if len(key) > maxKeyLength {
		return "", invalid("idempotency key is limited to %d characters", maxKeyLength)
	}
	return key, nil
}

// post validates and stores an entry with its balance changes / Valide et enregistre une écriture
func (s *LedgerService) post(ctx context.Context, fin ports.FinanceRepository, e *domain.JournalEntry) error {
	if e.PostedAt.IsZero() {
		e.PostedAt = s.now().UTC()
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := fin.InsertEntry(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDup) {
			return errReplay
		}
		return fmt.Errorf("insert journal entry: %w", err)
	}
	if err := fin.ApplyDeltas(ctx, e.UnitID, domain.ScoutDeltas(e.Lines), e.PostedAt); err != nil {
		if errors.Is(err, repository.ErrCheckViolation) {
			return fmt.Errorf("%w: %v", domain.ErrInsufficientFunds, err)
		}
		return fmt.Errorf("apply balances: %w", err)
	}
	return nil
}

// replayed returns the stored entry for key, nil when the key is new.
func replayed(ctx context.Context, fin ports.FinanceRepository, unitID int64, key string) (*domain.JournalEntry, error) {
	e, err := fin.GetEntryByKey(ctx, unitID, key)
	if errors.Is(err, repository.ErrNoRecord) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check idempotency key: %w", err)
	}
	return e, nil
}

// Accounts / Comptes

// GetAccount returns a scout account visible to the actor / Retourne un compte scout visible
func (s *LedgerService) GetAccount(ctx context.Context, actor *domain.Membership, accountID int64) (*domain.ScoutAccount, error) {
	acct, err := s.finance.GetAccount(ctx, actor.UnitID, accountID)
	if err != nil {
		return nil, repoErr("scout account", err)
	}
	if err := s.access.CanAccessScout(ctx, actor, acct.ScoutID, domain.PermissionFinanceRead, domain.PermissionFinanceSelf); err != nil {
		return nil, err
	}
	return acct, nil
}

// AccountForScout returns the account of a scout / Retourne le compte d'un scout
func (s *LedgerService) AccountForScout(ctx context.Context, actor *domain.Membership, scoutID int64) (*domain.ScoutAccount, error) {
	if err := s.access.CanAccessScout(ctx, actor, scoutID, domain.PermissionFinanceRead, domain.PermissionFinanceSelf); err != nil {
		return nil, err
	}
	acct, err := s.finance.GetAccountByScout(ctx, actor.UnitID, scoutID)
	if err != nil {
		return nil, repoErr("scout account", err)
	}
	return acct, nil
}

// ListAccounts lists accounts; guardians only see their scouts / Liste les comptes visibles
func (s *LedgerService) ListAccounts(ctx context.Context, actor *domain.Membership) ([]domain.ScoutAccount, error) {
	visible, err := s.access.VisibleScouts(ctx, actor, domain.PermissionFinanceRead)
	if err != nil {
		return nil, err
	}
	if visible != nil && !actor.Can(domain.PermissionFinanceSelf) {
		return nil, domain.ErrForbidden
	}
	accts, err := s.finance.ListAccounts(ctx, actor.UnitID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return filterVisible(accts, visible, func(a domain.ScoutAccount) int64 { return a.ScoutID }), nil
}

// Statement lists the postings of an account / Liste les mouvements d'un compte
func (s *LedgerService) Statement(ctx context.Context, actor *domain.Membership, accountID int64) ([]ports.StatementLine, error) {
	if _, err := s.GetAccount(ctx, actor, accountID); err != nil {
		return nil, err
	}
	lines, err := s.finance.Statement(ctx, actor.UnitID, accountID)
	if err != nil {
		return nil, fmt.Errorf("load statement: %w", err)
	}
	return lines, nil
}

// ListPayments lists payments of the unit, or of one account when accountID > 0.
func (s *LedgerService) ListPayments(ctx context.Context, actor *domain.Membership, accountID int64) ([]domain.Payment, error) {
	if accountID > 0 {
		if _, err := s.GetAccount(ctx, actor, accountID); err != nil {
			return nil, err
		}
	} else if !actor.Can(domain.PermissionFinanceRead) {
		return nil, domain.ErrForbidden
	}
	payments, err := s.finance.ListPayments(ctx, actor.UnitID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Billing / Facturation

// CreateBilling charges scouts and posts Dr receivables / Cr program income.
func (s *LedgerService) CreateBilling(ctx context.Context, actor *domain.Membership, in BillingInput) (*domain.BillingRecord, error) {
	if !actor.Can(domain.PermissionFinanceWrite) {
		return nil, domain.ErrForbidden
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" || len(desc) > 500 {
		return nil, invalid("description is required and limited to 500 characters")
	}
	kind, err := domain.ParseBillingKind(string(in.Kind))
	if err != nil {
		return nil, err
	}
	key, err := normalizeKey(in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if len(in.ScoutIDs) == 0 {
		return nil, invalid("at least one scout is required")
	}

	var record *domain.BillingRecord
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		fin := s.finance.WithTx(tx)

		prior, err := replayed(ctx, fin, actor.UnitID, key)
		if err != nil {
			return err
		}
		if prior != nil {
			record, err = billingForEntry(ctx, fin, actor.UnitID, prior.ID)
			if err != nil {
				return err
			}
			return errReplay
		}

		accountIDs := make([]int64, 0, len(in.ScoutIDs))
		for _, scoutID := range in.ScoutIDs {
			acct, err := fin.GetAccountByScout(ctx, actor.UnitID, scoutID)
			if err != nil {
				return repoErr(fmt.Sprintf("scout %d account", scoutID), err)
			}
			accountIDs = append(accountIDs, acct.ID)
		}

		allocs, err := finance.Split(kind, in.AmountCents, accountIDs)
		if err != nil {
			return err
		}
		total := finance.Sum(allocs)

		entry := &domain.JournalEntry{
			UnitID:         actor.UnitID,
			Kind:           domain.EntryBilling,
			Description:    desc,
			IdempotencyKey: key,
			CreatedBy:      actor.ProfileID,
		}
		charges := make([]domain.Charge, 0, len(allocs))
		for _, a := range allocs {
			entry.Lines = append(entry.Lines, domain.Debit(domain.AccountScoutReceivables, &a.ScoutAccountID, a.AmountCents, desc))
			charges = append(charges, domain.Charge{ScoutAccountID: a.ScoutAccountID, AmountCents: a.AmountCents})
		}
		entry.Lines = append(entry.Lines, domain.Credit(domain.AccountProgramIncome, nil, total, desc))

		if err := s.post(ctx, fin, entry); err != nil {
			return err
		}

		record = &domain.BillingRecord{
			UnitID:         actor.UnitID,
			Description:    desc,
			Kind:           kind,
			TotalCents:     total,
			DueDate:        in.DueDate,
			JournalEntryID: entry.ID,
			CreatedBy:      actor.ProfileID,
			Charges:        charges,
		}
		return fin.CreateBilling(ctx, record)
	})
	switch {
	case errors.Is(err, errReplay) && record != nil:
		return record, nil
	case errors.Is(err, errReplay):
		return s.replayBilling(ctx, actor.UnitID, key)
	case err != nil:
		return nil, err
	}

	s.metrics.RecordPosting(string(domain.EntryBilling))
	slog.Info("billing created", "unit_id", actor.UnitID, "billing_id", record.ID, "total_cents", record.TotalCents, "charges", len(record.Charges))
	if s.notifier != nil {
		s.notifier.NotifyAsync(actor.UnitID, record)
	}
	return record, nil
}

// replayBilling loads the record of a key that won a concurrent race.
func (s *LedgerService) replayBilling(ctx context.Context, unitID int64, key string) (*domain.BillingRecord, error) {
	e, err := replayed(ctx, s.finance, unitID, key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("billing key %q: %w", key, domain.ErrConflict)
	}
	return billingForEntry(ctx, s.finance, unitID, e.ID)
}

func billingForEntry(ctx context.Context, fin ports.FinanceRepository, unitID, entryID int64) (*domain.BillingRecord, error) {
	records, err := fin.ListBilling(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("list billing: %w", err)
	}
	for i := range records {
		if records[i].JournalEntryID == entryID {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("idempotency key belongs to another posting: %w", domain.ErrConflict)
}

func (s *LedgerService) ListBilling(ctx context.Context, actor *domain.Membership) ([]domain.BillingRecord, error) {
	if !actor.Can(domain.PermissionFinanceRead) {
		return nil, domain.ErrForbidden
	}
	records, err := s.finance.ListBilling(ctx, actor.UnitID)
	if err != nil {
		return nil, fmt.Errorf("list billing: %w", err)
	}
	return records, nil
}

// VoidBilling reverses a billing whose charges have no payments applied.
func (s *LedgerService) VoidBilling(ctx context.Context, actor *domain.Membership, billingID int64) (*domain.BillingRecord, error) {
	if !actor.Can(domain.PermissionFinanceWrite) {
		return nil, domain.ErrForbidden
	}

	var record *domain.BillingRecord
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		fin := s.finance.WithTx(tx)
		var err error
		record, err = fin.GetBilling(ctx, actor.UnitID, billingID)
		if err != nil {
			return repoErr("billing record", err)
		}
		if record.Status == domain.BillingVoid {
			return domain.ErrAlreadyVoided
		}
		for _, c := range record.Charges {
			if c.PaidCents > 0 {
				return fmt.Errorf("%w: charge %d already has payments applied", domain.ErrConflict, c.ID)
			}
		}

		original, err := fin.GetEntry(ctx, actor.UnitID, record.JournalEntryID)
		if err != nil {
			return repoErr("billing entry", err)
		}
		rev := original.Reverse("Void: "+record.Description, actor.ProfileID)
		rev.IdempotencyKey = fmt.Sprintf("void:billing:%d", record.ID)
		if err := s.post(ctx, fin, rev); err != nil {
			if errors.Is(err, errReplay) {
				return domain.ErrAlreadyVoided
			}
			return err
		}

		if err := fin.VoidBilling(ctx, actor.UnitID, record.ID); err != nil {
			return repoErr("billing record", err)
		}
		record.Status = domain.BillingVoid
		for i := range record.Charges {
			record.Charges[i].Status = domain.ChargeVoid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPosting(string(domain.EntryVoid))
	slog.Info("billing voided", "unit_id", actor.UnitID, "billing_id", billingID, "by", actor.ProfileID)
	return record, nil
}

// Payments / Paiements

// RecordPayment records money received by the unit / Enregistre un paiement reçu
func (s *LedgerService) RecordPayment(ctx context.Context, actor *domain.Membership, in PaymentInput) (*domain.Payment, error) {
	if !actor.Can(domain.PermissionPaymentsCollect) {
		return nil, domain.ErrForbidden
	}
	switch in.Method {
	case domain.PaymentCash, domain.PaymentCheck, domain.PaymentOther, domain.PaymentSquare:
	case domain.PaymentFunds:
		return nil, invalid("use apply funds to spend fundraiser credit")
	default:
		return nil, invalid("unknown payment method %q", in.Method)
	}
	return s.recordPayment(ctx, actor.UnitID, actor.ProfileID, in)
}

// MarkChargePaid settles the outstanding amount of one charge / Solde le montant restant d'une charge
func (s *LedgerService) MarkChargePaid(ctx context.Context, actor *domain.Membership, chargeID int64, method domain.PaymentMethod, reference string) (*domain.Payment, error) {
	if !actor.Can(domain.PermissionPaymentsCollect) {
		return nil, domain.ErrForbidden
	}
	c, err := s.finance.GetCharge(ctx, actor.UnitID, chargeID)
	if err != nil {
		return nil, repoErr("charge", err)
	}
	if c.Status != domain.ChargeOpen || c.Outstanding() <= 0 {
		return nil, fmt.Errorf("%w: charge %d is %s", domain.ErrConflict, c.ID, c.Status)
	}
	if method == "" {
		method = domain.PaymentCash
	}
	return s.RecordPayment(ctx, actor, PaymentInput{
		ScoutAccountID: c.ScoutAccountID,
		GrossCents:     c.Outstanding(),
		Method:         method,
		Reference:      reference,
		Memo:           c.Description,
		IdempotencyKey: fmt.Sprintf("charge:%d:settle:%d", c.ID, c.PaidCents),
		ChargeIDs:      []int64{c.ID},
	})
}

// ApplyFunds spends fundraiser credit on the scout's charges / Utilise les fonds du scout
func (s *LedgerService) ApplyFunds(ctx context.Context, actor *domain.Membership, accountID, amountCents int64, key string) (*domain.Payment, error) {
	if !actor.Can(domain.PermissionFinanceWrite) {
		return nil, domain.ErrForbidden
	}
	return s.recordPayment(ctx, actor.UnitID, actor.ProfileID, PaymentInput{
		ScoutAccountID: accountID,
		GrossCents:     amountCents,
		Method:         domain.PaymentFunds,
		Memo:           "Fundraiser credit applied",
		IdempotencyKey: key,
	})
}

// recordPayment posts a payment and allocates it to charges / Passe un paiement et l'affecte aux charges
func (s *LedgerService) recordPayment(ctx context.Context, unitID, createdBy int64, in PaymentInput) (*domain.Payment, error) {
	if in.GrossCents <= 0 {
		return nil, invalid("amount must be positive")
	}
	if in.FeeCents < 0 || in.FeeCents > in.GrossCents {
		return nil, invalid("fee must be between zero and the amount")
	}
	if in.Method == domain.PaymentFunds && in.FeeCents != 0 {
		return nil, invalid("fundraiser credit carries no fee")
	}
	credit := in.CreditCents
	if credit == 0 {
		credit = in.GrossCents
	}
	if credit < 0 || credit > in.GrossCents {
		return nil, invalid("credited amount cannot exceed the gross")
	}
	key, err := normalizeKey(in.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		fin := s.finance.WithTx(tx)

		prior, err := fin.GetPaymentByKey(ctx, unitID, key)
		if err == nil {
			payment = prior
			return errReplay
		}
		if !errors.Is(err, repository.ErrNoRecord) {
			return fmt.Errorf("check idempotency key: %w", err)
		}

		acct, err := fin.GetAccount(ctx, unitID, in.ScoutAccountID)
		if err != nil {
			return repoErr("scout account", err)
		}
		if in.Method == domain.PaymentFunds && acct.FundsBalanceCents < in.GrossCents {
			return fmt.Errorf("%w: %s available", domain.ErrInsufficientFunds, finance.FormatCents(acct.FundsBalanceCents))
		}

		charges, err := s.chargesToSettle(ctx, fin, unitID, acct.ID, in.ChargeIDs)
		if err != nil {
			return err
		}

		payment = &domain.Payment{
			UnitID:         unitID,
			ScoutAccountID: acct.ID,
			GrossCents:     in.GrossCents,
			FeeCents:       in.FeeCents,
			NetCents:       in.GrossCents - in.FeeCents,
			Method:         in.Method,
			Reference:      strings.TrimSpace(in.Reference),
			Note:           finance.FormatNote(finance.Note{Memo: strings.TrimSpace(in.Memo), Meta: in.Meta}),
			IdempotencyKey: key,
			CreatedBy:      createdBy,
		}

		entry := paymentEntry(payment, acct, credit)
		if err := s.post(ctx, fin, entry); err != nil {
			return err
		}
		payment.JournalEntryID = entry.ID

		at := entry.PostedAt
		remaining := credit
		for i := range charges {
			if remaining == 0 {
				break
			}
			c := &charges[i]
			amt := min(remaining, c.Outstanding())
			if amt <= 0 {
				continue
			}
			if err := fin.AllocateCharge(ctx, unitID, c.ID, amt, at); err != nil {
				if errors.Is(err, repository.ErrNoRecord) {
					return fmt.Errorf("%w: charge %d was settled by another payment", domain.ErrConflict, c.ID)
				}
				return repoErr("charge", err)
			}
			c.PaidCents += amt
			if c.Outstanding() == 0 {
				c.Status = domain.ChargePaid
				c.PaidAt = &at
			}
			payment.Allocations = append(payment.Allocations, domain.PaymentAllocation{ChargeID: c.ID, AmountCents: amt})
			remaining -= amt
		}

		return repoErr("payment", fin.CreatePayment(ctx, payment))
	})
	switch {
	case errors.Is(err, errReplay) && payment != nil && payment.ID != 0:
		return payment, nil
	case errors.Is(err, errReplay):
		p, gerr := s.finance.GetPaymentByKey(ctx, unitID, key)
		if gerr != nil {
			return nil, fmt.Errorf("payment key %q: %w", key, domain.ErrConflict)
		}
		return p, nil
	case err != nil:
		return nil, err
	}

	kind := domain.EntryPayment
	if payment.Method == domain.PaymentFunds {
		kind = domain.EntryFundsApplied
	}
	s.metrics.RecordPosting(string(kind))
	s.metrics.RecordPayment(string(payment.Method), "recorded", payment.GrossCents)
	slog.Info("payment recorded", "unit_id", unitID, "payment_id", payment.ID, "method", payment.Method, "gross_cents", payment.GrossCents)
	return payment, nil
}

// chargesToSettle returns the listed charges, or open charges oldest first.
func (s *LedgerService) chargesToSettle(ctx context.Context, fin ports.FinanceRepository, unitID, accountID int64, ids []int64) ([]domain.Charge, error) {
	if len(ids) == 0 {
		charges, err := fin.OpenCharges(ctx, unitID, accountID)
		if err != nil {
			return nil, fmt.Errorf("list open charges: %w", err)
		}
		return charges, nil
	}

	charges := make([]domain.Charge, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, err := fin.GetCharge(ctx, unitID, id)
		if err != nil {
			return nil, repoErr(fmt.Sprintf("charge %d", id), err)
		}
		if c.ScoutAccountID != accountID {
			return nil, invalid("charge %d belongs to another scout", id)
		}
		if c.Status != domain.ChargeOpen {
			return nil, fmt.Errorf("%w: charge %d is %s", domain.ErrConflict, id, c.Status)
		}
		charges = append(charges, *c)
	}
	return charges, nil
}

// paymentEntry builds the journal lines of a payment / Construit les lignes d'un paiement
//
// When the payer covered the fee, credit is below the gross and the
// difference offsets the processing fee instead of the scout's balance.
func paymentEntry(p *domain.Payment, acct *domain.ScoutAccount, credit int64) *domain.JournalEntry {
	note := finance.ParseNote(p.Note)
	desc := fmt.Sprintf("Payment from %s (%s)", acct.ScoutName, p.Method)
	e := &domain.JournalEntry{
		UnitID:         p.UnitID,
		Kind:           domain.EntryPayment,
		Description:    desc,
		IdempotencyKey: p.IdempotencyKey,
		CreatedBy:      p.CreatedBy,
	}

	if p.Method == domain.PaymentFunds {
		e.Kind = domain.EntryFundsApplied
		e.Description = fmt.Sprintf("Funds applied for %s", acct.ScoutName)
		e.Lines = []domain.JournalLine{
			domain.Debit(domain.AccountScoutFunds, &acct.ID, p.GrossCents, note.Memo),
			domain.Credit(domain.AccountScoutReceivables, &acct.ID, p.GrossCents, note.Memo),
		}
		return e
	}

	cash := domain.AccountCash
	if p.Method == domain.PaymentSquare {
		cash = domain.AccountSquareClearing
	}
	if p.NetCents > 0 {
		e.Lines = append(e.Lines, domain.Debit(cash, nil, p.NetCents, p.Reference))
	}
	if p.FeeCents > 0 {
		e.Lines = append(e.Lines, domain.Debit(domain.AccountProcessingFees, nil, p.FeeCents, "Processing fee"))
	}
	e.Lines = append(e.Lines, domain.Credit(domain.AccountScoutReceivables, &acct.ID, credit, note.Memo))
	if covered := p.GrossCents - credit; covered > 0 {
		e.Lines = append(e.Lines, domain.Credit(domain.AccountProcessingFees, nil, covered, "Fee paid by payer"))
	}
	return e
}

// Fundraising / Collectes

// CreditFundraiser credits fundraiser earnings to a scout / Crédite les gains de collecte d'un scout
func (s *LedgerService) CreditFundraiser(ctx context.Context, actor *domain.Membership, accountID, amountCents int64, description, key string) (*domain.JournalEntry, error) {
	if !actor.Can(domain.PermissionFinanceWrite) {
		return nil, domain.ErrForbidden
	}
	if amountCents <= 0 {
		return nil, invalid("amount must be positive")
	}
	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = "Fundraiser credit"
	}
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}

	var entry *domain.JournalEntry
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		fin := s.finance.WithTx(tx)
		prior, err := replayed(ctx, fin, actor.UnitID, key)
		if err != nil {
			return err
		}
		if prior != nil {
			if prior.Kind != domain.EntryFundraiser {
				return fmt.Errorf("idempotency key belongs to another posting: %w", domain.ErrConflict)
			}
			entry = prior
			return errReplay
		}

		acct, err := fin.GetAccount(ctx, actor.UnitID, accountID)
		if err != nil {
			return repoErr("scout account", err)
		}
		entry = &domain.JournalEntry{
			UnitID:         actor.UnitID,
			Kind:           domain.EntryFundraiser,
			Description:    desc,
			IdempotencyKey: key,
			CreatedBy:      actor.ProfileID,
			Lines: []domain.JournalLine{
				domain.Debit(domain.AccountFundraising, nil, amountCents, desc),
				domain.Credit(domain.AccountScoutFunds, &acct.ID, amountCents, desc),
			},
		}
		return s.post(ctx, fin, entry)
	})
	switch {
	case errors.Is(err, errReplay) && entry != nil && entry.ID != 0:
		return entry, nil
	case errors.Is(err, errReplay):
		e, gerr := replayed(ctx, s.finance, actor.UnitID, key)
		if gerr != nil || e == nil {
			return nil, fmt.Errorf("fundraiser key %q: %w", key, domain.ErrConflict)
		}
		return e, nil
	case err != nil:
		return nil, err
	}

	s.metrics.RecordPosting(string(domain.EntryFundraiser))
	return entry, nil
}

// Reconciliation / Rapprochement

// Reconcile recomputes balances from the journal and compares caches / Recalcule et compare les soldes
func (s *LedgerService) Reconcile(ctx context.Context, actor *domain.Membership) (*domain.ReconciliationReport, error) {
	if !actor.Can(domain.PermissionFinanceRead) {
		return nil, domain.ErrForbidden
	}
	return s.reconcile(ctx, actor.UnitID)
}

func (s *LedgerService) reconcile(ctx context.Context, unitID int64) (*domain.ReconciliationReport, error) {
	totals, err := s.finance.Totals(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("recompute ledger: %w", err)
	}
	accts, err := s.finance.ListAccounts(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	report := &domain.ReconciliationReport{
		UnitID:            unitID,
		Entries:           totals.Entries,
		UnbalancedEntries: totals.UnbalancedEntries,
		TotalDebitCents:   totals.TotalDebitCents,
		TotalCreditCents:  totals.TotalCreditCents,
		CheckedAt:         s.now().UTC(),
	}
	for _, a := range accts {
		ledger := totals.Balances[a.ID]
		if ledger.BillingCents != a.BillingBalanceCents || ledger.FundsCents != a.FundsBalanceCents {
			report.Mismatches = append(report.Mismatches, domain.Mismatch{
				ScoutAccountID: a.ID,
				ScoutName:      a.ScoutName,
				CachedBilling:  a.BillingBalanceCents,
				LedgerBilling:  ledger.BillingCents,
				CachedFunds:    a.FundsBalanceCents,
				LedgerFunds:    ledger.FundsCents,
			})
		}
	}
	if !report.OK() {
		slog.Warn("ledger reconciliation found problems", "unit_id", unitID,
			"unbalanced", len(report.UnbalancedEntries), "mismatches", len(report.Mismatches))
	}
	return report, nil
}
