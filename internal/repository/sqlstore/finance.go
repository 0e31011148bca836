package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
	"github.com/richblaalid/chuckbox/internal/repository/db"
)

var _ ports.FinanceRepository = (*financeRepository)(nil)

// financeRepository stores accounts, the journal and billing / Stocke comptes, journal et facturations
type financeRepository struct {
	conn
}

// NewFinanceRepository creates finance repository / Crée le repository financier
func NewFinanceRepository(dbtx ports.DBTX, d Dialect) ports.FinanceRepository {
	return &financeRepository{conn{db: dbtx, d: d}}
}

func (r *financeRepository) WithTx(dbtx ports.DBTX) ports.FinanceRepository {
	return &financeRepository{conn{db: dbtx, d: r.d}}
}

// Accounts / Comptes

const accountColumns = `a.id, a.unit_id, a.scout_id, s.first_name, s.last_name, s.nickname,
	a.billing_balance_cents, a.funds_balance_cents, a.updated_at`

const accountFrom = ` FROM scout_accounts a JOIN scouts s ON s.id = a.scout_id`

func scanAccount(scan func(dest ...any) error) (*domain.ScoutAccount, error) {
	a := &domain.ScoutAccount{}
	var sc domain.Scout
	if err := scan(&a.ID, &a.UnitID, &a.ScoutID, &sc.FirstName, &sc.LastName, &sc.Nickname,
		&a.BillingBalanceCents, &a.FundsBalanceCents, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ScoutName = sc.DisplayName()
	return a, nil
}

func (r *financeRepository) CreateAccount(ctx context.Context, unitID, scoutID int64) (*domain.ScoutAccount, error) {
	if _, err := r.insert(ctx, `
		INSERT INTO scout_accounts (unit_id, scout_id, billing_balance_cents, funds_balance_cents, updated_at)
		VALUES (?, ?, 0, 0, ?)`, unitID, scoutID, now()); err != nil {
		return nil, err
	}
	return r.GetAccountByScout(ctx, unitID, scoutID)
}

func (r *financeRepository) GetAccount(ctx context.Context, unitID, id int64) (*domain.ScoutAccount, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+accountColumns+accountFrom+`
		WHERE a.unit_id = ? AND a.id = ?`), unitID, id)
	a, err := scanAccount(row.Scan)
	return a, r.d.TranslateError(err)
}

func (r *financeRepository) GetAccountByScout(ctx context.Context, unitID, scoutID int64) (*domain.ScoutAccount, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+accountColumns+accountFrom+`
		WHERE a.unit_id = ? AND a.scout_id = ?`), unitID, scoutID)
	a, err := scanAccount(row.Scan)
	return a, r.d.TranslateError(err)
}

func (r *financeRepository) ListAccounts(ctx context.Context, unitID int64) ([]domain.ScoutAccount, error) {
	rows, err := r.query(ctx, `SELECT `+accountColumns+accountFrom+`
		WHERE a.unit_id = ?
		ORDER BY s.last_name, s.first_name, a.id`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScoutAccount
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, *a)
	}
	return out, r.d.TranslateError(rows.Err())
}

// ApplyDeltas adjusts cached balances / Ajuste les soldes en cache
func (r *financeRepository) ApplyDeltas(ctx context.Context, unitID int64, deltas map[int64]domain.BalanceDelta, at time.Time) error {
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	// Updates run in ascending account order / Mises à jour par ordre croissant de compte
	slices.Sort(ids)

	for _, id := range ids {
		d := deltas[id]
		if d.BillingCents == 0 && d.FundsCents == 0 {
			continue
		}
		// The guard is evaluated against the committed row, so two debits racing
		// for the same funds cannot both pass / La garde est évaluée sur la ligne validée
		n, err := r.execCount(ctx, `
			UPDATE scout_accounts
			SET billing_balance_cents = billing_balance_cents + ?,
			    funds_balance_cents = funds_balance_cents + ?,
			    updated_at = ?
			WHERE unit_id = ? AND id = ? AND funds_balance_cents + ? >= 0`,
			d.BillingCents, d.FundsCents, at.UTC(), unitID, id, d.FundsCents)
		if err != nil {
			return err
		}
		if n == 0 {
			return r.missingOrShort(ctx, unitID, id)
		}
	}
	return nil
}

// missingOrShort explains a guarded update that matched no row
func (r *financeRepository) missingOrShort(ctx context.Context, unitID, id int64) error {
	ok, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM scout_accounts WHERE unit_id = ? AND id = ?)`, unitID, id)
	if err != nil {
		return err
	}
	if !ok {
		return db.ErrNoRecord
	}
	return fmt.Errorf("scout account %d funds balance: %w", id, db.ErrCheckViolation)
}

// Journal / Journal

// InsertEntry stores an entry and its lines / Stocke une écriture et ses lignes
func (r *financeRepository) InsertEntry(ctx context.Context, e *domain.JournalEntry) error {
	if e.PostedAt.IsZero() {
		e.PostedAt = now()
	}
	id, err := r.insert(ctx, `
		INSERT INTO journal_entries (unit_id, kind, description, idempotency_key, reverses_entry_id, posted_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UnitID, string(e.Kind), e.Description, nullString(e.IdempotencyKey), e.ReversesEntryID, e.PostedAt.UTC(), e.CreatedBy)
	if err != nil {
		return err
	}
	e.ID = id

	for i := range e.Lines {
		l := &e.Lines[i]
		lineID, err := r.insert(ctx, `
			INSERT INTO journal_lines (entry_id, account_code, scout_account_id, debit_cents, credit_cents, memo)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, string(l.AccountCode), l.ScoutAccountID, l.DebitCents, l.CreditCents, l.Memo)
		if err != nil {
			return err
		}
		l.ID = lineID
		l.EntryID = e.ID
	}
	return nil
}

const entryColumns = `id, unit_id, kind, description, idempotency_key, reverses_entry_id, posted_at, created_by`

func (r *financeRepository) getEntry(ctx context.Context, where string, args ...any) (*domain.JournalEntry, error) {
	e := &domain.JournalEntry{}
	var key sql.NullString
	if err := r.scanRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE `+where, args,
		&e.ID, &e.UnitID, &e.Kind, &e.Description, &key, &e.ReversesEntryID, &e.PostedAt, &e.CreatedBy); err != nil {
		return nil, err
	}
	e.IdempotencyKey = key.String

	rows, err := r.query(ctx, `
		SELECT id, entry_id, account_code, scout_account_id, debit_cents, credit_cents, memo
		FROM journal_lines WHERE entry_id = ? ORDER BY id`, e.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountCode, &l.ScoutAccountID, &l.DebitCents, &l.CreditCents, &l.Memo); err != nil {
			return nil, r.d.TranslateError(err)
		}
		e.Lines = append(e.Lines, l)
	}
	return e, r.d.TranslateError(rows.Err())
}

func (r *financeRepository) GetEntry(ctx context.Context, unitID, id int64) (*domain.JournalEntry, error) {
	return r.getEntry(ctx, `unit_id = ? AND id = ?`, unitID, id)
}

func (r *financeRepository) GetEntryByKey(ctx context.Context, unitID int64, key string) (*domain.JournalEntry, error) {
	return r.getEntry(ctx, `unit_id = ? AND idempotency_key = ?`, unitID, key)
}

// Statement lists postings on one scout account / Liste les mouvements d'un compte scout
func (r *financeRepository) Statement(ctx context.Context, unitID, scoutAccountID int64) ([]ports.StatementLine, error) {
	rows, err := r.query(ctx, `
		SELECT e.id, e.kind, e.description, e.posted_at, l.account_code, l.debit_cents, l.credit_cents, l.memo
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.unit_id = ? AND l.scout_account_id = ?
		ORDER BY e.posted_at, e.id, l.id`, unitID, scoutAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.StatementLine
	for rows.Next() {
		var s ports.StatementLine
		if err := rows.Scan(&s.EntryID, &s.Kind, &s.Description, &s.PostedAt, &s.AccountCode,
			&s.DebitCents, &s.CreditCents, &s.Memo); err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, s)
	}
	return out, r.d.TranslateError(rows.Err())
}

// Totals recomputes balances from journal lines / Recalcule les soldes depuis le journal
func (r *financeRepository) Totals(ctx context.Context, unitID int64) (*ports.LedgerTotals, error) {
	t := &ports.LedgerTotals{}

	if err := r.scanRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE unit_id = ?`, []any{unitID}, &t.Entries); err != nil {
		return nil, err
	}

	if err := r.scanRow(ctx, `
		SELECT COALESCE(SUM(l.debit_cents), 0), COALESCE(SUM(l.credit_cents), 0)
		FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.unit_id = ?`, []any{unitID}, &t.TotalDebitCents, &t.TotalCreditCents); err != nil {
		return nil, err
	}

	rows, err := r.query(ctx, `
		SELECT e.id
		FROM journal_entries e JOIN journal_lines l ON l.entry_id = e.id
		WHERE e.unit_id = ?
		GROUP BY e.id
		HAVING SUM(l.debit_cents) <> SUM(l.credit_cents)
		ORDER BY e.id`, unitID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, r.d.TranslateError(err)
		}
		t.UnbalancedEntries = append(t.UnbalancedEntries, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, r.d.TranslateError(err)
	}

	rows, err = r.query(ctx, `
		SELECT l.scout_account_id, l.account_code, SUM(l.debit_cents), SUM(l.credit_cents)
		FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.unit_id = ? AND l.scout_account_id IS NOT NULL
		GROUP BY l.scout_account_id, l.account_code`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summed []domain.JournalLine
	for rows.Next() {
		var l domain.JournalLine
		var id int64
		if err := rows.Scan(&id, &l.AccountCode, &l.DebitCents, &l.CreditCents); err != nil {
			return nil, r.d.TranslateError(err)
		}
		l.ScoutAccountID = &id
		summed = append(summed, l)
	}
	if err := rows.Err(); err != nil {
		return nil, r.d.TranslateError(err)
	}
	t.Balances = domain.ScoutDeltas(summed)
	return t, nil
}

// Billing / Facturation

func (r *financeRepository) CreateBilling(ctx context.Context, b *domain.BillingRecord) error {
	ts := now()
	if b.Status == "" {
		b.Status = domain.BillingOpen
	}
	id, err := r.insert(ctx, `
		INSERT INTO billing_records (unit_id, description, kind, total_cents, due_date, status, journal_entry_id,
			created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UnitID, b.Description, string(b.Kind), b.TotalCents, utc(b.DueDate), string(b.Status), b.JournalEntryID,
		b.CreatedBy, ts, ts)
	if err != nil {
		return err
	}
	b.ID = id
	b.CreatedAt = ts

	for i := range b.Charges {
		c := &b.Charges[i]
		c.UnitID = b.UnitID
		c.BillingRecordID = b.ID
		c.Description = b.Description
		if c.Status == "" {
			c.Status = domain.ChargeOpen
		}
		cid, err := r.insert(ctx, `
			INSERT INTO charges (unit_id, billing_record_id, scout_account_id, amount_cents, paid_cents, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.UnitID, c.BillingRecordID, c.ScoutAccountID, c.AmountCents, c.PaidCents, string(c.Status), ts)
		if err != nil {
			return err
		}
		c.ID = cid
		c.CreatedAt = ts
	}
	return nil
}

const billingColumns = `id, unit_id, description, kind, total_cents, due_date, status, journal_entry_id, created_by, created_at`

func scanBilling(scan func(dest ...any) error) (*domain.BillingRecord, error) {
	b := &domain.BillingRecord{}
	if err := scan(&b.ID, &b.UnitID, &b.Description, &b.Kind, &b.TotalCents, &b.DueDate, &b.Status,
		&b.JournalEntryID, &b.CreatedBy, &b.CreatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

const chargeColumns = `c.id, c.unit_id, c.billing_record_id, c.scout_account_id, c.amount_cents, c.paid_cents,
	c.status, c.paid_at, b.description, c.created_at`

const chargeFrom = ` FROM charges c JOIN billing_records b ON b.id = c.billing_record_id`

func scanCharge(scan func(dest ...any) error) (*domain.Charge, error) {
	c := &domain.Charge{}
	if err := scan(&c.ID, &c.UnitID, &c.BillingRecordID, &c.ScoutAccountID, &c.AmountCents, &c.PaidCents,
		&c.Status, &c.PaidAt, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *financeRepository) listCharges(ctx context.Context, where string, args ...any) ([]domain.Charge, error) {
	rows, err := r.query(ctx, `SELECT `+chargeColumns+chargeFrom+` WHERE `+where+` ORDER BY c.created_at, c.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Charge
	for rows.Next() {
		c, err := scanCharge(rows.Scan)
		if err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, *c)
	}
	return out, r.d.TranslateError(rows.Err())
}

func (r *financeRepository) GetBilling(ctx context.Context, unitID, id int64) (*domain.BillingRecord, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+billingColumns+` FROM billing_records WHERE unit_id = ? AND id = ?`), unitID, id)
	b, err := scanBilling(row.Scan)
	if err != nil {
		return nil, r.d.TranslateError(err)
	}
	b.Charges, err = r.listCharges(ctx, `c.unit_id = ? AND c.billing_record_id = ?`, unitID, id)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBilling lists billing records newest first with charges / Liste les facturations avec charges
func (r *financeRepository) ListBilling(ctx context.Context, unitID int64) ([]domain.BillingRecord, error) {
	rows, err := r.query(ctx, `SELECT `+billingColumns+` FROM billing_records WHERE unit_id = ? ORDER BY created_at DESC, id DESC`, unitID)
	if err != nil {
		return nil, err
	}
	var out []domain.BillingRecord
	for rows.Next() {
		b, err := scanBilling(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, r.d.TranslateError(err)
		}
		out = append(out, *b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, r.d.TranslateError(err)
	}

	charges, err := r.listCharges(ctx, `c.unit_id = ?`, unitID)
	if err != nil {
		return nil, err
	}
	byRecord := make(map[int64][]domain.Charge)
	for _, c := range charges {
		byRecord[c.BillingRecordID] = append(byRecord[c.BillingRecordID], c)
	}
	for i := range out {
		out[i].Charges = byRecord[out[i].ID]
	}
	return out, nil
}

// VoidBilling marks a record and its open charges void / Annule une facturation et ses charges ouvertes
func (r *financeRepository) VoidBilling(ctx context.Context, unitID, id int64) error {
	// Voiding locks the open charges first; a payment committed since the
	// caller's read leaves its charge unvoided and fails the check below
	if _, err := r.exec(ctx, `UPDATE charges SET status = ? WHERE unit_id = ? AND billing_record_id = ? AND status = ? AND paid_cents = 0`,
		string(domain.ChargeVoid), unitID, id, string(domain.ChargeOpen)); err != nil {
		return err
	}
	paid, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM charges WHERE unit_id = ? AND billing_record_id = ? AND paid_cents > 0)`,
		unitID, id)
	if err != nil {
		return err
	}
	if paid {
		return fmt.Errorf("billing record %d has payments applied: %w", id, db.ErrCheckViolation)
	}
	return r.execOne(ctx, `UPDATE billing_records SET status = ?, updated_at = ? WHERE unit_id = ? AND id = ? AND status = ?`,
		string(domain.BillingVoid), now(), unitID, id, string(domain.BillingOpen))
}

func (r *financeRepository) GetCharge(ctx context.Context, unitID, id int64) (*domain.Charge, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+chargeColumns+chargeFrom+` WHERE c.unit_id = ? AND c.id = ?`), unitID, id)
	c, err := scanCharge(row.Scan)
	return c, r.d.TranslateError(err)
}

// OpenCharges lists unpaid charges oldest first / Liste les charges impayées
func (r *financeRepository) OpenCharges(ctx context.Context, unitID, scoutAccountID int64) ([]domain.Charge, error) {
	return r.listCharges(ctx, `c.unit_id = ? AND c.scout_account_id = ? AND c.status = ?`,
		unitID, scoutAccountID, string(domain.ChargeOpen))
}

// AllocateCharge adds amount to an open charge, closing it once fully paid.
// It fails with ErrNoRecord when the charge is no longer open or the amount
// exceeds what is still outstanding.
// Status and paid_at are assigned before paid_cents: MySQL evaluates SET
// left to right against already-updated columns.
func (r *financeRepository) AllocateCharge(ctx context.Context, unitID, chargeID, amount int64, at time.Time) error {
	return r.execOne(ctx, `
		UPDATE charges
		SET status = CASE WHEN paid_cents + ? >= amount_cents THEN ? ELSE status END,
		    paid_at = CASE WHEN paid_cents + ? >= amount_cents THEN ? ELSE paid_at END,
		    paid_cents = paid_cents + ?
		WHERE unit_id = ? AND id = ? AND status = ? AND paid_cents + ? <= amount_cents`,
		amount, string(domain.ChargePaid),
		amount, at.UTC(),
		amount,
		unitID, chargeID, string(domain.ChargeOpen), amount)
}

// Payments / Paiements

func (r *financeRepository) CreatePayment(ctx context.Context, p *domain.Payment) error {
	ts := now()
	id, err := r.insert(ctx, `
		INSERT INTO payments (unit_id, scout_account_id, gross_cents, fee_cents, net_cents, method, reference, note,
			idempotency_key, journal_entry_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UnitID, p.ScoutAccountID, p.GrossCents, p.FeeCents, p.NetCents, string(p.Method), p.Reference, p.Note,
		p.IdempotencyKey, p.JournalEntryID, p.CreatedBy, ts)
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = ts

	for _, a := range p.Allocations {
		if _, err := r.exec(ctx, `INSERT INTO payment_allocations (payment_id, charge_id, amount_cents) VALUES (?, ?, ?)`,
			p.ID, a.ChargeID, a.AmountCents); err != nil {
			return err
		}
	}
	return nil
}

const paymentColumns = `id, unit_id, scout_account_id, gross_cents, fee_cents, net_cents, method, reference, note,
	idempotency_key, journal_entry_id, created_by, created_at`

func scanPayment(scan func(dest ...any) error) (*domain.Payment, error) {
	p := &domain.Payment{}
	if err := scan(&p.ID, &p.UnitID, &p.ScoutAccountID, &p.GrossCents, &p.FeeCents, &p.NetCents, &p.Method,
		&p.Reference, &p.Note, &p.IdempotencyKey, &p.JournalEntryID, &p.CreatedBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *financeRepository) GetPaymentByKey(ctx context.Context, unitID int64, key string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT `+paymentColumns+` FROM payments WHERE unit_id = ? AND idempotency_key = ?`), unitID, key)
	p, err := scanPayment(row.Scan)
	if err != nil {
		return nil, r.d.TranslateError(err)
	}

	rows, err := r.query(ctx, `SELECT charge_id, amount_cents FROM payment_allocations WHERE payment_id = ? ORDER BY charge_id`, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.PaymentAllocation
		if err := rows.Scan(&a.ChargeID, &a.AmountCents); err != nil {
			return nil, r.d.TranslateError(err)
		}
		p.Allocations = append(p.Allocations, a)
	}
	return p, r.d.TranslateError(rows.Err())
}

// ListPayments lists payments newest first, for one account when scoutAccountID > 0
func (r *financeRepository) ListPayments(ctx context.Context, unitID, scoutAccountID int64) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE unit_id = ?`
	args := []any{unitID}
	if scoutAccountID > 0 {
		query += ` AND scout_account_id = ?`
		args = append(args, scoutAccountID)
	}
	rows, err := r.query(ctx, query+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, r.d.TranslateError(err)
		}
		out = append(out, *p)
	}
	return out, r.d.TranslateError(rows.Err())
}
