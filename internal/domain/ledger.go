package domain

import (
	"fmt"
	"time"
)

// AccountCode identifies a ledger account in the unit chart / Code de compte du plan comptable
type AccountCode string

// Chart of accounts / Plan comptable
const (
	AccountCash             AccountCode = "1000"
	AccountSquareClearing   AccountCode = "1010"
	AccountScoutReceivables AccountCode = "1200"
	AccountScoutFunds       AccountCode = "2100"
	AccountProgramIncome    AccountCode = "4000"
	AccountFundraising      AccountCode = "4100"
	AccountProcessingFees   AccountCode = "5100"
)

var accountNames = map[AccountCode]string{
	AccountCash:             "Cash",
	AccountSquareClearing:   "Square Clearing",
	AccountScoutReceivables: "Scout Receivables",
	AccountScoutFunds:       "Scout Funds",
	AccountProgramIncome:    "Program Income",
	AccountFundraising:      "Fundraising Income",
	AccountProcessingFees:   "Processing Fees",
}

// Name returns the account's display name / Retourne le nom du compte
func (c AccountCode) Name() string {
	return accountNames[c]
}

// IsValid checks the code is in the chart / Vérifie que le code existe
func (c AccountCode) IsValid() bool {
	_, ok := accountNames[c]
	return ok
}

// PerScout reports whether lines on this account must name a scout account.
func (c AccountCode) PerScout() bool {
	return c == AccountScoutReceivables || c == AccountScoutFunds
}

// EntryKind classifies journal entries / Classe les écritures
type EntryKind string

const (
	EntryBilling      EntryKind = "billing"
	EntryPayment      EntryKind = "payment"
	EntryFundraiser   EntryKind = "fundraiser"
	EntryFundsApplied EntryKind = "funds_applied"
	EntryVoid         EntryKind = "void"
)

// JournalEntry is a balanced set of debit and credit lines / Écriture équilibrée
type JournalEntry struct {
	ID              int64
	UnitID          int64
	Kind            EntryKind
	Description     string
	IdempotencyKey  string
	ReversesEntryID *int64
	PostedAt        time.Time
	CreatedBy       int64
	Lines           []JournalLine
}

// JournalLine is one side of a posting / Une ligne d'écriture
type JournalLine struct {
	ID             int64
	EntryID        int64
	AccountCode    AccountCode
	ScoutAccountID *int64
	DebitCents     int64
	CreditCents    int64
	Memo           string
}

// Debit builds a debit line / Construit une ligne de débit
func Debit(code AccountCode, scoutAccountID *int64, cents int64, memo string) JournalLine {
	return JournalLine{AccountCode: code, ScoutAccountID: scoutAccountID, DebitCents: cents, Memo: memo}
}

// Credit builds a credit line / Construit une ligne de crédit
func Credit(code AccountCode, scoutAccountID *int64, cents int64, memo string) JournalLine {
	return JournalLine{AccountCode: code, ScoutAccountID: scoutAccountID, CreditCents: cents, Memo: memo}
}

// Totals returns the debit and credit sums / Retourne les totaux débit et crédit
func (e *JournalEntry) Totals() (debit, credit int64) {
	for _, l := range e.Lines {
		debit += l.DebitCents
		credit += l.CreditCents
	}
	return debit, credit
}

// Validate checks the double-entry invariants / Vérifie les invariants de partie double
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return fmt.Errorf("%w: an entry needs at least two lines", ErrUnbalancedEntry)
	}
	for i, l := range e.Lines {
		if !l.AccountCode.IsValid() {
			return fmt.Errorf("%w: line %d uses unknown account %q", ErrUnbalancedEntry, i+1, l.AccountCode)
		}
		if l.DebitCents < 0 || l.CreditCents < 0 {
			return fmt.Errorf("%w: line %d has a negative amount", ErrUnbalancedEntry, i+1)
		}
		if (l.DebitCents > 0) == (l.CreditCents > 0) {
			return fmt.Errorf("%w: line %d must be exactly one of debit or credit", ErrUnbalancedEntry, i+1)
		}
		if l.AccountCode.PerScout() && l.ScoutAccountID == nil {
			return fmt.Errorf("%w: line %d on account %s needs a scout account", ErrUnbalancedEntry, i+1, l.AccountCode)
		}
	}
	debit, credit := e.Totals()
	if debit != credit {
		return fmt.Errorf("%w: debits %d != credits %d", ErrUnbalancedEntry, debit, credit)
	}
	return nil
}

// Reverse builds the entry that cancels e / Construit l'écriture d'annulation
func (e *JournalEntry) Reverse(description string, createdBy int64) *JournalEntry {
	rev := &JournalEntry{
		UnitID:          e.UnitID,
		Kind:            EntryVoid,
		Description:     description,
		ReversesEntryID: &e.ID,
		CreatedBy:       createdBy,
		Lines:           make([]JournalLine, len(e.Lines)),
	}
	for i, l := range e.Lines {
		rev.Lines[i] = JournalLine{
			AccountCode:    l.AccountCode,
			ScoutAccountID: l.ScoutAccountID,
			DebitCents:     l.CreditCents,
			CreditCents:    l.DebitCents,
			Memo:           l.Memo,
		}
	}
	return rev
}

// BalanceDelta is the change a posting makes to one scout account.
type BalanceDelta struct {
	BillingCents int64
	FundsCents   int64
}

// ScoutDeltas returns per scout account balance changes / Variations de solde par compte scout
//
// Receivables grow with debits; scout funds are a liability and grow with credits.
func ScoutDeltas(lines []JournalLine) map[int64]BalanceDelta {
	out := make(map[int64]BalanceDelta)
	for _, l := range lines {
		if l.ScoutAccountID == nil {
			continue
		}
		d := out[*l.ScoutAccountID]
		switch l.AccountCode {
		case AccountScoutReceivables:
			d.BillingCents += l.DebitCents - l.CreditCents
		case AccountScoutFunds:
			d.FundsCents += l.CreditCents - l.DebitCents
		default:
			continue
		}
		out[*l.ScoutAccountID] = d
	}
	return out
}

// Mismatch describes a cached balance that disagrees with the journal.
type Mismatch struct {
	ScoutAccountID int64  `json:"scout_account_id"`
	ScoutName      string `json:"scout_name"`
	CachedBilling  int64  `json:"cached_billing_cents"`
	LedgerBilling  int64  `json:"ledger_billing_cents"`
	CachedFunds    int64  `json:"cached_funds_cents"`
	LedgerFunds    int64  `json:"ledger_funds_cents"`
}

// ReconciliationReport summarises a ledger audit / Résume un audit du grand livre
type ReconciliationReport struct {
	UnitID            int64      `json:"unit_id"`
	Entries           int        `json:"entries"`
	UnbalancedEntries []int64    `json:"unbalanced_entries"`
	Mismatches        []Mismatch `json:"mismatches"`
	TotalDebitCents   int64      `json:"total_debit_cents"`
	TotalCreditCents  int64      `json:"total_credit_cents"`
	CheckedAt         time.Time  `json:"checked_at"`
}

// OK reports whether the audit found nothing / Indique si l'audit est propre
func (r *ReconciliationReport) OK() bool {
	return len(r.UnbalancedEntries) == 0 && len(r.Mismatches) == 0 && r.TotalDebitCents == r.TotalCreditCents
}
