package ports

import (
	"context"
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
)

// StatementLine is one posting affecting a scout account / Mouvement sur un compte scout
type StatementLine struct {
	EntryID     int64              `json:"entry_id"`
	Kind        domain.EntryKind   `json:"kind"`
	Description string             `json:"description"`
	PostedAt    time.Time          `json:"posted_at"`
	AccountCode domain.AccountCode `json:"account_code"`
	DebitCents  int64              `json:"debit_cents"`
	CreditCents int64              `json:"credit_cents"`
	Memo        string             `json:"memo,omitempty"`
}

// LedgerTotals is the journal recomputation used by reconciliation / Recalcul du journal
type LedgerTotals struct {
	Entries           int
	UnbalancedEntries []int64
	TotalDebitCents   int64
	TotalCreditCents  int64
	Balances          map[int64]domain.BalanceDelta // By scout account / Par compte scout
}

// AccountRepository stores scout accounts / Stocke les comptes scouts
type AccountRepository interface {
	CreateAccount(ctx context.Context, unitID, scoutID int64) (*domain.ScoutAccount, error)
	GetAccount(ctx context.Context, unitID, id int64) (*domain.ScoutAccount, error)
	GetAccountByScout(ctx context.Context, unitID, scoutID int64) (*domain.ScoutAccount, error)
	ListAccounts(ctx context.Context, unitID int64) ([]domain.ScoutAccount, error)
	// ApplyDeltas adjusts cached balances / Ajuste les soldes en cache
	ApplyDeltas(ctx context.Context, unitID int64, deltas map[int64]domain.BalanceDelta, at time.Time) error
}

// JournalRepository stores journal entries / Stocke les écritures
type JournalRepository interface {
	// InsertEntry stores an entry and its lines / Stocke une écriture et ses lignes
	InsertEntry(ctx context.Context, e *domain.JournalEntry) error
	GetEntry(ctx context.Context, unitID, id int64) (*domain.JournalEntry, error)
	GetEntryByKey(ctx context.Context, unitID int64, key string) (*domain.JournalEntry, error)
	Statement(ctx context.Context, unitID, scoutAccountID int64) ([]StatementLine, error)
	Totals(ctx context.Context, unitID int64) (*LedgerTotals, error)
}

// BillingRepository stores billing records, charges and payments / Stocke facturations, charges et paiements
type BillingRepository interface {
	CreateBilling(ctx context.Context, b *domain.BillingRecord) error
	GetBilling(ctx context.Context, unitID, id int64) (*domain.BillingRecord, error)
	ListBilling(ctx context.Context, unitID int64) ([]domain.BillingRecord, error)
	VoidBilling(ctx context.Context, unitID, id int64) error

	GetCharge(ctx context.Context, unitID, id int64) (*domain.Charge, error)
	// OpenCharges lists unpaid charges oldest first / Liste les charges impayées, plus anciennes d'abord
	OpenCharges(ctx context.Context, unitID, scoutAccountID int64) ([]domain.Charge, error)
	// AllocateCharge adds amount to an open charge without overpaying it / Impute un montant sur une charge ouverte
	AllocateCharge(ctx context.Context, unitID, chargeID, amount int64, at time.Time) error

	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPaymentByKey(ctx context.Context, unitID int64, key string) (*domain.Payment, error)
	ListPayments(ctx context.Context, unitID, scoutAccountID int64) ([]domain.Payment, error)
}

// FinanceRepository groups the ledger stores that post together / Regroupe les stocks comptables
type FinanceRepository interface {
	AccountRepository
	JournalRepository
	BillingRepository
	WithTx(dbtx DBTX) FinanceRepository
}
