package dto

import (
	"time"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/finance"
	"github.com/richblaalid/chuckbox/internal/roster"
	"github.com/richblaalid/chuckbox/internal/service"
)

// AccountResponse is a scout account with both balances / Compte scout avec ses deux soldes
//
// A negative billing balance means the scout has prepaid.
type AccountResponse struct {
	ID                  int64     `json:"id"`
	ScoutID             int64     `json:"scout_id"`
	ScoutName           string    `json:"scout_name,omitempty"`
	BillingBalanceCents int64     `json:"billing_balance_cents"`
	FundsBalanceCents   int64     `json:"funds_balance_cents"`
	BillingBalance      string    `json:"billing_balance"`
	FundsBalance        string    `json:"funds_balance"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AccountToDTO converts a scout account / Convertit un compte scout
func AccountToDTO(a *domain.ScoutAccount) *AccountResponse {
	return &AccountResponse{
		ID:                  a.ID,
		ScoutID:             a.ScoutID,
		ScoutName:           a.ScoutName,
		BillingBalanceCents: a.BillingBalanceCents,
		FundsBalanceCents:   a.FundsBalanceCents,
		BillingBalance:      finance.FormatCents(a.BillingBalanceCents),
		FundsBalance:        finance.FormatCents(a.FundsBalanceCents),
		UpdatedAt:           a.UpdatedAt,
	}
}

// AccountsToDTO converts a list of accounts / Convertit une liste de comptes
func AccountsToDTO(as []domain.ScoutAccount) []*AccountResponse {
	out := make([]*AccountResponse, 0, len(as))
	for i := range as {
		out = append(out, AccountToDTO(&as[i]))
	}
	return out
}

// ChargeResponse is one scout's share of a billing / Part d'un scout dans une facturation
type ChargeResponse struct {
	ID               int64      `json:"id"`
	BillingRecordID  int64      `json:"billing_record_id"`
	ScoutAccountID   int64      `json:"scout_account_id"`
	Description      string     `json:"description,omitempty"`
	AmountCents      int64      `json:"amount_cents"`
	PaidCents        int64      `json:"paid_cents"`
	OutstandingCents int64      `json:"outstanding_cents"`
	Status           string     `json:"status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

func chargeToDTO(c *domain.Charge) ChargeResponse {
	return ChargeResponse{
		ID:               c.ID,
		BillingRecordID:  c.BillingRecordID,
		ScoutAccountID:   c.ScoutAccountID,
		Description:      c.Description,
		AmountCents:      c.AmountCents,
		PaidCents:        c.PaidCents,
		OutstandingCents: c.Outstanding(),
		Status:           string(c.Status),
		PaidAt:           c.PaidAt,
	}
}

// BillingResponse is a billing record with its charges / Facturation et ses charges
type BillingResponse struct {
	ID             int64            `json:"id"`
	Description    string           `json:"description"`
	Kind           string           `json:"kind"`
	TotalCents     int64            `json:"total_cents"`
	DueDate        string           `json:"due_date,omitempty"`
	Status         string           `json:"status"`
	JournalEntryID int64            `json:"journal_entry_id"`
	CreatedAt      time.Time        `json:"created_at"`
	Charges        []ChargeResponse `json:"charges"`
}

// BillingToDTO converts a billing record / Convertit une facturation
func BillingToDTO(b *domain.BillingRecord) *BillingResponse {
	out := &BillingResponse{
		ID:             b.ID,
		Description:    b.Description,
		Kind:           string(b.Kind),
		TotalCents:     b.TotalCents,
		Status:         string(b.Status),
		JournalEntryID: b.JournalEntryID,
		CreatedAt:      b.CreatedAt,
		Charges:        make([]ChargeResponse, 0, len(b.Charges)),
	}
	if b.DueDate != nil {
		out.DueDate = b.DueDate.Format(dateLayout)
	}
	for i := range b.Charges {
		out.Charges = append(out.Charges, chargeToDTO(&b.Charges[i]))
	}
	return out
}

// BillingsToDTO converts billing records / Convertit des facturations
func BillingsToDTO(bs []domain.BillingRecord) []*BillingResponse {
	out := make([]*BillingResponse, 0, len(bs))
	for i := range bs {
		out = append(out, BillingToDTO(&bs[i]))
	}
	return out
}

// BillingRequest creates a billing / Crée une facturation
type BillingRequest struct {
	Description    string  `json:"description"`
	Kind           string  `json:"kind"`
	AmountCents    int64   `json:"amount_cents"`
	ScoutIDs       []int64 `json:"scout_ids"`
	DueDate        string  `json:"due_date"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// ToInput parses kind and due date / Analyse le type et l'échéance
func (r BillingRequest) ToInput() (service.BillingInput, error) {
	kind, err := domain.ParseBillingKind(r.Kind)
	if err != nil {
		return service.BillingInput{}, err
	}
	due, err := roster.ParseDate(r.DueDate)
	if err != nil {
		return service.BillingInput{}, err
	}
	return service.BillingInput{
		Description:    r.Description,
		Kind:           kind,
		AmountCents:    r.AmountCents,
		ScoutIDs:       r.ScoutIDs,
		DueDate:        due,
		IdempotencyKey: r.IdempotencyKey,
	}, nil
}

// PaymentResponse is money received for a scout account / Paiement reçu pour un compte scout
type PaymentResponse struct {
	ID             int64                      `json:"id"`
	ScoutAccountID int64                      `json:"scout_account_id"`
	GrossCents     int64                      `json:"gross_cents"`
	FeeCents       int64                      `json:"fee_cents"`
	NetCents       int64                      `json:"net_cents"`
	Method         string                     `json:"method"`
	Reference      string                     `json:"reference,omitempty"`
	Note           finance.Note               `json:"note"`
	JournalEntryID int64                      `json:"journal_entry_id"`
	CreatedAt      time.Time                  `json:"created_at"`
	Allocations    []domain.PaymentAllocation `json:"allocations,omitempty"`
}

// PaymentToDTO converts a payment and decodes its note / Convertit un paiement et décode sa note
func PaymentToDTO(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:             p.ID,
		ScoutAccountID: p.ScoutAccountID,
		GrossCents:     p.GrossCents,
		FeeCents:       p.FeeCents,
		NetCents:       p.NetCents,
		Method:         string(p.Method),
		Reference:      p.Reference,
		Note:           finance.ParseNote(p.Note),
		JournalEntryID: p.JournalEntryID,
		CreatedAt:      p.CreatedAt,
		Allocations:    p.Allocations,
	}
}

// PaymentsToDTO converts payments / Convertit des paiements
func PaymentsToDTO(ps []domain.Payment) []*PaymentResponse {
	out := make([]*PaymentResponse, 0, len(ps))
	for i := range ps {
		out = append(out, PaymentToDTO(&ps[i]))
	}
	return out
}

// PaymentRequest records a manual payment / Enregistre un paiement manuel
type PaymentRequest struct {
	ScoutAccountID int64             `json:"scout_account_id"`
	AmountCents    int64             `json:"amount_cents"`
	FeeCents       int64             `json:"fee_cents"`
	Method         string            `json:"method"`
	Reference      string            `json:"reference"`
	Memo           string            `json:"memo"`
	Meta           map[string]string `json:"meta"`
	ChargeIDs      []int64           `json:"charge_ids"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// ToInput parses the payment method / Analyse le moyen de paiement
func (r PaymentRequest) ToInput() (service.PaymentInput, error) {
	method, err := domain.ParsePaymentMethod(r.Method)
	if err != nil {
		return service.PaymentInput{}, err
	}
	return service.PaymentInput{
		ScoutAccountID: r.ScoutAccountID,
		GrossCents:     r.AmountCents,
		FeeCents:       r.FeeCents,
		Method:         method,
		Reference:      r.Reference,
		Memo:           r.Memo,
		Meta:           r.Meta,
		IdempotencyKey: r.IdempotencyKey,
		ChargeIDs:      r.ChargeIDs,
	}, nil
}

// MarkPaidRequest settles one charge in full / Solde une charge en totalité
type MarkPaidRequest struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

// AmountRequest moves an amount on a scout account / Mouvement d'un montant sur un compte
type AmountRequest struct {
	AmountCents    int64  `json:"amount_cents"`
	Description    string `json:"description"`
	IdempotencyKey string `json:"idempotency_key"`
}

// SquarePaymentRequest is a card payment token from the web SDK / Jeton de paiement carte
type SquarePaymentRequest struct {
	ScoutAccountID int64   `json:"scout_account_id"`
	AmountCents    int64   `json:"amount_cents"`
	SourceID       string  `json:"source_id"`
	ChargeIDs      []int64 `json:"charge_ids"`
	PayerEmail     string  `json:"payer_email"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// ToInput maps to the service request / Convertit vers la requête du service
func (r SquarePaymentRequest) ToInput() service.SquarePayment {
	return service.SquarePayment{
		ScoutAccountID: r.ScoutAccountID,
		AmountCents:    r.AmountCents,
		SourceID:       r.SourceID,
		ChargeIDs:      r.ChargeIDs,
		PayerEmail:     r.PayerEmail,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// JournalEntryResponse is a posted entry / Écriture passée
type JournalEntryResponse struct {
	ID          int64                 `json:"id"`
	Kind        string                `json:"kind"`
	Description string                `json:"description"`
	PostedAt    time.Time             `json:"posted_at"`
	Lines       []JournalLineResponse `json:"lines"`
}

// JournalLineResponse is one debit or credit / Un débit ou un crédit
type JournalLineResponse struct {
	AccountCode    string `json:"account_code"`
	AccountName    string `json:"account_name"`
	ScoutAccountID *int64 `json:"scout_account_id,omitempty"`
	DebitCents     int64  `json:"debit_cents"`
	CreditCents    int64  `json:"credit_cents"`
	Memo           string `json:"memo,omitempty"`
}

// JournalEntryToDTO converts an entry / Convertit une écriture
func JournalEntryToDTO(e *domain.JournalEntry) *JournalEntryResponse {
	out := &JournalEntryResponse{
		ID:          e.ID,
		Kind:        string(e.Kind),
		Description: e.Description,
		PostedAt:    e.PostedAt,
		Lines:       make([]JournalLineResponse, 0, len(e.Lines)),
	}
	for _, l := range e.Lines {
		out.Lines = append(out.Lines, JournalLineResponse{
			AccountCode:    string(l.AccountCode),
			AccountName:    l.AccountCode.Name(),
			ScoutAccountID: l.ScoutAccountID,
			DebitCents:     l.DebitCents,
			CreditCents:    l.CreditCents,
			Memo:           l.Memo,
		})
	}
	return out
}
