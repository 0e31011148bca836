package web

import (
	"net/http"
	"strconv"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/dto"
)

// IdempotencyKeyHeader is read when the body carries no key / Lu si le corps n'a pas de clé
const IdempotencyKeyHeader = "Idempotency-Key"

func idempotencyKey(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	return r.Header.Get(IdempotencyKeyHeader)
}

// ListAccounts lists scout accounts visible to the caller / Liste les comptes visibles
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	accounts, err := h.container.LedgerSvc.ListAccounts(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"accounts": dto.AccountsToDTO(accounts)})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := h.container.LedgerSvc.GetAccount(r.Context(), m, accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.AccountToDTO(acct))
}

func (h *Handler) ScoutAccount(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	scoutID, err := pathID(r, "scoutID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := h.container.LedgerSvc.AccountForScout(r.Context(), m, scoutID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.AccountToDTO(acct))
}

// Statement returns account activity with running balances / Retourne le relevé du compte
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := h.container.LedgerSvc.Statement(r.Context(), m, accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"lines": lines})
}

func (h *Handler) ListAccountPayments(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.container.LedgerSvc.ListPayments(r.Context(), m, accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"payments": dto.PaymentsToDTO(payments)})
}

// CreateBilling charges scouts for an expense / Facture les scouts pour une dépense
func (h *Handler) CreateBilling(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.BillingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.IdempotencyKey = idempotencyKey(r, in.IdempotencyKey)

	b, err := h.container.LedgerSvc.CreateBilling(r.Context(), m, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.BillingToDTO(b))
}

func (h *Handler) ListBilling(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	records, err := h.container.LedgerSvc.ListBilling(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, map[string]any{"billing": dto.BillingsToDTO(records)})
}

// VoidBilling reverses a billing and its unpaid charges / Annule une facturation
func (h *Handler) VoidBilling(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	billingID, err := pathID(r, "billingID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.container.LedgerSvc.VoidBilling(r.Context(), m, billingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, dto.BillingToDTO(b))
}

// RecordPayment records cash, check or transfer money / Enregistre un paiement manuel
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.IdempotencyKey = idempotencyKey(r, in.IdempotencyKey)

	p, err := h.container.LedgerSvc.RecordPayment(r.Context(), m, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.PaymentToDTO(p))
}

func (h *Handler) MarkChargePaid(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	chargeID, err := pathID(r, "chargeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.MarkPaidRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.container.LedgerSvc.MarkChargePaid(r.Context(), m, chargeID, method, req.Reference)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.PaymentToDTO(p))
}

// ApplyFunds settles open charges from the scout's credit / Solde des charges avec le crédit du scout
func (h *Handler) ApplyFunds(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.container.LedgerSvc.ApplyFunds(r.Context(), m, accountID, req.AmountCents, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.PaymentToDTO(p))
}

// CreditFundraiser credits fundraising earnings / Crédite des gains de collecte
func (h *Handler) CreditFundraiser(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dto.AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.container.LedgerSvc.CreditFundraiser(r.Context(), m, accountID, req.AmountCents,
		req.Description, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.JournalEntryToDTO(entry))
}

// Reconcile compares cached balances with the journal / Compare les soldes au journal
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	report, err := h.container.LedgerSvc.Reconcile(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, report)
}

// QuotePayment shows the card fee breakdown for ?amount_cents / Détail des frais carte
func (h *Handler) QuotePayment(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount_cents"), 10, 64)
	if err != nil {
		ErrorResponse(w, "invalid amount_cents", http.StatusBadRequest)
		return
	}
	breakdown, err := h.container.PaymentSvc.Quote(r.Context(), m.UnitID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, breakdown)
}

// PayWithSquare charges a card through Square / Débite une carte via Square
func (h *Handler) PayWithSquare(w http.ResponseWriter, r *http.Request) {
	m, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.SquarePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := req.ToInput()
	in.IdempotencyKey = idempotencyKey(r, in.IdempotencyKey)

	p, err := h.container.PaymentSvc.PayWithSquare(r.Context(), m, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonStatus(w, http.StatusCreated, dto.PaymentToDTO(p))
}
