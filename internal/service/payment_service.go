package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/finance"
	"github.com/richblaalid/chuckbox/internal/ports"
)

// SquarePayment is a card payment request from the web payments SDK / Demande de paiement carte
type SquarePayment struct {
	ScoutAccountID int64
	AmountCents    int64 // Amount credited to the scout before any passed-on fee
	SourceID       string
	ChargeIDs      []int64
	PayerEmail     string
	IdempotencyKey string
}

// PaymentService takes card payments through the gateway / Encaisse les paiements carte
type PaymentService struct {
	gateway ports.PaymentGateway
	ledger  *LedgerService
	units   ports.UnitRepository
	finance ports.FinanceRepository
	access  *Access
	mailer  *Mailer
	metrics LedgerMetricsRecorder
}

// NewPaymentService creates the payment service; a nil gateway disables card payments.
func NewPaymentService(
	gateway ports.PaymentGateway,
	ledger *LedgerService,
	units ports.UnitRepository,
	fin ports.FinanceRepository,
	access *Access,
	mailer *Mailer,
	metrics LedgerMetricsRecorder,
) *PaymentService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &PaymentService{
		gateway: gateway,
		ledger:  ledger,
		units:   units,
		finance: fin,
		access:  access,
		mailer:  mailer,
		metrics: metrics,
	}
}

// Quote returns the breakdown a payer would be charged / Retourne le détail d'un paiement
func (s *PaymentService) Quote(ctx context.Context, unitID, amountCents int64) (finance.Breakdown, error) {
	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return finance.Breakdown{}, repoErr("unit", err)
	}
	return quote(unit.Fees, amountCents)
}

func quote(fees domain.FeeSettings, amount int64) (finance.Breakdown, error) {
	if fees.PassToPayer {
		return finance.GrossUp(amount, fees)
	}
	return finance.Net(amount, fees)
}

// PayWithSquare charges a card and records the payment / Débite une carte et enregistre le paiement
func (s *PaymentService) PayWithSquare(ctx context.Context, actor *domain.Membership, in SquarePayment) (*domain.Payment, error) {
	if s.gateway == nil {
		return nil, domain.ErrPaymentsDisabled
	}
	if in.AmountCents <= 0 {
		return nil, invalid("amount must be positive")
	}
	if strings.TrimSpace(in.SourceID) == "" {
		return nil, invalid("card source is required")
	}

	acct, err := s.finance.GetAccount(ctx, actor.UnitID, in.ScoutAccountID)
	if err != nil {
		return nil, repoErr("scout account", err)
	}
	if err := s.access.CanAccessScout(ctx, actor, acct.ScoutID, domain.PermissionPaymentsCollect, domain.PermissionPaymentsMake); err != nil {
		return nil, err
	}

	unit, err := s.units.GetByID(ctx, actor.UnitID)
	if err != nil {
		return nil, repoErr("unit", err)
	}
	if unit.SquareLocationID == "" {
		return nil, domain.ErrPaymentsDisabled
	}

	breakdown, err := quote(unit.Fees, in.AmountCents)
	if err != nil {
		return nil, err
	}

	key, err := normalizeKey(in.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	// A retried request with a recorded key must not reach the gateway again
	if prior, err := s.finance.GetPaymentByKey(ctx, actor.UnitID, key); err == nil {
		return prior, nil
	}

	res, err := s.gateway.CreatePayment(ctx, ports.ChargeRequest{
		IdempotencyKey: key,
		SourceID:       in.SourceID,
		AmountCents:    breakdown.GrossCents,
		LocationID:     unit.SquareLocationID,
		ReferenceID:    fmt.Sprintf("acct-%d", acct.ID),
		Note:           fmt.Sprintf("%s: %s", unit.DisplayName(), acct.ScoutName),
		BuyerEmail:     in.PayerEmail,
	})
	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrPaymentDeclined) {
			status = "declined"
		}
		s.metrics.RecordPayment(string(domain.PaymentSquare), status, breakdown.GrossCents)
		slog.Warn("square payment failed", "unit_id", actor.UnitID, "account_id", acct.ID, "err", err)
		return nil, err
	}

	meta := map[string]string{"receipt_url": res.ReceiptURL}
	if res.CardBrand != "" {
		meta["card"] = strings.TrimSpace(res.CardBrand + " " + res.Last4)
	}
	payment, err := s.ledger.recordPayment(ctx, actor.UnitID, actor.ProfileID, PaymentInput{
		ScoutAccountID: acct.ID,
		GrossCents:     breakdown.GrossCents,
		FeeCents:       breakdown.FeeCents,
		Method:         domain.PaymentSquare,
		Reference:      res.PaymentID,
		Memo:           "Online card payment",
		Meta:           meta,
		IdempotencyKey: key,
		ChargeIDs:      in.ChargeIDs,
		CreditCents:    in.AmountCents,
	})
	if err != nil {
		// The card was charged; the key lets an operator replay the posting
		slog.Error("square payment captured but not recorded", "unit_id", actor.UnitID,
			"square_payment_id", res.PaymentID, "idempotency_key", key, "err", err)
		return nil, err
	}

	if in.PayerEmail != "" && s.mailer != nil {
		s.mailer.SendAsync(TemplatePaymentReceipt, in.PayerEmail, paymentReceiptEmail{
			UnitName:   unit.DisplayName(),
			ScoutName:  acct.ScoutName,
			Amount:     finance.FormatCents(payment.GrossCents),
			Fee:        finance.FormatCents(payment.FeeCents),
			Method:     "Card " + meta["card"],
			Date:       payment.CreatedAt.Format("January 2, 2006"),
			Reference:  res.PaymentID,
			ReceiptURL: res.ReceiptURL,
		})
	}
	return payment, nil
}
