package ports

import "context"

// ChargeRequest asks a gateway to take a card payment / Demande de paiement carte
type ChargeRequest struct {
	IdempotencyKey string
	SourceID       string // Card nonce from the web payments SDK
	AmountCents    int64
	LocationID     string
	ReferenceID    string
	Note           string
	BuyerEmail     string
}

// ChargeResult is the gateway's answer / Réponse de la passerelle
type ChargeResult struct {
	PaymentID  string
	Status     string
	ReceiptURL string
	CardBrand  string
	Last4      string
}

// PaymentGateway charges cards / Débite les cartes
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
