package mocks

import (
	"context"
	"sync"

	"github.com/richblaalid/chuckbox/internal/ports"
)

var _ ports.PaymentGateway = (*MockPaymentGateway)(nil)

// MockPaymentGateway answers card charges from a configurable function
type MockPaymentGateway struct {
	mu       sync.Mutex
	Requests []ports.ChargeRequest

	CreatePaymentFunc func(req ports.ChargeRequest) (*ports.ChargeResult, error)
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(req)
	}
	return &ports.ChargeResult{
		PaymentID:  "sq_" + req.IdempotencyKey,
		Status:     "COMPLETED",
		ReceiptURL: "https://squareup.com/receipt/preview/" + req.IdempotencyKey,
		CardBrand:  "VISA",
		Last4:      "1111",
	}, nil
}

// Calls returns how many charges were attempted
func (m *MockPaymentGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
