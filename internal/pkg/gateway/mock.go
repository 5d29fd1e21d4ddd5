package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockGateway is an in-memory gateway used in local development and tests.
// Orders succeed and return deterministic-looking ids; FailNext can be set
// to simulate a provider outage.
type MockGateway struct {
	mu       sync.Mutex
	orders   map[string]*Order
	payments map[string]*PaymentEntity
	FailNext *Error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		orders:   make(map[string]*Order),
		payments: make(map[string]*PaymentEntity),
	}
}

func (g *MockGateway) takeFailure() *Error {
	g.mu.Lock()
	defer g.mu.Unlock()
	err := g.FailNext
	g.FailNext = nil
	return err
}

func (g *MockGateway) CreateOrder(_ context.Context, amount float64, currency, receipt string, _ map[string]string) (*Order, error) {
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	order := &Order{
		ID:       "order_" + uuid.New().String()[:12],
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}
	g.mu.Lock()
	g.orders[order.ID] = order
	g.mu.Unlock()
	return order, nil
}

func (g *MockGateway) FetchPayment(_ context.Context, paymentID string) (*PaymentEntity, error) {
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.payments[paymentID]; ok {
		return p, nil
	}
	return nil, &Error{Code: "not_found", Description: fmt.Sprintf("payment %s not found", paymentID)}
}

func (g *MockGateway) Refund(_ context.Context, paymentID string, amount float64) (*RefundEntity, error) {
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	return &RefundEntity{
		ID:        "rfnd_" + uuid.New().String()[:12],
		PaymentID: paymentID,
		Amount:    amount,
	}, nil
}

// RegisterPayment seeds a captured payment, mimicking a checkout completed
// by the payer on the provider side.
func (g *MockGateway) RegisterPayment(p *PaymentEntity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[p.ID] = p
}

// OrderCount reports how many orders were opened. Tests use it to prove that
// duplicate initiate calls did not reach the provider twice.
func (g *MockGateway) OrderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}
