package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tripnest/backend/internal/gateway"
)

// Test credentials used by FakeGateway.
const (
	KeyID         = "rzp_test_key"
	KeySecret     = "key_secret"
	WebhookSecret = "webhook_secret"
)

// FakeGateway records orders and refunds and verifies signatures with the real
// HMAC scheme under the test secrets.
type FakeGateway struct {
	mu        sync.Mutex
	Orders    []gateway.OrderRequest
	Refunds   []string
	OrderErr  error
	RefundErr error
	seq       int
}

// CreateOrder implements bookings.OrderGateway.
func (g *FakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.OrderErr != nil {
		return nil, g.OrderErr
	}
	g.seq++
	g.Orders = append(g.Orders, req)
	return &gateway.Order{
		ID:        fmt.Sprintf("order_%d", g.seq),
		Amount:    req.AmountMinor,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     req.Notes,
		ClientKey: KeyID,
	}, nil
}

// Refund implements bookings.RefundGateway.
func (g *FakeGateway) Refund(_ context.Context, paymentID string, amountMinor int64, _ gateway.Notes) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	g.seq++
	g.Refunds = append(g.Refunds, paymentID)
	r := &gateway.Refund{
		ID:        fmt.Sprintf("rfnd_%d", g.seq),
		PaymentID: paymentID,
		Amount:    amountMinor,
		Currency:  "INR",
		Status:    "processed",
	}
	r.Raw, _ = json.Marshal(r)
	return r, nil
}

// VerifyPayment implements bookings.OrderGateway.
func (g *FakeGateway) VerifyPayment(orderID, paymentID, signature string) error {
	return gateway.VerifyPaymentSignature(KeySecret, orderID, paymentID, signature)
}

// VerifyWebhook implements bookings.OrderGateway.
func (g *FakeGateway) VerifyWebhook(body []byte, signature string) error {
	return gateway.VerifyWebhookSignature(WebhookSecret, body, signature)
}

// Currency implements bookings.OrderGateway.
func (g *FakeGateway) Currency() string { return "INR" }

// RefundCount returns the number of successful refunds.
func (g *FakeGateway) RefundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Refunds)
}

// SignPayment returns a valid checkout signature.
func SignPayment(orderID, paymentID string) string {
	return gateway.Sign(KeySecret, []byte(orderID+"|"+paymentID))
}

// SignWebhook returns a valid webhook signature for body.
func SignWebhook(body []byte) string {
	return gateway.Sign(WebhookSecret, body)
}

// CapturedWebhook builds a payment.captured body for a slot.
func CapturedWebhook(eventID, slotID uuid.UUID, paymentID, orderID string, amount int64) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"entity":   "event",
		"event":    gateway.EventPaymentCaptured,
		"contains": []string{"payment"},
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       paymentID,
					"entity":   "payment",
					"amount":   amount,
					"currency": "INR",
					"status":   "captured",
					"order_id": orderID,
					"method":   "upi",
					"notes":    gateway.NotesFor(eventID, slotID),
				},
			},
		},
	})
	return body
}
