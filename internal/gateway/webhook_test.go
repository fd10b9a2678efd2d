package gateway

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/pkg/apperror"
)

const capturedBody = `{
  "entity": "event",
  "account_id": "acc_1",
  "event": "payment.captured",
  "contains": ["payment"],
  "payload": {"payment": {"entity": {
    "id": "pay_29QQoUBi66xm2f",
    "entity": "payment",
    "amount": 300000,
    "currency": "INR",
    "status": "captured",
    "order_id": "order_9A33XWu170gUtm",
    "method": "upi",
    "notes": {"event_id": "6f1c2a4e-8f3e-4a57-9d0a-2b9a9d2f1e11", "slot_id": "0b7f4a52-3c8e-4bd2-9e6b-6a0a3c1f7d22"}
  }}},
  "created_at": 1700000000
}`

func TestParseWebhookCaptured(t *testing.T) {
	ev, err := ParseWebhook([]byte(capturedBody))
	require.NoError(t, err)
	require.True(t, ev.Captured())

	p := ev.PaymentEntity()
	require.NotNil(t, p)
	assert.Equal(t, "pay_29QQoUBi66xm2f", p.ID)
	assert.Equal(t, "order_9A33XWu170gUtm", p.OrderID)
	assert.Equal(t, int64(300000), p.Amount)
	assert.Equal(t, "upi", p.Method)

	ref, err := ReferenceFromNotes(p.Notes)
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse("6f1c2a4e-8f3e-4a57-9d0a-2b9a9d2f1e11"), ref.EventID)
	assert.Equal(t, uuid.MustParse("0b7f4a52-3c8e-4bd2-9e6b-6a0a3c1f7d22"), ref.SlotID)
}

func TestParseWebhookOtherEvent(t *testing.T) {
	ev, err := ParseWebhook([]byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","notes":[]}}}}`))
	require.NoError(t, err)
	assert.False(t, ev.Captured())
	assert.Empty(t, ev.PaymentEntity().Notes)
}

func TestParseWebhookRejectsShape(t *testing.T) {
	tests := map[string]string{
		"not json":       `{"event":`,
		"missing event":  `{"payload":{}}`,
		"no payment":     `{"event":"payment.captured","payload":{}}`,
		"no order id":    `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","amount":100,"notes":{"event_id":"6f1c2a4e-8f3e-4a57-9d0a-2b9a9d2f1e11","slot_id":"0b7f4a52-3c8e-4bd2-9e6b-6a0a3c1f7d22"}}}}}`,
		"zero amount":    `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"o","amount":0,"notes":{"event_id":"6f1c2a4e-8f3e-4a57-9d0a-2b9a9d2f1e11","slot_id":"0b7f4a52-3c8e-4bd2-9e6b-6a0a3c1f7d22"}}}}}`,
		"empty notes":    `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"o","amount":100,"notes":[]}}}}`,
		"bad slot id":    `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"o","amount":100,"notes":{"event_id":"6f1c2a4e-8f3e-4a57-9d0a-2b9a9d2f1e11","slot_id":"nope"}}}}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWebhook([]byte(body))
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestNotesUnmarshalScalars(t *testing.T) {
	var n Notes
	require.NoError(t, n.UnmarshalJSON([]byte(`{"a":"x","b":7,"c":true,"d":null}`)))
	assert.Equal(t, Notes{"a": "x", "b": "7", "c": "true"}, n)
}
