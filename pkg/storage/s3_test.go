package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentPayloadKey(t *testing.T) {
	at := time.Unix(1700000000, 0)
	key := PaymentPayloadKey("ev1", "sl1", "pay_ABC", "webhook", at)
	assert.Equal(t, "payments/ev1/sl1/pay_ABC-webhook-1700000000.json", key)

	// path separators in gateway ids never escape the slot folder
	key = PaymentPayloadKey("ev1", "sl1", "../../pay_X", "verify", at)
	assert.Equal(t, "payments/ev1/sl1/pay_X-verify-1700000000.json", key)
}
