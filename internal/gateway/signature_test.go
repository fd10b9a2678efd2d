package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/pkg/apperror"
)

func TestSignKnownVector(t *testing.T) {
	// RFC 4231 test case 2
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestVerifyPaymentSignature(t *testing.T) {
	sig := Sign("secret", []byte("order_1|pay_1"))

	require.NoError(t, VerifyPaymentSignature("secret", "order_1", "pay_1", sig))

	tests := []struct {
		name, secret, order, payment, sig string
	}{
		{"wrong payment", "secret", "order_1", "pay_2", sig},
		{"wrong order", "secret", "order_2", "pay_1", sig},
		{"wrong secret", "other", "order_1", "pay_1", sig},
		{"empty signature", "secret", "order_1", "pay_1", ""},
		{"not hex", "secret", "order_1", "pay_1", "zz"},
		{"truncated", "secret", "order_1", "pay_1", sig[:10]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPaymentSignature(tt.secret, tt.order, tt.payment, tt.sig)
			assert.Equal(t, apperror.KindSignatureMismatch, apperror.KindOf(err))
		})
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := Sign("whsec", body)

	require.NoError(t, VerifyWebhookSignature("whsec", body, sig))
	assert.Equal(t, apperror.KindSignatureMismatch,
		apperror.KindOf(VerifyWebhookSignature("whsec", []byte(`{"event":"payment.failed"}`), sig)))
	assert.Equal(t, apperror.KindSignatureMismatch, apperror.KindOf(VerifyWebhookSignature("whsec", body, "")))
}

func TestVerifyWithoutSecret(t *testing.T) {
	err := VerifyWebhookSignature("", []byte("x"), Sign("", []byte("x")))
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.True(t, apperror.Is(err, apperror.KindInternal))
}
