package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/tripnest/backend/pkg/apperror"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the checkout callback signature, computed over
// orderID + "|" + paymentID with the API key secret.
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) error {
	return verify(secret, []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks the webhook signature over the raw request body.
func VerifyWebhookSignature(secret string, body []byte, signature string) error {
	return verify(secret, body, signature)
}

func verify(secret string, message []byte, signature string) error {
	if secret == "" {
		return apperror.Internal("payment signing secret not configured", nil)
	}
	if signature == "" {
		return apperror.SignatureMismatch("missing payment signature")
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return apperror.SignatureMismatch("invalid payment signature")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	if !hmac.Equal(mac.Sum(nil), got) {
		return apperror.SignatureMismatch("invalid payment signature")
	}
	return nil
}
