package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/pkg/apperror"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperror.Validation("bad"), http.StatusBadRequest},
		{"signature", apperror.SignatureMismatch("bad sig"), http.StatusBadRequest},
		{"not found", apperror.NotFound("missing"), http.StatusNotFound},
		{"gateway", apperror.Gateway("down", nil), http.StatusBadGateway},
		{"already finalized", apperror.AlreadyFinalized("booked"), http.StatusConflict},
		{"refund conflict", apperror.RefundConflict("refunded"), http.StatusConflict},
		{"plain", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorHidesInternalCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "internal error", body.Error)
}
