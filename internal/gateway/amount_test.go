package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/pkg/apperror"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1500", 150000},
		{"1500.5", 150050},
		{"1500.50", 150050},
		{"1500.509", 150050},
		{"1500.999", 150099},
		{"0.01", 1},
		{".5", 50},
		{" 42 ", 4200},
		{"12.", 1200},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToMinorUnits(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMinorUnitsRejects(t *testing.T) {
	for _, in := range []string{"", "0", "0.00", "0.009", "-10", "+10", "abc", "1e3", "1.2.3", "99999999999999999999"} {
		t.Run(in, func(t *testing.T) {
			_, err := ToMinorUnits(in)
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}
