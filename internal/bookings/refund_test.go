package bookings_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/internal/bookings"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
)

func finalized(t *testing.T) (*fixture, *bookings.Engine) {
	t.Helper()
	f := newFixture(t, 5, 2)
	engine := bookings.NewEngine(f.store, f.gw, nil)
	_, err := engine.Finalize(context.Background(), f.input("pay_1"))
	require.NoError(t, err)
	require.Equal(t, 3, f.store.Event(f.event.ID).AvailableSlots)
	return f, engine
}

func TestRefundReversesInventory(t *testing.T) {
	f, engine := finalized(t)

	p, err := engine.Refund(context.Background(), "pay_1")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusRefunded, p.Status)
	require.NotNil(t, p.RefundedAt)
	assert.Equal(t, 5, f.store.Event(f.event.ID).AvailableSlots)
	assert.Equal(t, models.SlotStatusBooked, f.store.Slot(f.slot.ID).Status)
	assert.Equal(t, []string{"pay_1"}, f.gw.Refunds)

	stored, _ := f.store.Payment("pay_1")
	assert.Equal(t, models.PaymentStatusRefunded, stored.Status)
	var details map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stored.Details, &details))
	assert.Contains(t, details, "refund")
	assert.JSONEq(t, `"pay_1"`, string(details["id"]))
}

func TestRefundTwiceConflicts(t *testing.T) {
	f, engine := finalized(t)

	_, err := engine.Refund(context.Background(), "pay_1")
	require.NoError(t, err)
	_, err = engine.Refund(context.Background(), "pay_1")

	assert.Equal(t, apperror.KindRefundConflict, apperror.KindOf(err))
	assert.Equal(t, 1, f.gw.RefundCount())
	assert.Equal(t, 5, f.store.Event(f.event.ID).AvailableSlots)
}

func TestRefundGatewayFailureChangesNothing(t *testing.T) {
	f, engine := finalized(t)
	f.gw.RefundErr = errors.New("connection reset")

	_, err := engine.Refund(context.Background(), "pay_1")
	assert.Equal(t, apperror.KindGateway, apperror.KindOf(err))

	p, _ := f.store.Payment("pay_1")
	assert.Equal(t, models.PaymentStatusPaid, p.Status)
	assert.Nil(t, p.RefundedAt)
	assert.Equal(t, 3, f.store.Event(f.event.ID).AvailableSlots)
}

func TestRefundLocalFailureRollsBack(t *testing.T) {
	f, engine := finalized(t)
	f.store.FailOn("SetAvailableSlots", errors.New("db down"))

	_, err := engine.Refund(context.Background(), "pay_1")
	require.Error(t, err)

	p, _ := f.store.Payment("pay_1")
	assert.Equal(t, models.PaymentStatusPaid, p.Status)
	assert.Equal(t, 3, f.store.Event(f.event.ID).AvailableSlots)
}

func TestRefundUnknownPayment(t *testing.T) {
	f, engine := finalized(t)

	_, err := engine.Refund(context.Background(), "pay_missing")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	_, err = engine.Refund(context.Background(), "")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Zero(t, f.gw.RefundCount())
}
