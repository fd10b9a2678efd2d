package bookings

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/tripnest/backend/internal/gateway"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
)

// Refund refunds the full captured amount of a paid payment and returns the
// slot's seats to the event. The provider is called first; if it fails nothing
// changes locally. The slot itself stays booked.
func (e *Engine) Refund(ctx context.Context, paymentID string) (*models.Payment, error) {
	if paymentID == "" {
		return nil, apperror.Validation("payment id is required")
	}
	log := e.logger.With(zap.String("payment_id", paymentID))

	p, err := e.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentStatusPaid {
		return nil, apperror.RefundConflict("payment is not in paid state")
	}

	receipt, err := e.gateway.Refund(ctx, p.PaymentID, p.Amount, gateway.NotesFor(p.EventID, p.SlotID))
	if err != nil {
		log.Warn("gateway refund failed", zap.Error(err))
		if apperror.KindOf(err) != apperror.KindGateway {
			err = apperror.Gateway("refund rejected by payment gateway", err)
		}
		return nil, err
	}

	var out *models.Payment
	err = e.store.InTx(ctx, func(tx Tx) error {
		slot, err := tx.LockSlot(ctx, p.SlotID)
		if err != nil {
			return err
		}
		locked, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if locked.Status != models.PaymentStatusPaid {
			return apperror.RefundConflict("payment is not in paid state")
		}

		details, err := mergeRefundDetails(locked.Details, receipt)
		if err != nil {
			return apperror.Internal("merge refund receipt", err)
		}
		at := e.now().UTC()
		if err := tx.MarkPaymentRefunded(ctx, paymentID, at, details); err != nil {
			return err
		}
		if _, err := e.ledger.Restore(ctx, tx, slot.EventID, slot.Slots); err != nil {
			return err
		}

		locked.Status = models.PaymentStatusRefunded
		locked.RefundedAt = &at
		locked.Details = details
		out = locked
		return nil
	})
	if err != nil {
		log.Error("refund issued at gateway but local state not updated",
			zap.String("refund_id", receipt.ID),
			zap.Error(err))
		return nil, err
	}

	log.Info("payment refunded",
		zap.String("refund_id", receipt.ID),
		zap.Int64("amount", out.Amount))
	return out, nil
}

// mergeRefundDetails stores the receipt under "refund" in the details object.
// Non-object details are kept under "payment".
func mergeRefundDetails(details json.RawMessage, receipt *gateway.Refund) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(details) > 0 && json.Unmarshal(details, &merged) != nil {
		merged = map[string]json.RawMessage{"payment": details}
	}
	if merged == nil {
		merged = map[string]json.RawMessage{}
	}
	rec := receipt.Raw
	if len(rec) == 0 {
		b, err := json.Marshal(receipt)
		if err != nil {
			return nil, err
		}
		rec = b
	}
	merged["refund"] = rec
	return json.Marshal(merged)
}
