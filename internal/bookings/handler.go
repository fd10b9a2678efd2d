package bookings

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
	"github.com/tripnest/backend/pkg/response"
)

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "X-Razorpay-Signature"

const maxWebhookBody = 1 << 20

// CreateSlotRequest is the body for POST /events/:eventId/slots.
type CreateSlotRequest struct {
	Slots   int               `json:"slots" binding:"required,min=1"`
	Persons []models.Traveler `json:"persons" binding:"omitempty,dive"`
}

// OrderRequest is the body for POST /events/:eventId/order.
type OrderRequest struct {
	SlotID  uuid.UUID         `json:"slotId" binding:"required"`
	Amount  json.Number       `json:"amount" binding:"required"`
	Persons []models.Traveler `json:"persons" binding:"required,min=1,dive"`
}

// VerifyRequest is the body for POST /events/:eventId/verify.
type VerifyRequest struct {
	SlotID    uuid.UUID         `json:"slotId" binding:"required"`
	PaymentID string            `json:"paymentId" binding:"required"`
	OrderID   string            `json:"orderId" binding:"required"`
	Signature string            `json:"signature"`
	Amount    json.Number       `json:"amount"`
	Persons   []models.Traveler `json:"persons" binding:"omitempty,dive"`
}

// Handler handles booking and payment HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a bookings handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterPublic mounts the client-facing routes.
func (h *Handler) RegisterPublic(r gin.IRouter) {
	r.POST("/events/:eventId/slots", h.CreateSlot)
	r.GET("/events/:eventId/slots/:slotId", h.GetSlot)
	r.POST("/events/:eventId/order", h.CreateOrder)
	r.POST("/events/:eventId/verify", h.Verify)
	r.POST("/payments/webhook", h.Webhook)
}

// RegisterAdmin mounts staff routes; r must already enforce staff auth.
func (h *Handler) RegisterAdmin(r gin.IRouter) {
	r.POST("/payments/:paymentId/refund", h.Refund)
	r.GET("/events/:eventId/bookings", h.ListBookings)
}

// CreateSlot handles POST /events/:eventId/slots.
func (h *Handler) CreateSlot(c *gin.Context) {
	eventID, ok := eventParam(c)
	if !ok {
		return
	}
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	slot, err := h.svc.CreateSlot(c.Request.Context(), eventID, CreateSlotInput{Slots: req.Slots, Persons: req.Persons})
	if err != nil {
		h.fail(c, err, "create slot failed", zap.String("event_id", eventID.String()))
		return
	}
	response.Created(c, slot)
}

// GetSlot handles GET /events/:eventId/slots/:slotId.
func (h *Handler) GetSlot(c *gin.Context) {
	eventID, ok := eventParam(c)
	if !ok {
		return
	}
	slotID, err := uuid.Parse(c.Param("slotId"))
	if err != nil {
		response.BadRequest(c, "invalid slot id")
		return
	}
	slot, err := h.svc.GetSlot(c.Request.Context(), eventID, slotID)
	if err != nil {
		h.fail(c, err, "get slot failed", zap.String("slot_id", slotID.String()))
		return
	}
	response.OK(c, slot)
}

// CreateOrder handles POST /events/:eventId/order.
func (h *Handler) CreateOrder(c *gin.Context) {
	eventID, ok := eventParam(c)
	if !ok {
		return
	}
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), eventID, OrderInput{
		SlotID:  req.SlotID,
		Amount:  req.Amount.String(),
		Persons: req.Persons,
	})
	if err != nil {
		h.fail(c, err, "create order failed",
			zap.String("event_id", eventID.String()),
			zap.String("slot_id", req.SlotID.String()))
		return
	}
	response.OK(c, gin.H{
		"orderId":   order.ID,
		"amount":    order.Amount,
		"currency":  order.Currency,
		"clientKey": order.ClientKey,
	})
}

// Verify handles POST /events/:eventId/verify.
func (h *Handler) Verify(c *gin.Context) {
	eventID, ok := eventParam(c)
	if !ok {
		return
	}
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Verify(c.Request.Context(), eventID, VerifyInput{
		SlotID:    req.SlotID,
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
		Amount:    req.Amount.String(),
		Persons:   req.Persons,
	})
	if err != nil {
		h.fail(c, err, "verify payment failed",
			zap.String("event_id", eventID.String()),
			zap.String("slot_id", req.SlotID.String()),
			zap.String("payment_id", req.PaymentID))
		return
	}
	response.OK(c, gin.H{
		"success":   true,
		"bookingId": res.Booking.ID,
		"created":   res.Created,
	})
}

// Webhook handles POST /payments/webhook. Signature and shape failures are 400;
// once authenticated, business failures are logged and acknowledged with 200
// so the provider does not keep redelivering.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}
	ev, err := h.svc.ParseWebhook(body, c.GetHeader(SignatureHeader))
	if err != nil {
		h.logger.Warn("webhook rejected", zap.Error(err))
		response.Error(c, err)
		return
	}

	fields := []zap.Field{zap.String("event", ev.Event)}
	if p := ev.PaymentEntity(); p != nil {
		fields = append(fields,
			zap.String("payment_id", p.ID),
			zap.String("order_id", p.OrderID),
			zap.String("event_id", p.Notes["event_id"]),
			zap.String("slot_id", p.Notes["slot_id"]))
	}
	res, err := h.svc.ProcessWebhook(c.Request.Context(), ev, body)
	if err != nil {
		h.logger.Error("webhook processing failed", append(fields, zap.Error(err))...)
		response.OK(c, gin.H{"received": true})
		return
	}
	if res != nil {
		h.logger.Info("webhook processed", append(fields, zap.Bool("created", res.Created))...)
	}
	response.OK(c, gin.H{"received": true})
}

// Refund handles POST /admin/payments/:paymentId/refund.
func (h *Handler) Refund(c *gin.Context) {
	paymentID := c.Param("paymentId")
	p, err := h.svc.Refund(c.Request.Context(), paymentID)
	if err != nil {
		h.fail(c, err, "refund failed", zap.String("payment_id", paymentID))
		return
	}
	response.OK(c, p)
}

// ListBookings handles GET /admin/events/:eventId/bookings.
func (h *Handler) ListBookings(c *gin.Context) {
	eventID, ok := eventParam(c)
	if !ok {
		return
	}
	list, err := h.svc.ListBookings(c.Request.Context(), eventID)
	if err != nil {
		h.fail(c, err, "list bookings failed", zap.String("event_id", eventID.String()))
		return
	}
	if list == nil {
		list = []models.Booking{}
	}
	response.OK(c, list)
}

func (h *Handler) fail(c *gin.Context, err error, msg string, fields ...zap.Field) {
	if apperror.KindOf(err) == apperror.KindInternal {
		h.logger.Error(msg, append(fields, zap.Error(err))...)
	} else {
		h.logger.Info(msg, append(fields, zap.Error(err))...)
	}
	response.Error(c, err)
}

func eventParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}
