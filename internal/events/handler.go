package events

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripnest/backend/internal/gateway"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
	"github.com/tripnest/backend/pkg/response"
)

// CreateRequest is the body for POST /admin/events. BasePrice is in major units.
type CreateRequest struct {
	Title          string `json:"title" binding:"required"`
	AvailableSlots int    `json:"available_slots" binding:"min=0"`
	BasePrice      string `json:"base_price" binding:"required"`
	Currency       string `json:"currency" binding:"omitempty,len=3"`
	StartsAt       string `json:"starts_at" binding:"required"`
	MinAge         int    `json:"min_age" binding:"min=0"`
	MaxAge         int    `json:"max_age" binding:"min=0"`
}

// Store is the event persistence used by Handler. *Repository implements it.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListUpcoming(ctx context.Context) ([]models.Event, error)
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo     Store
	currency string
	logger   *zap.Logger
}

// NewHandler creates an events handler. currency is used when a request omits one.
func NewHandler(repo Store, currency string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, currency: currency, logger: logger}
}

// Create handles POST /admin/events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}
	if req.MaxAge > 0 && req.MaxAge < req.MinAge {
		response.BadRequest(c, "max_age must not be below min_age")
		return
	}
	price, err := gateway.ToMinorUnits(req.BasePrice)
	if err != nil {
		response.Error(c, err)
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = h.currency
	}

	e := &models.Event{
		Title:          req.Title,
		AvailableSlots: req.AvailableSlots,
		BasePrice:      price,
		Currency:       currency,
		StartsAt:       startsAt,
		MinAge:         req.MinAge,
		MaxAge:         req.MaxAge,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// GetByID handles GET /events/:eventId.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if apperror.KindOf(err) != apperror.KindNotFound {
			h.logger.Error("get event failed", zap.Error(err), zap.String("event_id", id.String()))
		}
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListUpcoming(c.Request.Context())
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	response.OK(c, list)
}
