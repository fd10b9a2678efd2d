package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
)

type memEvents struct {
	byID map[uuid.UUID]*models.Event
}

func (m *memEvents) Create(_ context.Context, e *models.Event) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.byID[e.ID] = e
	return nil
}

func (m *memEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("event not found")
	}
	return e, nil
}

func (m *memEvents) ListUpcoming(context.Context) ([]models.Event, error) {
	return nil, nil
}

func newRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, "INR", nil)
	r := gin.New()
	r.POST("/admin/events", h.Create)
	r.GET("/events/:eventId", h.GetByID)
	r.GET("/events", h.List)
	return r
}

func serve(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateEvent(t *testing.T) {
	store := &memEvents{byID: map[uuid.UUID]*models.Event{}}
	r := newRouter(store)

	w := serve(r, http.MethodPost, "/admin/events", map[string]interface{}{
		"title":           "Spiti Valley",
		"available_slots": 12,
		"base_price":      "1499.50",
		"starts_at":       "2026-11-01T06:00:00Z",
		"min_age":         18,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.Len(t, store.byID, 1)
	for _, e := range store.byID {
		assert.Equal(t, int64(149950), e.BasePrice)
		assert.Equal(t, "INR", e.Currency)
		assert.Equal(t, 12, e.AvailableSlots)
	}
}

func TestCreateEventRejects(t *testing.T) {
	r := newRouter(&memEvents{byID: map[uuid.UUID]*models.Event{}})
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"title": "Trip", "available_slots": 3, "base_price": "100", "starts_at": "2026-11-01T06:00:00Z",
		}
	}
	cases := map[string]func(m map[string]interface{}){
		"missing title":  func(m map[string]interface{}) { delete(m, "title") },
		"bad date":       func(m map[string]interface{}) { m["starts_at"] = "tomorrow" },
		"zero price":     func(m map[string]interface{}) { m["base_price"] = "0" },
		"bad price":      func(m map[string]interface{}) { m["base_price"] = "abc" },
		"ages inverted":  func(m map[string]interface{}) { m["min_age"] = 30; m["max_age"] = 20 },
		"long currency":  func(m map[string]interface{}) { m["currency"] = "RUPEE" },
		"negative slots": func(m map[string]interface{}) { m["available_slots"] = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			body := base()
			mutate(body)
			w := serve(r, http.MethodPost, "/admin/events", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetEvent(t *testing.T) {
	id := uuid.New()
	store := &memEvents{byID: map[uuid.UUID]*models.Event{id: {ID: id, Title: "Ladakh", AvailableSlots: 4}}}
	r := newRouter(store)

	w := serve(r, http.MethodGet, "/events/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ladakh")

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/events/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/events/not-a-uuid", nil).Code)
}

func TestListEventsEmpty(t *testing.T) {
	w := serve(newRouter(&memEvents{byID: map[uuid.UUID]*models.Event{}}), http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}
