// Package testutil provides in-memory doubles for booking flow tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripnest/backend/internal/bookings"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
)

// MemStore is a transactional in-memory bookings.Store. Lock methods take
// per-row locks held until the transaction ends, and a failed transaction is
// rolled back through an undo log.
type MemStore struct {
	mu          sync.Mutex
	events      map[uuid.UUID]models.Event
	slots       map[uuid.UUID]models.EventSlot
	orders      map[string]models.SlotOrder
	pending     []models.PendingRegistrant
	registrants []models.Registrant
	bookings    []models.Booking
	payments    map[string]models.Payment
	failOn      map[string]error
	locks       map[string]chan struct{}
	writes      int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		events:   make(map[uuid.UUID]models.Event),
		slots:    make(map[uuid.UUID]models.EventSlot),
		orders:   make(map[string]models.SlotOrder),
		payments: make(map[string]models.Payment),
		failOn:   make(map[string]error),
		locks:    make(map[string]chan struct{}),
	}
}

// AddEvent seeds an event, assigning an ID when missing.
func (m *MemStore) AddEvent(e models.Event) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Currency == "" {
		e.Currency = "INR"
	}
	m.events[e.ID] = e
	return e
}

// AddSlot seeds a slot, defaulting to pending.
func (m *MemStore) AddSlot(s models.EventSlot) models.EventSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.SlotStatusPending
	}
	m.slots[s.ID] = s
	return s
}

// FailOn makes every later call of the named method return err.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[method] = err
}

// Writes counts mutating calls, including rolled back ones.
func (m *MemStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Event returns the committed state of an event.
func (m *MemStore) Event(id uuid.UUID) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[id]
}

// Slot returns the state of a slot.
func (m *MemStore) Slot(id uuid.UUID) models.EventSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[id]
}

// Payment returns a payment by gateway id.
func (m *MemStore) Payment(paymentID string) (models.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	return p, ok
}

// Payments returns all payments.
func (m *MemStore) Payments() []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out
}

// BookingsForSlot returns every booking of a slot.
func (m *MemStore) BookingsForSlot(slotID uuid.UUID) []models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.SlotID == slotID {
			out = append(out, b)
		}
	}
	return out
}

// Registrants returns the confirmed travelers of a slot.
func (m *MemStore) Registrants(slotID uuid.UUID) []models.Registrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Registrant
	for _, r := range m.registrants {
		if r.SlotID == slotID {
			out = append(out, r)
		}
	}
	return out
}

// PendingRows returns all pending-table rows of a slot regardless of status.
func (m *MemStore) PendingRows(slotID uuid.UUID) []models.PendingRegistrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PendingRegistrant
	for _, p := range m.pending {
		if p.SlotID == slotID {
			out = append(out, p)
		}
	}
	return out
}

// InTx implements bookings.Store.
func (m *MemStore) InTx(ctx context.Context, fn func(tx bookings.Tx) error) error {
	if err := m.check("InTx"); err != nil {
		return err
	}
	tx := &memTx{m: m, held: make(map[string]bool)}
	defer tx.release()
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// GetEvent implements bookings.Store.
func (m *MemStore) GetEvent(_ context.Context, eventID uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("GetEvent"); err != nil {
		return nil, err
	}
	e, ok := m.events[eventID]
	if !ok {
		return nil, apperror.NotFound("event not found")
	}
	return &e, nil
}

// GetSlot implements bookings.Store.
func (m *MemStore) GetSlot(_ context.Context, slotID uuid.UUID) (*models.EventSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("GetSlot"); err != nil {
		return nil, err
	}
	s, ok := m.slots[slotID]
	if !ok {
		return nil, apperror.NotFound("slot not found")
	}
	return &s, nil
}

// CreateSlot implements bookings.Store.
func (m *MemStore) CreateSlot(_ context.Context, s *models.EventSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("CreateSlot"); err != nil {
		return err
	}
	m.writes++
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.slots[s.ID] = *s
	return nil
}

// RecordOrder implements bookings.Store.
func (m *MemStore) RecordOrder(_ context.Context, o *models.SlotOrder, travelers []models.Traveler) ([]models.PendingRegistrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("RecordOrder"); err != nil {
		return nil, err
	}
	s, ok := m.slots[o.SlotID]
	if !ok {
		return nil, apperror.NotFound("slot not found")
	}
	if s.Booked() {
		return nil, apperror.AlreadyFinalized("slot is already booked")
	}
	if _, dup := m.orders[o.OrderID]; dup {
		return nil, fmt.Errorf("slot order %s already recorded", o.OrderID)
	}
	m.writes++
	o.CreatedAt = time.Now()
	m.orders[o.OrderID] = *o
	s.OrderID = o.OrderID
	m.slots[o.SlotID] = s

	out := make([]models.PendingRegistrant, 0, len(travelers))
	for _, t := range travelers {
		p := models.PendingRegistrant{
			ID: uuid.New(), EventID: o.EventID, SlotID: o.SlotID, OrderID: o.OrderID, Traveler: t,
			Status: models.RegistrantStatusPending, CreatedAt: o.CreatedAt,
		}
		out = append(out, p)
	}
	m.pending = append(m.pending, out...)
	return out, nil
}

// Orders returns the orders recorded for a slot.
func (m *MemStore) Orders(slotID uuid.UUID) []models.SlotOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SlotOrder
	for _, o := range m.orders {
		if o.SlotID == slotID {
			out = append(out, o)
		}
	}
	return out
}

// GetPayment implements bookings.Store.
func (m *MemStore) GetPayment(_ context.Context, paymentID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("GetPayment"); err != nil {
		return nil, err
	}
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, apperror.NotFound("payment not found")
	}
	return &p, nil
}

// ListBookingsByEvent implements bookings.Store.
func (m *MemStore) ListBookingsByEvent(_ context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for i := len(m.bookings) - 1; i >= 0; i-- {
		if m.bookings[i].EventID == eventID {
			out = append(out, m.bookings[i])
		}
	}
	return out, nil
}

func (m *MemStore) check(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failLocked(method)
}

func (m *MemStore) failLocked(method string) error {
	return m.failOn[method]
}

func (m *MemStore) lockChan(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[key] = ch
	}
	return ch
}

// memTx implements bookings.Tx.
type memTx struct {
	m    *MemStore
	held map[string]bool
	undo []func()
}

func (t *memTx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	ch := t.m.lockChan(key)
	select {
	case ch <- struct{}{}:
		t.held[key] = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *memTx) release() {
	for key := range t.held {
		<-t.m.lockChan(key)
	}
	t.held = nil
}

func (t *memTx) rollback() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// write runs fn under the store mutex after checking the failure injection.
func (t *memTx) write(method string, fn func() error) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if err := t.m.failLocked(method); err != nil {
		return err
	}
	t.m.writes++
	return fn()
}

func (t *memTx) AvailableSlots(ctx context.Context, eventID uuid.UUID) (int, error) {
	if err := t.m.check("AvailableSlots"); err != nil {
		return 0, err
	}
	if err := t.lock(ctx, "event:"+eventID.String()); err != nil {
		return 0, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	e, ok := t.m.events[eventID]
	if !ok {
		return 0, apperror.NotFound("event not found")
	}
	return e.AvailableSlots, nil
}

func (t *memTx) SetAvailableSlots(_ context.Context, eventID uuid.UUID, n int) error {
	return t.write("SetAvailableSlots", func() error {
		e, ok := t.m.events[eventID]
		if !ok {
			return apperror.NotFound("event not found")
		}
		prev := e
		e.AvailableSlots = n
		t.m.events[eventID] = e
		t.undo = append(t.undo, func() { t.m.events[eventID] = prev })
		return nil
	})
}

func (t *memTx) SlotHasOrder(_ context.Context, slotID uuid.UUID, orderID string) (bool, error) {
	if err := t.m.check("SlotHasOrder"); err != nil {
		return false, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	o, ok := t.m.orders[orderID]
	return ok && o.SlotID == slotID, nil
}

func (t *memTx) ListPending(_ context.Context, eventID, slotID uuid.UUID, orderID string) ([]models.PendingRegistrant, error) {
	if err := t.m.check("ListPending"); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var out []models.PendingRegistrant
	for _, p := range t.m.pending {
		if p.EventID == eventID && p.SlotID == slotID && p.OrderID == orderID && p.Status == models.RegistrantStatusPending {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) MarkConfirmed(_ context.Context, registrantID uuid.UUID, paymentID string) error {
	return t.write("MarkConfirmed", func() error {
		for i, p := range t.m.pending {
			if p.ID != registrantID || p.Status != models.RegistrantStatusPending {
				continue
			}
			prev := p
			pid := paymentID
			p.Status = models.RegistrantStatusConfirmed
			p.PaymentID = &pid
			t.m.pending[i] = p
			t.undo = append(t.undo, func() { t.m.pending[i] = prev })
			return nil
		}
		return apperror.NotFound("pending registrant not found")
	})
}

func (t *memTx) CreateConfirmed(_ context.Context, eventID, slotID uuid.UUID, paymentID string, tr models.Traveler) (*models.Registrant, error) {
	var r models.Registrant
	err := t.write("CreateConfirmed", func() error {
		r = models.Registrant{
			ID: uuid.New(), EventID: eventID, SlotID: slotID, Traveler: tr,
			PaymentID: paymentID, CreatedAt: time.Now(),
		}
		t.m.registrants = append(t.m.registrants, r)
		id := r.ID
		t.undo = append(t.undo, func() {
			t.m.registrants = removeRegistrant(t.m.registrants, id)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *memTx) LockSlot(ctx context.Context, slotID uuid.UUID) (*models.EventSlot, error) {
	if err := t.m.check("LockSlot"); err != nil {
		return nil, err
	}
	if err := t.lock(ctx, "slot:"+slotID.String()); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	s, ok := t.m.slots[slotID]
	if !ok {
		return nil, apperror.NotFound("slot not found")
	}
	return &s, nil
}

func (t *memTx) MarkSlotBooked(_ context.Context, slotID uuid.UUID, paymentInfo json.RawMessage) error {
	return t.write("MarkSlotBooked", func() error {
		s, ok := t.m.slots[slotID]
		if !ok || s.Booked() {
			return apperror.Internal("slot was not pending", nil)
		}
		prev := s
		s.Status = models.SlotStatusBooked
		s.PaymentInfo = paymentInfo
		t.m.slots[slotID] = s
		t.undo = append(t.undo, func() { t.m.slots[slotID] = prev })
		return nil
	})
}

func (t *memTx) GetBookingBySlot(_ context.Context, slotID uuid.UUID) (*models.Booking, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, b := range t.m.bookings {
		if b.SlotID == slotID {
			return &b, nil
		}
	}
	return nil, apperror.NotFound("booking not found")
}

func (t *memTx) CreateBooking(_ context.Context, b *models.Booking) error {
	return t.write("CreateBooking", func() error {
		for _, existing := range t.m.bookings {
			if existing.SlotID == b.SlotID {
				return fmt.Errorf("duplicate booking for slot %s", b.SlotID)
			}
		}
		b.ID = uuid.New()
		b.CreatedAt = time.Now()
		t.m.bookings = append(t.m.bookings, *b)
		id := b.ID
		t.undo = append(t.undo, func() {
			out := t.m.bookings[:0]
			for _, x := range t.m.bookings {
				if x.ID != id {
					out = append(out, x)
				}
			}
			t.m.bookings = out
		})
		return nil
	})
}

func (t *memTx) UpsertPayment(_ context.Context, p *models.Payment) error {
	return t.write("UpsertPayment", func() error {
		prev, exists := t.m.payments[p.PaymentID]
		if exists && prev.SlotID != p.SlotID {
			return apperror.Validation("payment already recorded for another slot")
		}
		now := time.Now()
		if p.Currency == "" {
			p.Currency = "INR"
		}
		if exists {
			p.ID = prev.ID
			p.CreatedAt = prev.CreatedAt
		} else {
			p.ID = uuid.New()
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		t.m.payments[p.PaymentID] = *p
		key := p.PaymentID
		t.undo = append(t.undo, func() {
			if exists {
				t.m.payments[key] = prev
			} else {
				delete(t.m.payments, key)
			}
		})
		return nil
	})
}

func (t *memTx) LockPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	if err := t.m.check("LockPayment"); err != nil {
		return nil, err
	}
	if err := t.lock(ctx, "payment:"+paymentID); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	p, ok := t.m.payments[paymentID]
	if !ok {
		return nil, apperror.NotFound("payment not found")
	}
	return &p, nil
}

func (t *memTx) MarkPaymentRefunded(_ context.Context, paymentID string, refundedAt time.Time, details json.RawMessage) error {
	return t.write("MarkPaymentRefunded", func() error {
		p, ok := t.m.payments[paymentID]
		if !ok || p.Status != models.PaymentStatusPaid {
			return apperror.RefundConflict("payment is not in paid state")
		}
		prev := p
		at := refundedAt
		p.Status = models.PaymentStatusRefunded
		p.RefundedAt = &at
		p.Details = details
		t.m.payments[paymentID] = p
		t.undo = append(t.undo, func() { t.m.payments[paymentID] = prev })
		return nil
	})
}

func removeRegistrant(list []models.Registrant, id uuid.UUID) []models.Registrant {
	out := list[:0]
	for _, r := range list {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

var _ bookings.Store = (*MemStore)(nil)
var _ bookings.Tx = (*memTx)(nil)
