// Package order implements the pre-order lifecycle on top of a store.Store.
package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bagel-preorder-backend/internal/capacity"
	"bagel-preorder-backend/internal/model"
	"bagel-preorder-backend/internal/notification"
	"bagel-preorder-backend/internal/parse"
	"bagel-preorder-backend/internal/pricing"
	"bagel-preorder-backend/internal/schedule"
	"bagel-preorder-backend/internal/store"
)

// AllFilter disables the day, item or status filter of a kitchen list.
const AllFilter = "all"

// Notifier delivers customer texts and kitchen alerts.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *model.Order) notification.SMSOutcome
	SendSMS(ctx context.Context, to, body string) error
}

// Service orchestrates validation, pricing, capacity and notifications.
type Service struct {
	store    store.Store
	gate     *capacity.Gate
	catalog  *schedule.Catalog
	clock    *schedule.Clock
	notifier Notifier
	onChange func()
}

// NewService creates a new order service.
func NewService(st store.Store, gate *capacity.Gate, catalog *schedule.Catalog, clock *schedule.Clock, notifier Notifier) *Service {
	return &Service{
		store:    st,
		gate:     gate,
		catalog:  catalog,
		clock:    clock,
		notifier: notifier,
		onChange: func() {},
	}
}

// OnChange registers a hook run after every successful order mutation.
func (s *Service) OnChange(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	s.onChange = fn
}

// CurrentWeek returns the week key orders are placed into right now.
func (s *Service) CurrentWeek() string {
	return s.clock.CurrentWeek()
}

// CreateInput is a customer's order request.
type CreateInput struct {
	Name         string
	BuildingRoom string
	Day          string
	Slot         string
	Item         string
	Phone        string
	Notes        string
	Options      map[string]any
	PaymentReady bool
}

// CreateResult is returned for an accepted order.
type CreateResult struct {
	Order *model.Order
	SMS   notification.SMSOutcome
}

// Create validates, prices and admits a new order, then notifies.
// Nothing is stored when the slot is sold out.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if err := s.validateCreate(&in); err != nil {
		return nil, err
	}

	options := model.Options(in.Options)
	if options == nil {
		options = model.Options{}
	}
	o := &model.Order{
		Day:          in.Day,
		Slot:         in.Slot,
		Item:         in.Item,
		Options:      options,
		Name:         in.Name,
		BuildingRoom: in.BuildingRoom,
		Phone:        parse.NormalizePhone(in.Phone),
		Notes:        in.Notes,
		PaymentReady: in.PaymentReady,
		TotalCents:   pricing.Calculate(in.Item, in.Options),
		WeekKey:      s.clock.CurrentWeek(),
		Status:       model.StatusQueued,
	}

	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.onChange()
	log.Printf("Order %d accepted for %s", o.ID, o.Bucket())

	return &CreateResult{Order: o, SMS: s.notifier.OrderPlaced(ctx, o)}, nil
}

func (s *Service) validateCreate(in *CreateInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.BuildingRoom = strings.TrimSpace(in.BuildingRoom)
	in.Phone = strings.TrimSpace(in.Phone)

	required := []struct {
		field string
		ok    bool
	}{
		{"name", in.Name != ""},
		{"building_room", in.BuildingRoom != ""},
		{"day", in.Day != ""},
		{"slot", in.Slot != ""},
		{"item", in.Item != ""},
		{"phone", in.Phone != ""},
		{"payment_ready", in.PaymentReady},
	}
	var missing []string
	for _, r := range required {
		if !r.ok {
			missing = append(missing, r.field)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "Missing required fields", Missing: missing}
	}

	if !model.ValidDay(in.Day) {
		return invalid("Invalid day")
	}
	if !model.ValidItem(in.Item) {
		return invalid("Invalid item")
	}
	if !s.catalog.Has(in.Day, in.Slot) {
		return invalid("Invalid slot for " + in.Day)
	}
	return nil
}

// UpdateStatus moves an order to any enumerated status.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) error {
	if !model.ValidStatus(status) {
		return invalid("Invalid status")
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update status of order %d: %w", id, err)
	}
	s.onChange()
	return nil
}

// EditInput carries staff edits; nil fields are unchanged.
type EditInput struct {
	Day              *string
	Slot             *string
	Item             *string
	KitchenNotes     *string
	OverrideCapacity bool
}

// Edit applies staff edits, rescheduling through the capacity gate unless overridden.
func (s *Service) Edit(ctx context.Context, id int64, in EditInput) (*model.Order, error) {
	upd := store.OrderUpdate{
		Day:              in.Day,
		Slot:             in.Slot,
		Item:             in.Item,
		KitchenNotes:     in.KitchenNotes,
		OverrideCapacity: in.OverrideCapacity,
	}
	if upd.Empty() {
		return nil, invalid("No fields to update")
	}
	if in.Day != nil && !model.ValidDay(*in.Day) {
		return nil, invalid("Invalid day")
	}
	if in.Item != nil && !model.ValidItem(*in.Item) {
		return nil, invalid("Invalid item")
	}

	if in.Day != nil || in.Slot != nil {
		current, err := s.store.GetOrder(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load order %d: %w", id, err)
		}
		next := *current
		upd.Apply(&next)
		if !s.catalog.Has(next.Day, next.Slot) {
			return nil, invalid("Invalid slot for " + next.Day)
		}
		// Write the checked pair as a whole so a concurrent edit of the
		// other half cannot leave a day without that slot.
		upd.Day, upd.Slot = &next.Day, &next.Slot
	}

	updated, err := s.store.UpdateOrder(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("edit order %d: %w", id, err)
	}
	s.onChange()
	return updated, nil
}

// Delete removes an order.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	s.onChange()
	return nil
}

// ResetWeek deletes every order of the current week and returns the week and count.
func (s *Service) ResetWeek(ctx context.Context) (string, int64, error) {
	week := s.clock.CurrentWeek()
	n, err := s.store.DeleteWeek(ctx, week)
	if err != nil {
		return week, 0, fmt.Errorf("reset week %s: %w", week, err)
	}
	s.onChange()
	log.Printf("Reset week %s: deleted %d orders", week, n)
	return week, n, nil
}

// SlotStatus is one entry of the public availability list.
type SlotStatus struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	SoldOut bool   `json:"soldOut"`
}

// SlotAvailability lists the day's slots for the current week with a sold-out flag.
func (s *Service) SlotAvailability(ctx context.Context, day, item string) ([]SlotStatus, error) {
	if day == "" || item == "" {
		return nil, invalid("Day and item are required")
	}
	if !model.ValidDay(day) {
		return nil, invalid("Invalid day")
	}
	if !model.ValidItem(item) {
		return nil, invalid("Invalid item")
	}

	slots, err := s.slotsFor(ctx, day)
	if err != nil {
		return nil, err
	}
	week := s.clock.CurrentWeek()
	out := make([]SlotStatus, 0, len(slots))
	for _, slot := range slots {
		used, err := s.store.CountBucket(ctx, model.Bucket{WeekKey: week, Day: day, Slot: slot}, 0)
		if err != nil {
			return nil, fmt.Errorf("count slot %s: %w", slot, err)
		}
		out = append(out, SlotStatus{Label: schedule.Label(slot), Value: slot, SoldOut: s.gate.SoldOut(used)})
	}
	return out, nil
}

// SlotUsage is one row of the staff capacity report.
type SlotUsage struct {
	Slot string `json:"slot"`
	Used int64  `json:"bagelsUsed"`
	Cap  int    `json:"bagelsCap"`
}

// CapacityReport returns used and total places per slot of day in week
// (the current week when empty).
func (s *Service) CapacityReport(ctx context.Context, week, day string) ([]SlotUsage, error) {
	if week == "" {
		week = s.clock.CurrentWeek()
	} else if _, err := time.Parse("2006-01-02", week); err != nil {
		return nil, invalid("Invalid week")
	}
	if !model.ValidDay(day) {
		return nil, invalid("Invalid day")
	}

	slots, err := s.slotsFor(ctx, day)
	if err != nil {
		return nil, err
	}
	out := make([]SlotUsage, 0, len(slots))
	for _, slot := range slots {
		used, err := s.store.CountBucket(ctx, model.Bucket{WeekKey: week, Day: day, Slot: slot}, 0)
		if err != nil {
			return nil, fmt.Errorf("count slot %s: %w", slot, err)
		}
		out = append(out, SlotUsage{Slot: slot, Used: used, Cap: s.gate.Capacity()})
	}
	return out, nil
}

// ListQuery is the kitchen list request. Status may hold several comma-separated values.
type ListQuery struct {
	Week   string
	Day    string
	Item   string
	Slot   string
	Status string
	Query  string
	Limit  int
}

// List returns the kitchen's filtered view. Week defaults to the current one.
func (s *Service) List(ctx context.Context, q ListQuery) ([]model.Order, error) {
	f := store.OrderFilter{
		WeekKey: q.Week,
		Slot:    q.Slot,
		Query:   q.Query,
		Limit:   q.Limit,
	}
	if f.WeekKey == "" {
		f.WeekKey = s.clock.CurrentWeek()
	}
	if q.Day != "" && q.Day != AllFilter {
		if !model.ValidDay(q.Day) {
			return nil, invalid("Invalid day")
		}
		f.Day = q.Day
	}
	if q.Item != "" && q.Item != AllFilter {
		if !model.ValidItem(q.Item) {
			return nil, invalid("Invalid item")
		}
		f.Item = q.Item
	}
	if q.Status != "" && q.Status != AllFilter {
		for _, st := range strings.Split(q.Status, ",") {
			st = strings.TrimSpace(st)
			if st == "" {
				continue
			}
			if !model.ValidStatus(st) {
				return nil, invalid("Invalid status")
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	orders, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// ResendSMS texts the customer again, using the ready-for-pickup message when
// message is empty.
func (s *Service) ResendSMS(ctx context.Context, id int64, message string) error {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("load order %d: %w", id, err)
	}
	body := strings.TrimSpace(message)
	if body == "" {
		body = notification.ReadyText(o)
	}
	if err := s.notifier.SendSMS(ctx, o.Phone, body); err != nil {
		if errors.Is(err, notification.ErrSMSNotConfigured) {
			return err
		}
		log.Printf("Resend SMS for order %d failed: %v", id, err)
		return fmt.Errorf("%w: %v", ErrSMSFailed, err)
	}
	return nil
}

// slotsFor prefers the seeded slot table and falls back to the configured catalog.
func (s *Service) slotsFor(ctx context.Context, day string) ([]string, error) {
	slots, err := s.store.ListSlots(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	if len(slots) == 0 {
		slots = s.catalog.Slots(day)
	}
	return slots, nil
}
