package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"bagel-preorder-backend/internal/model"
)

// ErrNotFound is returned when an order or subscription does not exist.
var ErrNotFound = errors.New("not found")

// List limits.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Store defines the persistence contract shared by every backend.
//
// CreateOrder, UpdateOrder and UpdateStatus run the capacity gate and the
// write as one atomic unit; they return capacity.ErrSlotSoldOut when the
// bucket is full. UpdateStatus only gates orders leaving a canceled or
// no-show status.
type Store interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error)
	UpdateOrder(ctx context.Context, id int64, upd OrderUpdate) (*model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	DeleteOrder(ctx context.Context, id int64) error
	DeleteWeek(ctx context.Context, weekKey string) (int64, error)
	CountBucket(ctx context.Context, b model.Bucket, excludeID int64) (int64, error)

	SeedSlots(ctx context.Context, slots []model.TimeSlot) error
	ListSlots(ctx context.Context, day string) ([]string, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)

	Close() error
}

// OrderFilter narrows ListOrders. Empty fields do not filter.
type OrderFilter struct {
	WeekKey  string
	Day      string
	Item     string
	Slot     string
	Statuses []string
	Query    string
	Limit    int
}

// Normalized returns a copy with the limit clamped and the query trimmed.
func (f OrderFilter) Normalized() OrderFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	f.Query = strings.TrimSpace(f.Query)
	return f
}

// Matches applies the filter to an order in memory.
func (f OrderFilter) Matches(o *model.Order) bool {
	if f.WeekKey != "" && o.WeekKey != f.WeekKey {
		return false
	}
	if f.Day != "" && o.Day != f.Day {
		return false
	}
	if f.Item != "" && o.Item != f.Item {
		return false
	}
	if f.Slot != "" && o.Slot != f.Slot {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, o.Status) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(o.Name), q) &&
			!strings.Contains(strings.ToLower(o.Phone), q) &&
			!strings.Contains(strings.ToLower(o.BuildingRoom), q) {
			return false
		}
	}
	return true
}

// OrderUpdate carries staff edits. Nil fields are left unchanged.
type OrderUpdate struct {
	Day              *string
	Slot             *string
	Item             *string
	KitchenNotes     *string
	OverrideCapacity bool
}

// Empty reports whether the update changes nothing.
func (u OrderUpdate) Empty() bool {
	return u.Day == nil && u.Slot == nil && u.Item == nil && u.KitchenNotes == nil
}

// Apply copies the set fields onto o.
func (u OrderUpdate) Apply(o *model.Order) {
	if u.Day != nil {
		o.Day = *u.Day
	}
	if u.Slot != nil {
		o.Slot = *u.Slot
	}
	if u.Item != nil {
		o.Item = *u.Item
	}
	if u.KitchenNotes != nil {
		o.KitchenNotes = *u.KitchenNotes
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// withTimeout bounds a store call when a timeout is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
