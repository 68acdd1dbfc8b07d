// Package capacity decides whether a pickup bucket can take another order.
package capacity

import (
	"context"
	"errors"
	"fmt"

	"bagel-preorder-backend/internal/model"
)

// ErrSlotSoldOut is returned when a bucket is already at capacity.
var ErrSlotSoldOut = errors.New("SLOT_SOLD_OUT")

// Counter counts the capacity-occupying orders in a bucket, ignoring excludeID.
// Stores pass a counter bound to their open transaction so that the count and
// the following write form one atomic unit.
type Counter interface {
	CountBucket(ctx context.Context, b model.Bucket, excludeID int64) (int64, error)
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(ctx context.Context, b model.Bucket, excludeID int64) (int64, error)

// CountBucket calls f.
func (f CounterFunc) CountBucket(ctx context.Context, b model.Bucket, excludeID int64) (int64, error) {
	return f(ctx, b, excludeID)
}

// Gate enforces the per-bucket cap. Canceled and no-show orders free their place;
// every item type shares the same cap.
type Gate struct {
	capacity int
}

// NewGate creates a gate admitting at most capacity orders per bucket.
func NewGate(capacity int) *Gate {
	return &Gate{capacity: capacity}
}

// Capacity returns the per-bucket cap.
func (g *Gate) Capacity() int { return g.capacity }

// Occupies reports whether an order in status holds a place in its bucket.
func (g *Gate) Occupies(status string) bool {
	return status != model.StatusCanceled && status != model.StatusNoShow
}

// FreeingStatuses lists the statuses that do not count against capacity.
func (g *Gate) FreeingStatuses() []string {
	return []string{model.StatusCanceled, model.StatusNoShow}
}

// SoldOut reports whether used places leave no room.
func (g *Gate) SoldOut(used int64) bool {
	return used >= int64(g.capacity)
}

// TryAdmit counts the bucket through c and rejects with ErrSlotSoldOut when full.
// excludeID keeps a rescheduled order from counting against itself; pass 0 for new orders.
func (g *Gate) TryAdmit(ctx context.Context, c Counter, b model.Bucket, excludeID int64) error {
	used, err := c.CountBucket(ctx, b, excludeID)
	if err != nil {
		return fmt.Errorf("count bucket %s: %w", b, err)
	}
	if g.SoldOut(used) {
		return ErrSlotSoldOut
	}
	return nil
}
