package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bagel-preorder-backend/internal/capacity"
	"bagel-preorder-backend/internal/model"
)

// Dialect selects the locking strategy of the GORM store.
type Dialect int

const (
	// DialectSQLite relies on the single-connection pool and BEGIN IMMEDIATE
	// transactions opened by db.OpenSQLite.
	DialectSQLite Dialect = iota
	// DialectPostgres takes a transaction-scoped advisory lock per bucket and
	// row locks on edited orders.
	DialectPostgres
)

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db      *gorm.DB
	dialect Dialect
	gate    *capacity.Gate
	timeout time.Duration
}

// NewSQLiteStore creates the embedded store. db must come from db.OpenSQLite.
func NewSQLiteStore(db *gorm.DB, gate *capacity.Gate) Store {
	return &gormStore{db: db, dialect: DialectSQLite, gate: gate}
}

// NewPostgresStore creates the relational store; every call is bounded by timeout.
func NewPostgresStore(db *gorm.DB, gate *capacity.Gate, timeout time.Duration) Store {
	return &gormStore{db: db, dialect: DialectPostgres, gate: gate, timeout: timeout}
}

// CreateOrder admits and inserts o in one transaction. o.ID is set on success.
func (s *gormStore) CreateOrder(ctx context.Context, o *model.Order) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bucket := o.Bucket()
		if err := s.lockBucket(tx, bucket); err != nil {
			return err
		}
		if err := s.gate.TryAdmit(ctx, s.counter(tx), bucket, 0); err != nil {
			return err
		}
		if err := tx.Create(o).Error; err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return nil
	})
}

// GetOrder loads a single order.
func (s *gormStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var o model.Order
	if err := s.db.WithContext(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	return &o, nil
}

// ListOrders returns the orders matching f ordered by slot, then creation time.
func (s *gormStore) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	f = f.Normalized()
	q := s.db.WithContext(ctx).Model(&model.Order{})
	if f.WeekKey != "" {
		q = q.Where("week_key = ?", f.WeekKey)
	}
	if f.Day != "" {
		q = q.Where("day = ?", f.Day)
	}
	if f.Item != "" {
		q = q.Where("item = ?", f.Item)
	}
	if f.Slot != "" {
		q = q.Where("slot = ?", f.Slot)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Query != "" {
		like := "%" + escapeLike(strings.ToLower(f.Query)) + "%"
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\' OR LOWER(building_room) LIKE ? ESCAPE '\'`, like, like, like)
	}

	var orders []model.Order
	if err := q.Order("slot ASC").Order("created_at ASC").Order("id ASC").Limit(f.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateOrder applies staff edits. A move into another bucket is gated unless
// upd.OverrideCapacity is set; orders that do not occupy capacity move freely.
func (s *gormStore) UpdateOrder(ctx context.Context, id int64, upd OrderUpdate) (*model.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var updated model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.loadForUpdate(tx, id)
		if err != nil {
			return err
		}

		next := *current
		upd.Apply(&next)
		if next.Bucket() != current.Bucket() && s.gate.Occupies(current.Status) && !upd.OverrideCapacity {
			if err := s.lockBucket(tx, next.Bucket()); err != nil {
				return err
			}
			if err := s.gate.TryAdmit(ctx, s.counter(tx), next.Bucket(), id); err != nil {
				return err
			}
		}

		if err := tx.Model(&model.Order{}).Where("id = ?", id).Updates(map[string]any{
			"day":           next.Day,
			"slot":          next.Slot,
			"item":          next.Item,
			"kitchen_notes": next.KitchenNotes,
		}).Error; err != nil {
			return fmt.Errorf("failed to update order %d: %w", id, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateStatus sets the status of a single order. Bringing a canceled or
// no-show order back into an occupying status has to pass the gate again.
func (s *gormStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !s.gate.Occupies(current.Status) && s.gate.Occupies(status) {
			if err := s.lockBucket(tx, current.Bucket()); err != nil {
				return err
			}
			if err := s.gate.TryAdmit(ctx, s.counter(tx), current.Bucket(), id); err != nil {
				return err
			}
		}
		if err := tx.Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to update status of order %d: %w", id, err)
		}
		return nil
	})
}

// DeleteOrder removes a single order.
func (s *gormStore) DeleteOrder(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res := s.db.WithContext(ctx).Delete(&model.Order{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWeek removes every order of weekKey and returns how many were deleted.
func (s *gormStore) DeleteWeek(ctx context.Context, weekKey string) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res := s.db.WithContext(ctx).Where("week_key = ?", weekKey).Delete(&model.Order{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete week %s: %w", weekKey, res.Error)
	}
	return res.RowsAffected, nil
}

// CountBucket counts capacity-occupying orders outside a transaction, for reporting.
func (s *gormStore) CountBucket(ctx context.Context, b model.Bucket, excludeID int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return s.countBucket(s.db.WithContext(ctx), b, excludeID)
}

// SeedSlots replaces the time slot reference table.
func (s *gormStore) SeedSlots(ctx context.Context, slots []model.TimeSlot) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows := append([]model.TimeSlot(nil), slots...)
	for i := range rows {
		rows[i].ID = 0
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.TimeSlot{}).Error; err != nil {
			return fmt.Errorf("failed to clear time slots: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to seed time slots: %w", err)
		}
		return nil
	})
}

// ListSlots returns the slot labels stored for day in display order.
func (s *gormStore) ListSlots(ctx context.Context, day string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var slots []string
	if err := s.db.WithContext(ctx).Model(&model.TimeSlot{}).
		Where("day = ?", day).
		Order("position ASC").Order("slot ASC").
		Pluck("slot", &slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list slots for %s: %w", day, err)
	}
	return slots, nil
}

// SaveSubscription creates or refreshes a kitchen push subscription.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a push subscription by endpoint.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscriptions returns every kitchen push subscription.
func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// Close releases the underlying connection pool.
func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- Helpers ---

// loadForUpdate reads an order inside tx, row-locked on postgres.
func (s *gormStore) loadForUpdate(tx *gorm.DB, id int64) (*model.Order, error) {
	q := tx
	if s.dialect == DialectPostgres {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var o model.Order
	if err := q.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	return &o, nil
}

// lockBucket serializes admissions into b for the rest of the transaction.
func (s *gormStore) lockBucket(tx *gorm.DB, b model.Bucket) error {
	if s.dialect != DialectPostgres {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", b.String()).Error; err != nil {
		return fmt.Errorf("failed to lock bucket %s: %w", b, err)
	}
	return nil
}

// counter binds bucket counting to tx so the gate sees the transaction's snapshot.
func (s *gormStore) counter(tx *gorm.DB) capacity.Counter {
	return capacity.CounterFunc(func(_ context.Context, b model.Bucket, excludeID int64) (int64, error) {
		return s.countBucket(tx, b, excludeID)
	})
}

func (s *gormStore) countBucket(db *gorm.DB, b model.Bucket, excludeID int64) (int64, error) {
	q := db.Model(&model.Order{}).
		Where("week_key = ? AND day = ? AND slot = ?", b.WeekKey, b.Day, b.Slot).
		Where("status NOT IN ?", s.gate.FreeingStatuses())
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
