package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Days accepted for pickup.
const (
	Saturday = "Saturday"
	Sunday   = "Sunday"
)

// Menu items.
const (
	ItemBagel    = "bagel"
	ItemSandwich = "sandwich"
)

// Order statuses.
const (
	StatusQueued    = "queued"
	StatusWorking   = "working"
	StatusReady     = "ready"
	StatusHandedOff = "handed_off"
	StatusCanceled  = "canceled"
	StatusNoShow    = "no_show"
)

// Statuses lists every status in board order.
var Statuses = []string{StatusQueued, StatusWorking, StatusReady, StatusHandedOff, StatusCanceled, StatusNoShow}

// ValidDay reports whether d is a pickup day.
func ValidDay(d string) bool { return d == Saturday || d == Sunday }

// ValidItem reports whether i is on the menu.
func ValidItem(i string) bool { return i == ItemBagel || i == ItemSandwich }

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Options holds the item-specific choices as sent by the client.
// It is persisted as a JSON text column.
type Options map[string]any

// Value implements driver.Valuer.
func (o Options) Value() (driver.Value, error) {
	if o == nil {
		return "{}", nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (o *Options) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*o = Options{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported options column type %T", src)
	}
	if len(raw) == 0 {
		*o = Options{}
		return nil
	}
	m := Options{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	*o = m
	return nil
}

// Order is a single weekend pre-order.
type Order struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
	Day          string    `gorm:"size:16;not null;index:idx_orders_bucket,priority:2" json:"day"`
	Slot         string    `gorm:"size:32;not null;index:idx_orders_bucket,priority:3" json:"slot"`
	Item         string    `gorm:"size:16;not null" json:"item"`
	Options      Options   `gorm:"type:text;not null" json:"options"`
	Name         string    `gorm:"size:256;not null" json:"name"`
	BuildingRoom string    `gorm:"size:256;not null" json:"building_room"`
	Phone        string    `gorm:"size:32;not null" json:"phone"`
	Notes        string    `gorm:"type:text" json:"notes"`
	PaymentReady bool      `gorm:"not null" json:"payment_ready"`
	TotalCents   int       `gorm:"not null" json:"total_cents"`
	WeekKey      string    `gorm:"size:10;not null;index:idx_orders_bucket,priority:1" json:"week_key"`
	Status       string    `gorm:"size:16;not null;default:queued" json:"status"`
	KitchenNotes string    `gorm:"type:text" json:"kitchen_notes"`
}

// Bucket identifies the capacity bucket the order occupies.
func (o *Order) Bucket() Bucket {
	return Bucket{WeekKey: o.WeekKey, Day: o.Day, Slot: o.Slot}
}

// Bucket is a (week, day, slot) reservation cell.
type Bucket struct {
	WeekKey string
	Day     string
	Slot    string
}

// String renders the bucket as a stable key.
func (b Bucket) String() string {
	return b.WeekKey + "|" + b.Day + "|" + b.Slot
}
