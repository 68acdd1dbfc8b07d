package schedule

import (
	"sort"
	"strings"

	"bagel-preorder-backend/internal/model"
)

// Catalog is the static list of pickup slots per day.
type Catalog struct {
	slots map[string][]string
}

// NewCatalog copies the per-day slot lists.
func NewCatalog(slots map[string][]string) *Catalog {
	c := &Catalog{slots: make(map[string][]string, len(slots))}
	for day, list := range slots {
		c.slots[day] = append([]string(nil), list...)
	}
	return c
}

// Slots returns the slot labels for day, in display order.
func (c *Catalog) Slots(day string) []string {
	return append([]string(nil), c.slots[day]...)
}

// Has reports whether slot is offered on day.
func (c *Catalog) Has(day, slot string) bool {
	for _, s := range c.slots[day] {
		if s == slot {
			return true
		}
	}
	return false
}

// TimeSlots flattens the catalog into reference rows for seeding a store.
func (c *Catalog) TimeSlots() []model.TimeSlot {
	days := make([]string, 0, len(c.slots))
	for day := range c.slots {
		days = append(days, day)
	}
	sort.Strings(days)

	var rows []model.TimeSlot
	for _, day := range days {
		for i, slot := range c.slots[day] {
			rows = append(rows, model.TimeSlot{Day: day, Slot: slot, Position: i})
		}
	}
	return rows
}

// Label renders a slot value for display, e.g. "10:00–10:30".
func Label(slot string) string {
	return strings.Replace(slot, "-", "–", 1)
}
