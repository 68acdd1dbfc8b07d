package model

// TimeSlot is a pickup window offered on a given day.
type TimeSlot struct {
	ID       int64  `gorm:"primaryKey"`
	Day      string `gorm:"size:16;not null;uniqueIndex:idx_time_slots_day_slot"`
	Slot     string `gorm:"size:32;not null;uniqueIndex:idx_time_slots_day_slot"`
	Position int    `gorm:"not null;default:0"`
}
