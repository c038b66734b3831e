package models

import "time"

// HoldReason is a named reason a task can be put on hold for
type HoldReason struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"not null;uniqueIndex" json:"name"`
	Description string `json:"description"`
	Archived    bool   `gorm:"default:false" json:"archived"`
}

func (HoldReason) TableName() string {
	return "sm_hold_reasons"
}

// PublicHoliday is a non-working date for one region
type PublicHoliday struct {
	ID     uint      `gorm:"primarykey" json:"id"`
	Date   time.Time `gorm:"not null;uniqueIndex:idx_holiday_region,priority:1" json:"date"`
	Region string    `gorm:"size:8;not null;uniqueIndex:idx_holiday_region,priority:2;index" json:"region"`
	Name   string    `json:"name"`
}
