package models

import "time"

// Construction is a job whose schedule the engine maintains
type Construction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string    `gorm:"not null" json:"name"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	Timezone  string    `json:"timezone"`
	Region    string    `json:"region"`
	// Comma separated weekday names, e.g. "mon,tue,wed,thu,fri". Empty means configured default.
	WorkingDays string `json:"working_days"`

	RolloverDisabled    bool       `gorm:"default:false" json:"rollover_disabled"`
	LastRolloverOn      *time.Time `json:"last_rollover_on"`
	LastRolloverBatchID string     `json:"last_rollover_batch_id"`
	ScheduleVersion     int64      `gorm:"not null;default:0" json:"schedule_version"`

	Tasks []Task `gorm:"foreignKey:ConstructionID" json:"-"`
}
