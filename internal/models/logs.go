package models

import (
	"time"

	"gorm.io/datatypes"
)

// DeletedDependency is the audit snapshot of an edge removed during rollover
type DeletedDependency struct {
	DependencyID  uint           `json:"dependency_id"`
	PredecessorID uint           `json:"predecessor_id"`
	SuccessorID   uint           `json:"successor_id"`
	Type          DependencyType `json:"type"`
	LagDays       int            `json:"lag_days"`
}

// RolloverLog is one task touched by one rollover batch. Rows are never updated.
type RolloverLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RolloverBatchID string `gorm:"size:36;not null;index" json:"rollover_batch_id"`
	ConstructionID  uint   `gorm:"not null;index" json:"construction_id"`
	TaskID          uint   `gorm:"not null;index" json:"task_id"`

	OldStartDate time.Time `json:"old_start_date"`
	NewStartDate time.Time `json:"new_start_date"`
	OldEndDate   time.Time `json:"old_end_date"`
	NewEndDate   time.Time `json:"new_end_date"`

	DeletedDependencies datatypes.JSONSlice[DeletedDependency] `json:"deleted_dependencies"`
	HoldCleared         bool                                   `json:"hold_cleared"`
	ConfirmCleared      bool                                   `json:"confirm_cleared"`
	CascadeDepth        int                                    `json:"cascade_depth"`
	Error               string                                 `json:"error,omitempty"`
}

func (RolloverLog) TableName() string {
	return "sm_rollover_logs"
}

// HoldEvent names a hold transition
type HoldEvent string

const (
	HoldStarted  HoldEvent = "hold_started"
	HoldReleased HoldEvent = "hold_released"
)

// HoldLog records one hold start or release
type HoldLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ConstructionID uint      `gorm:"not null;index" json:"construction_id"`
	TaskID         uint      `gorm:"not null;index" json:"task_id"`
	Event          HoldEvent `gorm:"size:16;not null" json:"event"`
	Actor          Actor     `gorm:"embedded;embeddedPrefix:actor_" json:"actor"`
	ReasonID       *uint     `json:"reason_id"`
	Reason         string    `json:"reason"`

	DependenciesAffected int       `json:"dependencies_affected"`
	TasksAffected        int       `json:"tasks_affected"`
	HoldDurationDays     *int      `json:"hold_duration_days"`
	OccurredAt           time.Time `gorm:"not null" json:"occurred_at"`
}

func (HoldLog) TableName() string {
	return "sm_hold_logs"
}

// SpawnType is the kind of follow-up task created on completion
type SpawnType string

const (
	SpawnPhoto           SpawnType = "photo"
	SpawnScan            SpawnType = "scan"
	SpawnOffice          SpawnType = "office"
	SpawnInspectionRetry SpawnType = "inspection_retry"
)

// SpawnTrigger is the event that caused a spawn
type SpawnTrigger string

const (
	TriggerParentComplete SpawnTrigger = "parent_complete"
	TriggerInspectionFail SpawnTrigger = "inspection_fail"
)

// SpawnLog links a parent task to a task it spawned
type SpawnLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ParentTaskID  uint         `gorm:"not null;index" json:"parent_task_id"`
	SpawnedTaskID uint         `gorm:"not null;index" json:"spawned_task_id"`
	SpawnType     SpawnType    `gorm:"size:32;not null" json:"spawn_type"`
	SpawnTrigger  SpawnTrigger `gorm:"size:32;not null" json:"spawn_trigger"`
	SpawnedBy     Actor        `gorm:"embedded;embeddedPrefix:spawned_by_" json:"spawned_by"`
}

func (SpawnLog) TableName() string {
	return "sm_spawn_logs"
}
