package models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus is the progress state of a task
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusStarted    TaskStatus = "started"
	StatusCompleted  TaskStatus = "completed"
)

// ConfirmStatus records the confirmation history of a task
type ConfirmStatus string

const (
	ConfirmNone              ConfirmStatus = ""
	ConfirmConfirmed         ConfirmStatus = "confirmed"
	ConfirmSupplierConfirmed ConfirmStatus = "supplier_confirmed"
	ConfirmMovedAfterConfirm ConfirmStatus = "moved_after_confirm"
)

// Lock types, strongest first
const (
	LockSupplierConfirm    = "supplier_confirm"
	LockConfirm            = "confirm"
	LockStarted            = "started"
	LockCompleted          = "completed"
	LockManuallyPositioned = "manually_positioned"
)

// OfficeTaskTemplate describes an office follow-up spawned when a task completes
type OfficeTaskTemplate struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	DurationDays int    `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
}

// Task is one row of a construction schedule
type Task struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ConstructionID uint    `gorm:"not null;index;uniqueIndex:idx_sm_task_number,priority:1" json:"construction_id"`
	TaskNumber     int     `gorm:"not null;uniqueIndex:idx_sm_task_number,priority:2" json:"task_number"`
	Name           string  `gorm:"not null" json:"name"`
	Description    string  `json:"description"`
	SequenceOrder  float64 `gorm:"not null;default:0" json:"sequence_order"`
	Trade          string  `json:"trade"`
	Stage          string  `json:"stage"`

	StartDate    time.Time  `gorm:"not null" json:"start_date"`
	EndDate      time.Time  `gorm:"not null" json:"end_date"`
	DurationDays int        `gorm:"not null;default:1" json:"duration_days"`
	Status       TaskStatus `gorm:"size:16;not null;default:not_started;index" json:"status"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`

	// Lock flags
	Confirm            bool          `gorm:"default:false" json:"confirm"`
	SupplierConfirm    bool          `gorm:"default:false" json:"supplier_confirm"`
	ConfirmStatus      ConfirmStatus `gorm:"size:32" json:"confirm_status"`
	ManuallyPositioned bool          `gorm:"default:false" json:"manually_positioned"`

	// Hold state
	IsHoldTask        bool       `gorm:"default:false;index" json:"is_hold_task"`
	HoldReasonID      *uint      `json:"hold_reason_id"`
	HoldReason        string     `json:"hold_reason"`
	HoldStartedAt     *time.Time `json:"hold_started_at"`
	HoldStartedBy     Actor      `gorm:"embedded;embeddedPrefix:hold_started_by_" json:"hold_started_by"`
	HoldUntil         *time.Time `json:"hold_until"`
	HoldReleasedAt    *time.Time `json:"hold_released_at"`
	HoldReleasedBy    Actor      `gorm:"embedded;embeddedPrefix:hold_released_by_" json:"hold_released_by"`
	HoldReleaseReason string     `json:"hold_release_reason"`

	// Inspection and follow-ups
	PassFailEnabled  bool                                    `gorm:"default:false" json:"pass_fail_enabled"`
	Passed           *bool                                   `json:"passed"`
	SpawnPhotoTask   bool                                    `gorm:"default:false" json:"spawn_photo_task"`
	SpawnScanTask    bool                                    `gorm:"default:false" json:"spawn_scan_task"`
	SpawnOfficeTasks datatypes.JSONSlice[OfficeTaskTemplate] `json:"spawn_office_tasks"`

	// Hierarchy and external links
	ParentTaskID    *uint `gorm:"index" json:"parent_task_id"`
	PurchaseOrderID *uint `json:"purchase_order_id"`
	AssignedUserID  *uint `json:"assigned_user_id"`
	SupplierID      *uint `json:"supplier_id"`
	ChecklistID     *uint `json:"checklist_id"`
}

func (Task) TableName() string {
	return "sm_tasks"
}

// IsHeld reports whether the task is currently on hold
func (t *Task) IsHeld() bool {
	return t.IsHoldTask
}

// LockType returns the strongest lock on the task, or "" when unlocked
func (t *Task) LockType() string {
	switch {
	case t.SupplierConfirm:
		return LockSupplierConfirm
	case t.Confirm:
		return LockConfirm
	case t.Status == StatusStarted:
		return LockStarted
	case t.Status == StatusCompleted:
		return LockCompleted
	case t.ManuallyPositioned:
		return LockManuallyPositioned
	}
	return ""
}

// IsLocked reports whether automatic re-dating must leave the task alone
func (t *Task) IsLocked() bool {
	return t.LockType() != ""
}
