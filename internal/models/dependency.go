package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// DependencyType is the relation between predecessor and successor
type DependencyType string

const (
	FinishToStart  DependencyType = "FS"
	StartToStart   DependencyType = "SS"
	FinishToFinish DependencyType = "FF"
	StartToFinish  DependencyType = "SF"
)

// IsValid reports whether t is one of the four known types
func (t DependencyType) IsValid() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

// ParseDependencyType accepts FS/SS/FF/SF in any case; empty means FS
func ParseDependencyType(s string) (DependencyType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return FinishToStart, nil
	}
	t := DependencyType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown dependency type %q (use FS, SS, FF or SF)", s)
	}
	return t, nil
}

// DependencyStatus tracks whether an edge still constrains its successor
type DependencyStatus string

const (
	DependencyActive  DependencyStatus = "active"
	DependencyRemoved DependencyStatus = "removed"
)

// DeletedReason explains why a dependency was removed
type DeletedReason string

const (
	DeletedByRollover        DeletedReason = "rollover"
	DeletedManually          DeletedReason = "manual"
	DeletedByPredecessorEdit DeletedReason = "predecessor_edit"
)

// Dependency is a directed edge between two tasks of the same construction.
// Rows are soft-deleted only.
type Dependency struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	ConstructionID    uint             `gorm:"not null;index" json:"construction_id"`
	PredecessorTaskID uint             `gorm:"not null;index;uniqueIndex:idx_sm_dependency_pair,priority:1,where:deleted_at IS NULL" json:"predecessor_task_id"`
	SuccessorTaskID   uint             `gorm:"not null;index;uniqueIndex:idx_sm_dependency_pair,priority:2,where:deleted_at IS NULL" json:"successor_task_id"`
	DependencyType    DependencyType   `gorm:"size:2;not null;default:FS" json:"dependency_type"`
	LagDays           int              `gorm:"not null;default:0" json:"lag_days"`
	Status            DependencyStatus `gorm:"size:16;not null;default:active" json:"status"`

	DeletedReason     DeletedReason `gorm:"size:32" json:"deleted_reason,omitempty"`
	DeletedBy         Actor         `gorm:"embedded;embeddedPrefix:deleted_by_" json:"deleted_by"`
	DeletedByRollover bool          `gorm:"default:false" json:"deleted_by_rollover"`
}

func (Dependency) TableName() string {
	return "sm_dependencies"
}

// IsActive reports whether the edge still constrains its successor
func (d *Dependency) IsActive() bool {
	return d.Status == DependencyActive && !d.DeletedAt.Valid
}
