package schedule

import (
	"time"

	"github.com/balkashynov/smgantt/internal/models"
)

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// changedColumns returns the mutable columns that differ between before and after
func changedColumns(before, after *models.Task) map[string]interface{} {
	cols := make(map[string]interface{})
	set := func(differs bool, name string, v interface{}) {
		if differs {
			cols[name] = v
		}
	}
	set(!before.StartDate.Equal(after.StartDate), "start_date", after.StartDate)
	set(!before.EndDate.Equal(after.EndDate), "end_date", after.EndDate)
	set(before.DurationDays != after.DurationDays, "duration_days", after.DurationDays)
	set(before.SequenceOrder != after.SequenceOrder, "sequence_order", after.SequenceOrder)
	set(before.Status != after.Status, "status", after.Status)
	set(!timePtrEqual(before.StartedAt, after.StartedAt), "started_at", after.StartedAt)
	set(!timePtrEqual(before.CompletedAt, after.CompletedAt), "completed_at", after.CompletedAt)
	set(!boolPtrEqual(before.Passed, after.Passed), "passed", after.Passed)

	set(before.Confirm != after.Confirm, "confirm", after.Confirm)
	set(before.SupplierConfirm != after.SupplierConfirm, "supplier_confirm", after.SupplierConfirm)
	set(before.ConfirmStatus != after.ConfirmStatus, "confirm_status", after.ConfirmStatus)
	set(before.ManuallyPositioned != after.ManuallyPositioned, "manually_positioned", after.ManuallyPositioned)

	set(before.IsHoldTask != after.IsHoldTask, "is_hold_task", after.IsHoldTask)
	set(!uintPtrEqual(before.HoldReasonID, after.HoldReasonID), "hold_reason_id", after.HoldReasonID)
	set(before.HoldReason != after.HoldReason, "hold_reason", after.HoldReason)
	set(!timePtrEqual(before.HoldStartedAt, after.HoldStartedAt), "hold_started_at", after.HoldStartedAt)
	set(before.HoldStartedBy.Kind != after.HoldStartedBy.Kind, "hold_started_by_kind", after.HoldStartedBy.Kind)
	set(before.HoldStartedBy.ID != after.HoldStartedBy.ID, "hold_started_by_id", after.HoldStartedBy.ID)
	set(!timePtrEqual(before.HoldUntil, after.HoldUntil), "hold_until", after.HoldUntil)
	set(!timePtrEqual(before.HoldReleasedAt, after.HoldReleasedAt), "hold_released_at", after.HoldReleasedAt)
	set(before.HoldReleasedBy.Kind != after.HoldReleasedBy.Kind, "hold_released_by_kind", after.HoldReleasedBy.Kind)
	set(before.HoldReleasedBy.ID != after.HoldReleasedBy.ID, "hold_released_by_id", after.HoldReleasedBy.ID)
	set(before.HoldReleaseReason != after.HoldReleaseReason, "hold_release_reason", after.HoldReleaseReason)

	set(!uintPtrEqual(before.ParentTaskID, after.ParentTaskID), "parent_task_id", after.ParentTaskID)
	return cols
}
