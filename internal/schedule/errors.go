package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/balkashynov/smgantt/internal/db"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrCyclicDependency       = errors.New("cyclic dependency")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrTaskHeld               = errors.New("task is on hold")
	ErrNotFound               = errors.New("not found")

	ErrSelfDependency      = errors.New("a task cannot depend on itself")
	ErrDuplicateDependency = errors.New("dependency already exists")
)

// Kind is the machine-readable error class reported to callers
type Kind string

const (
	KindValidation             Kind = "validation"
	KindCyclicDependency       Kind = "cyclic_dependency"
	KindConcurrentModification Kind = "concurrent_modification"
	KindTaskHeld               Kind = "task_held"
	KindNotFound               Kind = "not_found"
	KindInternal               Kind = "internal"
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrCyclicDependency):
		return KindCyclicDependency
	case errors.Is(err, ErrConcurrentModification):
		return KindConcurrentModification
	case errors.Is(err, ErrTaskHeld):
		return KindTaskHeld
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	}
	return KindInternal
}

// ValidationError reports bad input. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
	cause  error
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrValidation, e.cause}
	}
	return []error{ErrValidation}
}

// CyclicDependencyError carries the offending cycle as task numbers, first repeated last
type CyclicDependencyError struct {
	Cycle   []int
	TaskIDs []uint
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		parts[i] = "#" + strconv.Itoa(n)
	}
	return "cyclic dependency: " + strings.Join(parts, " → ")
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// ConcurrentModificationError means another operation holds the job lock. Retry shortly.
type ConcurrentModificationError struct {
	ConstructionID uint
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("construction #%d is being rescheduled by another request, retry shortly", e.ConstructionID)
}

func (e *ConcurrentModificationError) Unwrap() error { return ErrConcurrentModification }

// TaskHeldError is returned when a held task is edited
type TaskHeldError struct {
	TaskID     uint
	TaskNumber int
	Reason     string
}

func (e *TaskHeldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("task #%d is on hold (%s), release hold first", e.TaskNumber, e.Reason)
	}
	return fmt.Sprintf("task #%d is on hold, release hold first", e.TaskNumber)
}

func (e *TaskHeldError) Unwrap() error { return ErrTaskHeld }

// NotFoundError reports a missing construction, task, dependency or hold reason
type NotFoundError struct {
	What string
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s #%d not found", e.What, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// storeError converts storage not-found errors into NotFoundError
func storeError(err error, what string, id uint) error {
	if errors.Is(err, db.ErrNotFound) {
		return &NotFoundError{What: what, ID: id}
	}
	return err
}
