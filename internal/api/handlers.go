package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
)

// Handler serves the schedule endpoints on top of one engine
type Handler struct {
	engine *schedule.Engine
	log    *zap.Logger
}

// NewHandler returns a handler for engine. A nil log discards output.
func NewHandler(engine *schedule.Engine, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{engine: engine, log: log}
}

// pathID parses the uint path parameter name, writing a validation error when it is malformed
func (h *Handler) pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		writeError(c, h.log, &schedule.ValidationError{Field: name, Reason: fmt.Sprintf("%q is not a valid id", c.Param(name))})
		return 0, false
	}
	return uint(id), true
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	ok(c, "ok", gin.H{"time": time.Now().UTC()})
}

// ListConstructions returns every job
func (h *Handler) ListConstructions(c *gin.Context) {
	list, err := h.engine.Constructions(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, "Constructions retrieved", list)
}

// GetConstruction returns one job
func (h *Handler) GetConstruction(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	construction, err := h.engine.Construction(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, "Construction retrieved", construction)
}

// ListTasks returns the tasks of a job in schedule order
func (h *Handler) ListTasks(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	tasks, err := h.engine.Tasks(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, "Tasks retrieved", tasks)
}

// CriticalPath returns float and the critical chain of a job
func (h *Handler) CriticalPath(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	result, err := h.engine.CriticalPath(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, "Critical path computed", result)
}

// UpdateTask applies one edit and returns the complete cascade in a single payload
func (h *Handler) UpdateTask(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var body ChangeTaskRequest
	if !bindJSON(c, &body, false) {
		return
	}
	req, err := body.toChange(id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	result, err := h.engine.ApplyChange(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, fmt.Sprintf("Task updated, %d dependent tasks moved", len(result.CascadedTasks)), result)
}

// HoldTask puts a task on hold
func (h *Handler) HoldTask(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var body HoldTaskRequest
	if !bindJSON(c, &body, false) {
		return
	}
	req := schedule.HoldRequest{TaskID: id, ReasonID: body.ReasonID, UserID: body.UserID}
	if body.Until != "" {
		until, err := parser.ParseDate(body.Until)
		if err != nil {
			writeError(c, h.log, &schedule.ValidationError{Field: "until", Reason: err.Error()})
			return
		}
		req.Until = &until
	}
	result, err := h.engine.StartHold(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, fmt.Sprintf("Task on hold, %d downstream tasks frozen", result.TasksAffected), result)
}

// ReleaseHold takes a task off hold and cascades
func (h *Handler) ReleaseHold(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var body ReleaseHoldRequest
	if !bindJSON(c, &body, true) {
		return
	}
	result, err := h.engine.ReleaseHold(c.Request.Context(), schedule.ReleaseRequest{
		TaskID:     id,
		ReasonText: body.ReasonText,
		UserID:     body.UserID,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, fmt.Sprintf("Hold released, %d tasks moved", len(result.Cascade.CascadedTasks)), result)
}

// StartTask marks a task started
func (h *Handler) StartTask(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var body ActorRequest
	if !bindJSON(c, &body, true) {
		return
	}
	task, err := h.engine.StartTask(c.Request.Context(), id, models.UserActor(body.UserID))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, "Task started", task)
}

// CompleteTask marks a task completed and spawns its follow-ups
func (h *Handler) CompleteTask(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var body CompleteTaskRequest
	if !bindJSON(c, &body, true) {
		return
	}
	result, err := h.engine.CompleteTask(c.Request.Context(), schedule.CompleteRequest{
		TaskID: id,
		Passed: body.Passed,
		Actor:  models.UserActor(body.UserID),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, fmt.Sprintf("Task completed, %d follow-up tasks created", len(result.Spawned)), result)
}

// CreateDependency links two tasks and cascades from the predecessor
func (h *Handler) CreateDependency(c *gin.Context) {
	var body CreateDependencyRequest
	if !bindJSON(c, &body, false) {
		return
	}
	typ, err := models.ParseDependencyType(body.DependencyType)
	if err != nil {
		writeError(c, h.log, &schedule.ValidationError{Field: "dependency_type", Reason: err.Error()})
		return
	}
	result, err := h.engine.AddDependency(c.Request.Context(), schedule.DependencyRequest{
		PredecessorID: body.PredecessorID,
		SuccessorID:   body.SuccessorID,
		Type:          typ,
		LagDays:       body.LagDays,
		Actor:         models.UserActor(body.UserID),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	created(c, "Dependency created", result)
}

// DeleteDependency soft-deletes an edge. The user id may come as ?user_id= or in the body.
func (h *Handler) DeleteDependency(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var body ActorRequest
	if !bindJSON(c, &body, true) {
		return
	}
	if q := c.Query("user_id"); q != "" {
		if uid, err := strconv.ParseUint(q, 10, 64); err == nil {
			body.UserID = uint(uid)
		}
	}
	dep, err := h.engine.RemoveDependency(c.Request.Context(), id, models.UserActor(body.UserID))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, "Dependency removed", dep)
}

// ListHoldReasons returns the hold reason catalogue
func (h *Handler) ListHoldReasons(c *gin.Context) {
	reasons, err := h.engine.HoldReasons(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ok(c, "Hold reasons retrieved", reasons)
}
