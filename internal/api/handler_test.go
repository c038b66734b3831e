package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/smgantt/internal/calendar"
	"github.com/balkashynov/smgantt/internal/config"
	"github.com/balkashynov/smgantt/internal/db"
	"github.com/balkashynov/smgantt/internal/lock"
	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/schedule"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

type apiFixture struct {
	t      *testing.T
	router *gin.Engine
	engine *schedule.Engine
	locker *lock.MemoryLocker
	job    *models.Construction
	first  *models.Task
	second *models.Task
}

// setupAPI builds a job with two FS-linked tasks: #1 (2 days) then #2 (1 day)
func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	locker := lock.NewMemoryLocker(0)
	now := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	engine := schedule.NewEngine(database,
		schedule.WithLocker(locker),
		schedule.WithClock(func() time.Time { return now }))

	ctx := context.Background()
	job := &models.Construction{
		Name:        "Lot 3 Creekside",
		StartDate:   calendar.Date(2025, time.March, 3),
		Timezone:    "UTC",
		WorkingDays: "mon,tue,wed,thu,fri,sat,sun",
	}
	require.NoError(t, engine.CreateConstruction(ctx, job))

	first, err := engine.CreateTask(ctx, schedule.NewTask{ConstructionID: job.ID, Name: "Slab", DurationDays: 2})
	require.NoError(t, err)
	second, err := engine.CreateTask(ctx, schedule.NewTask{
		ConstructionID: job.ID,
		Name:           "Frame",
		DurationDays:   1,
		Predecessors:   []schedule.PredecessorLink{{TaskID: first.ID, Type: models.FinishToStart}},
	})
	require.NoError(t, err)

	_, err = db.FindOrCreateHoldReason(database, "Weather")
	require.NoError(t, err)

	return &apiFixture{
		t:      t,
		router: NewRouter(engine, config.ServerConfig{AllowOrigins: []string{"*"}}, nil),
		engine: engine,
		locker: locker,
		job:    job,
		first:  first,
		second: second,
	}
}

func (f *apiFixture) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func taskPath(id uint, suffix string) string {
	return "/api/v1/tasks/" + strconv.FormatUint(uint64(id), 10) + suffix
}

func TestUpdateTaskReturnsWholeCascade(t *testing.T) {
	f := setupAPI(t)
	job, err := f.engine.Construction(context.Background(), f.job.ID)
	require.NoError(t, err)

	w, env := f.do(http.MethodPatch, taskPath(f.first.ID, ""), gin.H{"start_date": 3, "user_id": 9})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusOK, env.Status)

	var result schedule.CascadeResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "2025-03-06", result.UpdatedTask.StartDate.Format("2006-01-02"))
	require.Len(t, result.CascadedTasks, 1)
	assert.Equal(t, f.second.ID, result.CascadedTasks[0].ID)
	assert.Equal(t, "2025-03-08", result.CascadedTasks[0].StartDate.Format("2006-01-02"))
	assert.Equal(t, job.ScheduleVersion+1, result.ScheduleVersion)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUpdateTaskAcceptsDateStringsAndNotation(t *testing.T) {
	f := setupAPI(t)

	w, env := f.do(http.MethodPatch, taskPath(f.first.ID, ""), gin.H{"start_date": "10/03/2025"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result schedule.CascadeResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "2025-03-10", result.UpdatedTask.StartDate.Format("2006-01-02"))

	w, env = f.do(http.MethodPatch, taskPath(f.second.ID, ""), gin.H{"predecessors": "1SS+1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "2025-03-11", result.UpdatedTask.StartDate.Format("2006-01-02"))
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   func(f *apiFixture) string
		body   func(f *apiFixture) interface{}
		status int
		kind   string
	}{
		{
			name:   "malformed start",
			method: http.MethodPatch,
			path:   func(f *apiFixture) string { return taskPath(f.first.ID, "") },
			body:   func(f *apiFixture) interface{} { return gin.H{"start_date": "soon"} },
			status: http.StatusUnprocessableEntity,
			kind:   "validation",
		},
		{
			name:   "bad id",
			method: http.MethodPatch,
			path:   func(f *apiFixture) string { return "/api/v1/tasks/abc" },
			body:   func(f *apiFixture) interface{} { return gin.H{} },
			status: http.StatusUnprocessableEntity,
			kind:   "validation",
		},
		{
			name:   "negative duration",
			method: http.MethodPatch,
			path:   func(f *apiFixture) string { return taskPath(f.first.ID, "") },
			body:   func(f *apiFixture) interface{} { return gin.H{"duration": -2} },
			status: http.StatusUnprocessableEntity,
			kind:   "validation",
		},
		{
			name:   "both predecessor forms",
			method: http.MethodPatch,
			path:   func(f *apiFixture) string { return taskPath(f.second.ID, "") },
			body:   func(f *apiFixture) interface{} { return gin.H{"predecessors": "1", "predecessor_ids": []uint{1}} },
			status: http.StatusUnprocessableEntity,
			kind:   "validation",
		},
		{
			name:   "missing task",
			method: http.MethodPatch,
			path:   func(f *apiFixture) string { return taskPath(999, "") },
			body:   func(f *apiFixture) interface{} { return gin.H{"start_date": 1} },
			status: http.StatusNotFound,
			kind:   "not_found",
		},
		{
			name:   "cycle",
			method: http.MethodPost,
			path:   func(f *apiFixture) string { return "/api/v1/dependencies" },
			body: func(f *apiFixture) interface{} {
				return gin.H{"predecessor_id": f.second.ID, "successor_id": f.first.ID}
			},
			status: http.StatusConflict,
			kind:   "cyclic_dependency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAPI(t)
			w, env := f.do(tt.method, tt.path(f), tt.body(f))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.status, env.Status)
			assert.Equal(t, tt.kind, env.Kind)
		})
	}
}

func TestCycleResponseCarriesPath(t *testing.T) {
	f := setupAPI(t)

	w, env := f.do(http.MethodPost, "/api/v1/dependencies", gin.H{"predecessor_id": f.second.ID, "successor_id": f.first.ID})
	require.Equal(t, http.StatusConflict, w.Code)

	var data ErrorData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []int{1, 2, 1}, data.Cycle)
}

func TestHeldTaskIsLocked(t *testing.T) {
	f := setupAPI(t)
	reasons, err := f.engine.HoldReasons(context.Background())
	require.NoError(t, err)
	require.Len(t, reasons, 1)

	w, env := f.do(http.MethodPost, taskPath(f.first.ID, "/hold"), gin.H{"reason_id": reasons[0].ID, "user_id": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var hold schedule.HoldResult
	require.NoError(t, json.Unmarshal(env.Data, &hold))
	assert.Equal(t, []uint{f.second.ID}, hold.BlockedTaskIDs)

	w, env = f.do(http.MethodPatch, taskPath(f.first.ID, ""), gin.H{"start_date": 2})
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "task_held", env.Kind)

	w, _ = f.do(http.MethodPost, taskPath(f.first.ID, "/release_hold"), gin.H{"reason_text": "Dry again", "user_id": 4})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHoldRequiresReason(t *testing.T) {
	f := setupAPI(t)

	w, env := f.do(http.MethodPost, taskPath(f.first.ID, "/hold"), gin.H{"user_id": 4})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation", env.Kind)

	var data ErrorData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Details, 1)
	assert.Equal(t, "reason_id", data.Details[0].Field)
}

func TestConcurrentModificationAsksForRetry(t *testing.T) {
	f := setupAPI(t)
	release, err := f.locker.Acquire(context.Background(), f.job.ID)
	require.NoError(t, err)
	defer release()

	w, env := f.do(http.MethodPatch, taskPath(f.first.ID, ""), gin.H{"start_date": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "concurrent_modification", env.Kind)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestStartAndCompleteWithoutBody(t *testing.T) {
	f := setupAPI(t)

	w, env := f.do(http.MethodPost, taskPath(f.first.ID, "/start"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var task models.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, models.StatusStarted, task.Status)

	w, env = f.do(http.MethodPost, taskPath(f.first.ID, "/complete"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var done schedule.CompleteResult
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Equal(t, models.StatusCompleted, done.Task.Status)
}

func TestDependencyLifecycle(t *testing.T) {
	f := setupAPI(t)
	third, err := f.engine.CreateTask(context.Background(), schedule.NewTask{ConstructionID: f.job.ID, Name: "Roof", DurationDays: 1})
	require.NoError(t, err)

	w, env := f.do(http.MethodPost, "/api/v1/dependencies", gin.H{
		"predecessor_id":  f.second.ID,
		"successor_id":    third.ID,
		"dependency_type": "fs",
		"lag_days":        1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created schedule.DependencyResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.FinishToStart, created.Dependency.DependencyType)
	assert.Equal(t, "2025-03-07", created.Cascade.CascadedTasks[0].StartDate.Format("2006-01-02"))

	w, _ = f.do(http.MethodPost, "/api/v1/dependencies", gin.H{"predecessor_id": f.second.ID, "successor_id": third.ID, "dependency_type": "XX"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	path := "/api/v1/dependencies/" + strconv.FormatUint(uint64(created.Dependency.ID), 10) + "?user_id=3"
	w, _ = f.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = f.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Kind)
}

func TestReadEndpoints(t *testing.T) {
	f := setupAPI(t)
	id := strconv.FormatUint(uint64(f.job.ID), 10)

	w, env := f.do(http.MethodGet, "/api/v1/constructions/"+id+"/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	assert.Len(t, tasks, 2)

	w, env = f.do(http.MethodGet, "/api/v1/constructions/"+id+"/critical_path", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cp schedule.CriticalPathResult
	require.NoError(t, json.Unmarshal(env.Data, &cp))
	assert.Equal(t, 3, cp.ProjectDuration)
	assert.Equal(t, []uint{f.first.ID, f.second.ID}, cp.CriticalPath)

	w, _ = f.do(http.MethodGet, "/api/v1/hold_reasons", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = f.do(http.MethodGet, "/api/v1/constructions/424242", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Kind)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind   schedule.Kind
		status int
	}{
		{schedule.KindValidation, http.StatusUnprocessableEntity},
		{schedule.KindCyclicDependency, http.StatusConflict},
		{schedule.KindConcurrentModification, http.StatusConflict},
		{schedule.KindTaskHeld, http.StatusLocked},
		{schedule.KindNotFound, http.StatusNotFound},
		{schedule.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.kind))
		})
	}
}
