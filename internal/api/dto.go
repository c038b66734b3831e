package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/balkashynov/smgantt/internal/models"
	"github.com/balkashynov/smgantt/internal/parser"
	"github.com/balkashynov/smgantt/internal/schedule"
)

// StartInput accepts a day offset as a JSON number or any start string the parser understands
type StartInput struct {
	Spec *parser.StartSpec
}

// UnmarshalJSON implements json.Unmarshaler
func (s *StartInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		spec, err := parser.ParseStart(str)
		if err != nil {
			return &startError{err: err}
		}
		s.Spec = spec
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return &startError{err: fmt.Errorf("start_date must be a whole day offset or a date, got %s", b)}
	}
	s.Spec = &parser.StartSpec{Offset: &n}
	return nil
}

type startError struct{ err error }

func (e *startError) Error() string { return e.err.Error() }

// ChangeTaskRequest is the body of PATCH /tasks/:id
type ChangeTaskRequest struct {
	StartDate          *StartInput `json:"start_date"`
	Duration           *int        `json:"duration"`
	ManuallyPositioned *bool       `json:"manually_positioned"`
	Confirm            *bool       `json:"confirm"`
	SupplierConfirm    *bool       `json:"supplier_confirm"`
	PredecessorIDs     *[]uint     `json:"predecessor_ids"`
	Predecessors       *string     `json:"predecessors"`
	Override           bool        `json:"override"`
	UserID             uint        `json:"user_id"`
}

// toChange builds the engine request. Predecessors by number and by id are mutually exclusive.
func (r ChangeTaskRequest) toChange(taskID uint) (schedule.ChangeRequest, error) {
	req := schedule.ChangeRequest{
		TaskID:             taskID,
		Duration:           r.Duration,
		ManuallyPositioned: r.ManuallyPositioned,
		Confirm:            r.Confirm,
		SupplierConfirm:    r.SupplierConfirm,
		Override:           r.Override,
		Actor:              models.UserActor(r.UserID),
	}
	if r.StartDate != nil && r.StartDate.Spec != nil {
		req.StartDate = r.StartDate.Spec.Date
		req.StartOffset = r.StartDate.Spec.Offset
	}

	switch {
	case r.PredecessorIDs != nil && r.Predecessors != nil:
		return req, &schedule.ValidationError{Field: "predecessors", Reason: "send either predecessors or predecessor_ids, not both"}
	case r.PredecessorIDs != nil:
		links := make([]schedule.PredecessorLink, 0, len(*r.PredecessorIDs))
		for _, id := range *r.PredecessorIDs {
			links = append(links, schedule.PredecessorLink{TaskID: id, Type: models.FinishToStart})
		}
		req.Predecessors = &links
	case r.Predecessors != nil:
		preds, err := parser.ParsePredecessors(*r.Predecessors)
		if err != nil {
			return req, &schedule.ValidationError{Field: "predecessors", Reason: err.Error()}
		}
		links := schedule.LinksByNumber(preds)
		req.Predecessors = &links
	}
	return req, nil
}

// HoldTaskRequest is the body of POST /tasks/:id/hold
type HoldTaskRequest struct {
	ReasonID uint   `json:"reason_id" binding:"required"`
	UserID   uint   `json:"user_id"`
	Until    string `json:"until"`
}

// ReleaseHoldRequest is the body of POST /tasks/:id/release_hold
type ReleaseHoldRequest struct {
	ReasonText string `json:"reason_text" binding:"max=500"`
	UserID     uint   `json:"user_id"`
}

// ActorRequest is the optional body of start and dependency removal
type ActorRequest struct {
	UserID uint `json:"user_id"`
}

// CompleteTaskRequest is the body of POST /tasks/:id/complete
type CompleteTaskRequest struct {
	Passed *bool `json:"passed"`
	UserID uint  `json:"user_id"`
}

// CreateDependencyRequest is the body of POST /dependencies
type CreateDependencyRequest struct {
	PredecessorID  uint   `json:"predecessor_id" binding:"required"`
	SuccessorID    uint   `json:"successor_id" binding:"required"`
	DependencyType string `json:"dependency_type" binding:"omitempty,oneof=FS SS FF SF fs ss ff sf"`
	LagDays        int    `json:"lag_days"`
	UserID         uint   `json:"user_id"`
}

// ValidationErrorDetail describes one rejected field
type ValidationErrorDetail struct {
	Field    string      `json:"field"`
	Message  string      `json:"message"`
	Expected string      `json:"expected"`
	Received interface{} `json:"received"`
}

var registerTagNames sync.Once

// useJSONNames makes validator report fields by their json name
func useJSONNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON binds the request body into obj. An empty body is accepted when optional is set.
// On failure it writes a validation response and returns false.
func bindJSON(c *gin.Context, obj interface{}, optional bool) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	var details []ValidationErrorDetail
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		sErr    *startError
	)
	switch {
	case errors.As(err, &verrs):
		for _, e := range verrs {
			detail := ValidationErrorDetail{
				Field:    e.Field(),
				Message:  fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag()),
				Expected: e.Param(),
				Received: e.Value(),
			}
			switch e.Tag() {
			case "required":
				detail.Message = fmt.Sprintf("Field '%s' is required", e.Field())
				detail.Expected = "not empty"
			case "oneof":
				detail.Message = fmt.Sprintf("Field '%s' must be one of %s", e.Field(), e.Param())
			case "max":
				detail.Message = fmt.Sprintf("Field '%s' must be at most %s characters long", e.Field(), e.Param())
			}
			if detail.Expected == "" {
				detail.Expected = e.Tag()
			}
			details = append(details, detail)
		}
	case errors.As(err, &sErr):
		details = append(details, ValidationErrorDetail{
			Field:    "start_date",
			Message:  sErr.Error(),
			Expected: "day offset, yyyy-mm-dd, dd/mm/yyyy or +N",
		})
	case errors.As(err, &typeErr):
		details = append(details, ValidationErrorDetail{
			Field:    typeErr.Field,
			Message:  fmt.Sprintf("Field '%s' has invalid type", typeErr.Field),
			Expected: typeErr.Type.String(),
			Received: typeErr.Value,
		})
	default:
		details = append(details, ValidationErrorDetail{
			Field:    "body",
			Message:  "Malformed JSON or invalid request body",
			Expected: "valid JSON",
			Received: "invalid",
		})
	}

	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Response{
		Status:  http.StatusUnprocessableEntity,
		Message: "Invalid request parameters",
		Kind:    string(schedule.KindValidation),
		Data:    ErrorData{Details: details},
	})
	return false
}
