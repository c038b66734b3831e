package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/balkashynov/smgantt/internal/schedule"
)

// Response is the envelope of every API reply
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data"`
}

// ErrorData carries the machine-readable details of a failed request
type ErrorData struct {
	Field   string                  `json:"field,omitempty"`
	Cycle   []int                   `json:"cycle,omitempty"`
	TaskID  uint                    `json:"task_id,omitempty"`
	Reason  string                  `json:"reason,omitempty"`
	Details []ValidationErrorDetail `json:"errors,omitempty"`
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: http.StatusOK, Message: message, Data: data})
}

func created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Status: http.StatusCreated, Message: message, Data: data})
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind schedule.Kind) int {
	switch kind {
	case schedule.KindValidation:
		return http.StatusUnprocessableEntity
	case schedule.KindCyclicDependency, schedule.KindConcurrentModification:
		return http.StatusConflict
	case schedule.KindTaskHeld:
		return http.StatusLocked
	case schedule.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError renders err with the status of its kind. Internal errors are logged and hidden.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	kind := schedule.KindOf(err)
	status := statusFor(kind)
	resp := Response{Status: status, Message: err.Error(), Kind: string(kind)}

	var (
		verr  *schedule.ValidationError
		cycle *schedule.CyclicDependencyError
		held  *schedule.TaskHeldError
	)
	switch {
	case errors.As(err, &verr):
		resp.Data = ErrorData{Field: verr.Field, Reason: verr.Reason}
	case errors.As(err, &cycle):
		resp.Data = ErrorData{Cycle: cycle.Cycle}
	case errors.As(err, &held):
		resp.Data = ErrorData{TaskID: held.TaskID, Reason: held.Reason}
	}

	switch kind {
	case schedule.KindConcurrentModification:
		c.Header("Retry-After", "1")
	case schedule.KindInternal:
		log.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		resp.Message = "internal error"
	}
	c.AbortWithStatusJSON(status, resp)
}
