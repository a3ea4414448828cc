package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/gotalk-core/internal/model"
	appErrors "github.com/quocanhngo/gotalk-core/pkg/errors"
)

var statusByCode = map[appErrors.Code]int{
	appErrors.CodeInvalidArgument:  http.StatusBadRequest,
	appErrors.CodeNotFound:         http.StatusNotFound,
	appErrors.CodePermissionDenied: http.StatusForbidden,
	appErrors.CodeLimitReached:     http.StatusTooManyRequests,
	appErrors.CodeInvalidState:     http.StatusConflict,
	appErrors.CodeConflict:         http.StatusConflict,
	appErrors.CodeInternal:         http.StatusInternalServerError,
}

// errorResponse converts err into the JSON error body clients switch on
func errorResponse(err error) (int, model.ErrorResponse) {
	appErr, ok := appErrors.As(err)
	if !ok {
		appErr = appErrors.Internal("internal error", err).(*appErrors.AppError)
	}

	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	resp := model.ErrorResponse{
		Error:     appErr.Message,
		Code:      string(appErr.Code),
		Reason:    string(appErr.Reason),
		Retryable: appErr.Retryable(),
	}
	if status == http.StatusInternalServerError {
		log.Printf("❌ %v", err)
		resp.Error = "Internal server error"
	}
	return status, resp
}

func respondError(c *gin.Context, err error) {
	status, resp := errorResponse(err)
	if resp.Retryable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, msg string, err error) {
	resp := model.ErrorResponse{Error: msg, Code: string(appErrors.CodeInvalidArgument)}
	if err != nil {
		resp.Message = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func currentUser(c *gin.Context) uuid.UUID {
	return c.MustGet("user_id").(uuid.UUID)
}

func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid "+what+" ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
