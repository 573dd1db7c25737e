package api

import (
	"alcyxob/bmi-tracker/internal/service"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgServerError        = "Server error"
	msgLoginRequired      = "Login required"
	msgInstructorRequired = "Instructor authentication required"
	msgTooManyRequests    = "Too many requests. Please try again later."
	msgInvalidBody        = "Invalid request body"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Msg    string      `json:"msg"`
	Errors interface{} `json:"errors,omitempty"`
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, errorResponse{Msg: message})
}

// errorStatus maps service sentinel errors to a status and client message.
var errorStatus = []struct {
	err    error
	status int
	msg    string
}{
	{service.ErrUnauthorized, http.StatusUnauthorized, msgLoginRequired},
	{service.ErrInvalidCredentials, http.StatusBadRequest, "Invalid credentials"},
	{service.ErrEmailInUse, http.StatusBadRequest, "Email already used"},
	{service.ErrInstructorAuthFailed, http.StatusUnauthorized, "Invalid instructor credentials"},
	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{service.ErrDietPlanNotFound, http.StatusNotFound, "Diet plan not found"},
	{service.ErrNoActivePlan, http.StatusNotFound, "No active diet plan found"},
	{service.ErrActivePlanConflict, http.StatusConflict, "Another diet plan was activated for this user at the same time; retry"},
	{service.ErrStorageNotConfigured, http.StatusServiceUnavailable, "History export is not available"},
}

// respondError writes the response for err. Unknown errors become a 500,
// are logged and reported to Sentry.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp := errorResponse{Msg: verr.Msg}
		if len(verr.Fields) > 0 {
			resp.Errors = verr.Fields
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			abortWithError(c, e.status, e.msg)
			return
		}
	}

	slog.Error("request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString(ContextRequestIDKey),
		"error", err,
	)
	if hub := sentry.CurrentHub().Clone(); hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", c.GetString(ContextRequestIDKey))
			scope.SetTag("route", c.FullPath())
			hub.CaptureException(err)
		})
	}
	abortWithError(c, http.StatusInternalServerError, msgServerError)
}

// objectIDParam parses a path parameter, writing a 400 when it is malformed.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}
