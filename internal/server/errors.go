package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/dealflow/internal/audit/domain"
	authdomain "github.com/smallbiznis/dealflow/internal/auth/domain"
	"github.com/smallbiznis/dealflow/internal/auth/token"
	"github.com/smallbiznis/dealflow/internal/authorization"
	dealershipdomain "github.com/smallbiznis/dealflow/internal/dealership/domain"
	intakekeydomain "github.com/smallbiznis/dealflow/internal/intakekey/domain"
	leaddomain "github.com/smallbiznis/dealflow/internal/lead/domain"
	messagingdomain "github.com/smallbiznis/dealflow/internal/messaging/domain"
	notificationdomain "github.com/smallbiznis/dealflow/internal/notification/domain"
	taskdomain "github.com/smallbiznis/dealflow/internal/task/domain"
	userdomain "github.com/smallbiznis/dealflow/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

// Business-rule violations reported as validation failures. Their codes do
// not carry the invalid_ prefix so they are listed explicitly.
var ruleViolations = []error{
	userdomain.ErrEmailTaken,
	userdomain.ErrPrincipalExists,
	userdomain.ErrCannotDeleteSelf,
	dealershipdomain.ErrDefaultLocationProtected,
	dealershipdomain.ErrDefaultLocationRequired,
	dealershipdomain.ErrNoDealershipConfigured,
}

var validationSentinels = []error{
	ErrInvalidRequest,
	dealershipdomain.ErrInvalidID,
	dealershipdomain.ErrInvalidName,
	dealershipdomain.ErrInvalidDealership,
	userdomain.ErrInvalidID,
	userdomain.ErrInvalidName,
	userdomain.ErrInvalidEmail,
	userdomain.ErrInvalidPassword,
	userdomain.ErrInvalidRole,
	userdomain.ErrInvalidLocation,
	leaddomain.ErrInvalidID,
	leaddomain.ErrInvalidFirstName,
	leaddomain.ErrInvalidStatus,
	leaddomain.ErrInvalidLocation,
	leaddomain.ErrInvalidAssignee,
	leaddomain.ErrInvalidDealershipID,
	messagingdomain.ErrInvalidLeadID,
	messagingdomain.ErrInvalidContent,
	messagingdomain.ErrInvalidType,
	messagingdomain.ErrInvalidDirection,
	messagingdomain.ErrInvalidMention,
	notificationdomain.ErrInvalidID,
	taskdomain.ErrInvalidID,
	taskdomain.ErrInvalidTitle,
	taskdomain.ErrInvalidLead,
	taskdomain.ErrInvalidDueDate,
	taskdomain.ErrInvalidStatus,
	intakekeydomain.ErrInvalidName,
	intakekeydomain.ErrInvalidID,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

var notFoundSentinels = []error{
	ErrNotFound,
	authdomain.ErrUserNotFound,
	dealershipdomain.ErrNotFound,
	userdomain.ErrNotFound,
	leaddomain.ErrNotFound,
	notificationdomain.ErrNotFound,
	taskdomain.ErrNotFound,
	intakekeydomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

var unauthorizedSentinels = []error{
	ErrUnauthorized,
	token.ErrMissingToken,
	token.ErrInvalidToken,
	authdomain.ErrInvalidCredentials,
	authorization.ErrUnauthenticated,
	intakekeydomain.ErrInvalidKey,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case matchesAny(err, unauthorizedSentinels):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case matchesAny(err, notFoundSentinels):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the error type and code written to the
// request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	if payload.Type == "internal_error" {
		return payload.Type, "internal_error"
	}
	return payload.Type, err.Error()
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	return matchesAny(err, validationSentinels) || matchesAny(err, ruleViolations)
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "email_taken":
		return "email"
	case "principal_exists":
		return "role"
	case "cannot_delete_self", "invalid_id":
		return "id"
	case "default_location_protected", "default_location_required":
		return "is_default"
	case "no_dealership_configured":
		return "dealership"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "email_taken":
		return "email is already in use"
	case "principal_exists":
		return "dealership already has an active principal"
	case "cannot_delete_self":
		return "you cannot delete your own account"
	case "default_location_protected":
		return "the default location cannot be deleted"
	case "default_location_required":
		return "a dealership must keep a default location"
	case "no_dealership_configured":
		return "no dealership is configured for lead intake"
	default:
		return "invalid value"
	}
}
