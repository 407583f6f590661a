package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/identity"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/lineitem"
	"github.com/smallbiznis/invoicer/internal/lock"
	"github.com/smallbiznis/invoicer/internal/numbering"
	quotationdomain "github.com/smallbiznis/invoicer/internal/quotation/domain"
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
	Field   string            `json:"field,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrTooManyRequests    = errors.New("too_many_requests")
)

// validationSentinels are domain errors reported as 400 with their text as code.
var validationSentinels = []error{
	ErrInvalidRequest,
	invoicedomain.ErrInvalidID,
	invoicedomain.ErrInvalidNumber,
	invoicedomain.ErrInvalidClientName,
	quotationdomain.ErrInvalidID,
	quotationdomain.ErrInvalidNumber,
	quotationdomain.ErrInvalidClientName,
	quotationdomain.ErrInvalidStatus,
	quotationdomain.ErrInvalidExpiryDate,
	lineitem.ErrNoItems,
	lineitem.ErrLastItem,
	lineitem.ErrItemIndex,
	lineitem.ErrInvalidQuantity,
	lineitem.ErrInvalidRate,
	lineitem.ErrInvalidAdvance,
	companydomain.ErrInvalidName,
	companydomain.ErrInvalidEmail,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidTarget,
	identity.ErrInvalidEmail,
}

var conflictMessages = []struct {
	err     error
	message string
}{
	{invoicedomain.ErrDuplicateNumber, "invoice number already exists"},
	{quotationdomain.ErrDuplicateNumber, "quotation number already exists"},
	{quotationdomain.ErrInvalidStatusTransition, "status change not allowed"},
	{quotationdomain.ErrQuotationConverted, "quotation already converted to an invoice"},
	{quotationdomain.ErrNotConvertible, "quotation cannot be converted in its current status"},
	{numbering.ErrExhausted, "no next number after the highest stored one, enter a number manually"},
	{ErrConflict, "conflict"},
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
		payload := errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
		if len(vErr.Errors) > 0 {
			payload.Message = vErr.Errors[0].Message
			payload.Field = vErr.Errors[0].Field
		}
		return http.StatusBadRequest, payload
	}

	if code, ok := validationErrorCode(err); ok {
		field := validationErrorField(code)
		message := validationErrorMessage(code)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: message,
			Field:   field,
			Errors: []ValidationError{
				{
					Field:   field,
					Code:    code,
					Message: message,
				},
			},
		}
	}

	if message, ok := conflictMessage(err); ok {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: message,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identity.ErrMissingToken),
		errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests, try again later",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, numbering.ErrUnavailable),
		errors.Is(err, lock.ErrNotAcquired),
		errors.Is(err, identity.ErrUnavailable),
		errors.Is(err, identity.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable, try again",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type and code the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, quotationdomain.ErrNotFound),
		errors.Is(err, companydomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) (string, bool) {
	for _, candidate := range conflictMessages {
		if errors.Is(err, candidate.err) {
			return candidate.message, true
		}
	}
	return "", false
}

func validationErrorCode(err error) (string, bool) {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "last_item", "invalid_item_index":
		return "items"
	case "invalid_company_name":
		return "name"
	case "invalid_company_email":
		return "email"
	case "invalid_quotation_number", "invalid_invoice_number":
		return "number"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_client_name":
		return "client name is required"
	case "invalid_items":
		return "at least one item is required"
	case "last_item":
		return "a document needs at least one item"
	case "invalid_quantity":
		return "quantity must be at least 1"
	case "invalid_rate":
		return "rate must be zero or more with at most 2 decimal places"
	case "invalid_advance":
		return "advance must be between 0 and the total"
	case "invalid_expiry_date":
		return "expiry date cannot be before the quotation date"
	case "invalid_status":
		return "unknown status"
	case "invalid_company_name":
		return "company name is required"
	case "invalid_email", "invalid_company_email":
		return "invalid email address"
	default:
		return "invalid value"
	}
}

var validationOnce sync.Once

// registerValidation makes validator report json field names.
func registerValidation() {
	validationOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
}

// bindJSON decodes the body into dst and turns binding failures into
// field-level validation errors.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}

	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    fe.Tag(),
			Message: fieldErrorMessage(field, fe),
		})
	}
	return out
}

func fieldErrorMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "email":
		return fmt.Sprintf("%s must be an email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
