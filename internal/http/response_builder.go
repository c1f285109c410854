package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"budgetcal/internal/amqp"
	"budgetcal/internal/bundle"
	"budgetcal/internal/core"
	"budgetcal/internal/ledger"
	"budgetcal/internal/log"
	"budgetcal/internal/middleware/trace"
	"budgetcal/internal/services"
	"budgetcal/internal/xlsx"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
	raw        []byte
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Raw sets a pre-encoded body with its content type.
func (b *JSONResponseBuilder) Raw(contentType string, body []byte) *JSONResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.raw = body
	return b
}

// Write sends the built response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	if b.raw == nil && b.payload != nil {
		b.headers["Content-Type"] = "application/json; charset=utf-8"
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)

	switch {
	case b.raw != nil:
		_, _ = w.Write(b.raw)
	case b.payload != nil:
		_ = json.NewEncoder(w).Encode(b.payload)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string       `json:"error"`
	Fields    []FieldError `json:"fields,omitempty"`
	RequestID string       `json:"requestId,omitempty"`
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ErrorResponse creates an error response with message as its body.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(ErrorBody{Error: message})
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// ValidationErrorResponse lists every failed rule.
func ValidationErrorResponse(errs validator.ValidationErrors) *JSONResponseBuilder {
	body := ErrorBody{Error: "validation failed"}
	for _, fe := range errs {
		body.Fields = append(body.Fields, FieldError{Field: fe.Namespace(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return NewJSONResponse().Status(http.StatusUnprocessableEntity).JSON(body)
}

// domainErrors are client mistakes detected by the engine or codecs.
var domainErrors = []error{
	core.ErrInvalidDate,
	core.ErrUnknownRecurrence,
	core.ErrUnknownRollover,
	core.ErrUnknownEntryType,
	core.ErrInvalidAmount,
	core.ErrDuplicateEntry,
	bundle.ErrUnsupportedFormat,
	xlsx.ErrMissingColumn,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verrs), isDomainError(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMalformedBody), errors.Is(err, errBadParam), errors.Is(err, ledger.ErrWindowTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrExportsDisabled), errors.Is(err, amqp.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes the matching error response. Internal
// errors are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	status := statusFor(err)

	var resp *JSONResponseBuilder
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		resp = ValidationErrorResponse(verrs)
	case status == http.StatusInternalServerError:
		logger.ErrorContext(ctx, "Request failed", log.FieldError, err)
		resp = ErrorResponse(status, http.StatusText(status))
	default:
		logger.DebugContext(ctx, "Request rejected", log.FieldError, err, "status", status)
		resp = ErrorResponse(status, err.Error())
	}

	if body, ok := resp.payload.(ErrorBody); ok {
		body.RequestID = trace.GetRequestID(ctx)
		resp.payload = body
	}
	resp.Write(w)
}
