// Package response defines the JSON error envelope shared by the HTTP handlers and middlewares.
package response

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const StatusError = "error"

// ValidationError describes a single rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every 4xx/5xx JSON response.
type ErrorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status:  StatusError,
		Message: msg,
	}
}

// Predefined error responses for common scenarios.
var (
	EmptyRequestBodyResponse   = Error("empty request body")
	InvalidRequestBodyResponse = Error("invalid request body")
	UnauthorizedResponse       = Error("unauthorized")
	ServerErrorResponse        = Error("server error occurred")
)

// FieldErrorResponse reports a single invalid field.
func FieldErrorResponse(field, msg string) ErrorResponse {
	return ErrorResponse{
		Status:  StatusError,
		Message: "validation error",
		Errors:  []ValidationError{{Field: field, Message: msg}},
	}
}

// ValidationErrorResponse converts validator errors into a response listing every failed field.
func ValidationErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Status:  StatusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "slug":
		return "must contain only letters, digits and hyphens"
	case "targeturl":
		return "must be an absolute url with scheme and host"
	case "url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []ValidationError {
	var validationErrs []ValidationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, ValidationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}
