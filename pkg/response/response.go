// Package response provides the JSON envelope shared by all API handlers.
package response

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Canned responses for errors that carry no request-specific data.
var (
	EmptyRequestBodyResponse = Response{
		Status:  StatusError,
		Error:   "Empty Request Body",
		Message: "Request body is empty. Please provide necessary data.",
	}

	BadRequestResponse = Response{
		Status:  StatusError,
		Error:   "Bad Request",
		Message: "The request body could not be processed. Please check your input.",
	}

	InvalidURLResponse = Response{
		Status:  StatusError,
		Error:   "Invalid URL",
		Message: "The provided URL is invalid. Only http and https URLs are supported.",
	}

	InvalidShortCodeResponse = Response{
		Status:  StatusError,
		Error:   "Invalid Short Code",
		Message: "The custom short code is too long or contains unsupported characters.",
	}

	ShortCodeExistsResponse = Response{
		Status:  StatusError,
		Error:   "Short Code Exists",
		Message: "The requested short code is already in use.",
	}

	ResourceNotFoundResponse = Response{
		Status:  StatusError,
		Error:   "Resource Not Found",
		Message: "The requested resource was not found.",
	}

	URLExpiredResponse = Response{
		Status:  StatusError,
		Error:   "URL Expired",
		Message: "The requested short URL has expired.",
	}

	ServerErrorResponse = Response{
		Status:  StatusError,
		Error:   "Server Error",
		Message: "An internal server error occurred. Please try again later.",
	}
)

// Response is the envelope returned by every API endpoint. The HTTP status
// code travels in the header, not in the body.
type Response struct {
	Status  string            `json:"status"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message"`
	Details []validationError `json:"details,omitempty"`
	Data    any               `json:"data,omitempty"`
}

// SuccessResponse builds a success envelope. At most one data payload is
// used; extra values are ignored.
func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

// ValidationErrorResponse builds an error envelope describing every field
// that failed validation.
func ValidationErrorResponse(err error) Response {
	return Response{
		Status:  StatusError,
		Error:   "Validation Error",
		Message: "Validation failed. Please check the provided data.",
		Details: getValidationErrors(err),
	}
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url":
		return "Invalid url."
	case "min":
		return "Value is below the allowed minimum."
	default:
		return "Invalid value."
	}
}

func getValidationErrors(err error) []validationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	var validationErrs []validationError
	for _, e := range errs {
		validationErrs = append(validationErrs, validationError{
			Field: e.Field(),
			Value: e.Value(),
			Issue: messageForTag(e.Tag()),
		})
	}

	return validationErrs
}
