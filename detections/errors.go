package detections

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrImageDecode      = errors.New("image decode failure")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrModelInvocation  = errors.New("model invocation failure")
)

// ProcessingError carries one of the Err* kinds together with the model
// it concerns and the underlying cause.
type ProcessingError struct {
	Kind    error
	Model   string
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Model != "" {
		msg = e.Model + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ProcessingError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func invalidParameter(format string, args ...any) error {
	return &ProcessingError{Kind: ErrInvalidParameter, Message: fmt.Sprintf(format, args...)}
}

func modelUnavailable(model string) error {
	return &ProcessingError{Kind: ErrModelUnavailable, Model: model, Message: "model not available"}
}

func invocationFailure(model, message string, cause error) error {
	return &ProcessingError{Kind: ErrModelInvocation, Model: model, Message: message, Cause: cause}
}

// DecodeFailure wraps a codec error as an ErrImageDecode.
func DecodeFailure(cause error) error {
	return &ProcessingError{Kind: ErrImageDecode, Message: "failed to decode image", Cause: cause}
}

// Code maps an error to the code reported on the wire.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, ErrImageDecode):
		return "invalid_image"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, ErrModelInvocation), errors.Is(err, context.DeadlineExceeded):
		return "model_invocation_failed"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps an error to the transport status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidParameter), errors.Is(err, ErrImageDecode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
