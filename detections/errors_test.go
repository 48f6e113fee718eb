package detections

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{invalidParameter("bad"), "invalid_parameter", http.StatusBadRequest},
		{DecodeFailure(errors.New("x")), "invalid_image", http.StatusBadRequest},
		{modelUnavailable("best"), "model_unavailable", http.StatusInternalServerError},
		{invocationFailure("yolov8n", "failed", errBoom), "model_invocation_failed", http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", modelUnavailable("best")), "model_unavailable", http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := Code(c.err); got != c.code {
			t.Fatalf("%v: code %q, want %q", c.err, got, c.code)
		}
		if got := HTTPStatus(c.err); got != c.status {
			t.Fatalf("%v: status %d, want %d", c.err, got, c.status)
		}
	}
}

func TestProcessingError_Message(t *testing.T) {
	err := invocationFailure("best", "prediction failed", errBoom)
	want := "best: prediction failed: unsupported image shape"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, errBoom) {
		t.Fatal("cause should be reachable")
	}
}
