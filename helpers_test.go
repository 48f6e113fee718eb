package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Tutortoise/wildsnap-service/annotate"
	"github.com/Tutortoise/wildsnap-service/config"
	"github.com/Tutortoise/wildsnap-service/detections"
	"github.com/Tutortoise/wildsnap-service/imagecodec"
	"github.com/sirupsen/logrus"
)

type stubModel struct {
	objects []detections.RawObject
	names   detections.ClassNames
	err     error

	mu             sync.Mutex
	calls          int
	lastConfidence float64
	lastIoU        float64
}

func (m *stubModel) Predict(_ context.Context, img image.Image, confidence, iou float64) (*detections.RawResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastConfidence, m.lastIoU = confidence, iou
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &detections.RawResult{
		Objects: m.objects,
		Names:   m.names,
		Render: func() (image.Image, error) {
			return annotate.Draw(img, nil), nil
		},
	}, nil
}

func (m *stubModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func dogAndCar() *stubModel {
	return &stubModel{
		names: detections.ClassNames{2: "car", 16: "dog"},
		objects: []detections.RawObject{
			{ClassID: 16, Confidence: 0.91, Box: []float64{10, 20, 110, 220}},
			{ClassID: 2, Confidence: 0.88, Box: []float64{5, 5, 50, 40}},
		},
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestState wires a router over the given models. A nil model leaves
// its slot unavailable.
func newTestState(t *testing.T, primary, custom detections.DetectionModel) *AppState {
	t.Helper()
	entry := func(id detections.ModelIdentity, name string, m detections.DetectionModel) detections.ModelEntry {
		e := detections.ModelEntry{Identity: id, Name: name, Type: "onnx", Model: m}
		if m == nil {
			e.LoadErr = errors.New("model file not found")
		}
		return e
	}
	reg := detections.NewRegistry(
		entry(detections.PrimaryModel, "yolov8n", primary),
		entry(detections.CustomModel, "best", custom),
	)
	log := quietLogger()
	runner := detections.NewRunner(detections.NewAllowlist(detections.DefaultAnimalClasses), time.Second, log)
	return &AppState{
		Service:   detections.NewService(reg, runner, 2, log),
		Config:    config.DefaultConfig(),
		Log:       log,
		Debug:     true,
		StartedAt: time.Now(),
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 200)
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func pngBase64(t *testing.T) string {
	return base64.StdEncoding.EncodeToString(pngBytes(t))
}

func serve(s *AppState, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	newRouter(s).ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, s *AppState, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return serve(s, req)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}
