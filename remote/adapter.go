package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Tutortoise/wildsnap-service/annotate"
	"github.com/Tutortoise/wildsnap-service/detections"
	"github.com/Tutortoise/wildsnap-service/imagecodec"
)

const DefaultTimeout = 30 * time.Second

// ModelAdapter runs inference through an external HTTP service. The image
// is posted as a multipart PNG together with the thresholds.
type ModelAdapter struct {
	name         string
	inferenceURL string
	client       *http.Client
}

func NewModelAdapter(name, inferenceURL string, timeout time.Duration) *ModelAdapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ModelAdapter{
		name:         name,
		inferenceURL: strings.TrimRight(inferenceURL, "/"),
		client:       &http.Client{Timeout: timeout},
	}
}

type predictResponse struct {
	Names      map[string]string `json:"names"`
	Detections []struct {
		ClassID    int       `json:"class_id"`
		Confidence *float64  `json:"confidence"`
		BBox       []float64 `json:"bbox"`
	} `json:"detections"`
}

func (m *ModelAdapter) Name() string { return m.name }

// Predict implements detections.DetectionModel.
func (m *ModelAdapter) Predict(ctx context.Context, img image.Image, confidence, iou float64) (*detections.RawResult, error) {
	png, err := imagecodec.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(png)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	_ = writer.WriteField("conf", strconv.FormatFloat(confidence, 'f', -1, 64))
	_ = writer.WriteField("iou", strconv.FormatFloat(iou, 'f', -1, 64))
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.inferenceURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toRawResult(img, result), nil
}

func toRawResult(img image.Image, result predictResponse) *detections.RawResult {
	names := make(detections.ClassNames, len(result.Names))
	for k, v := range result.Names {
		if id, err := strconv.Atoi(k); err == nil {
			names[id] = v
		}
	}

	objects := make([]detections.RawObject, 0, len(result.Detections))
	var boxes []annotate.Box
	for _, d := range result.Detections {
		obj := detections.RawObject{
			ClassID:    d.ClassID,
			Confidence: detections.MissingConfidence,
			Box:        d.BBox,
		}
		if d.Confidence != nil {
			obj.Confidence = *d.Confidence
		}
		objects = append(objects, obj)

		if len(d.BBox) == 4 && d.Confidence != nil {
			boxes = append(boxes, annotate.Box{
				ClassID:    d.ClassID,
				Label:      names.Lookup(d.ClassID),
				Confidence: *d.Confidence,
				Rect:       image.Rect(int(d.BBox[0]), int(d.BBox[1]), int(d.BBox[2]), int(d.BBox[3])),
			})
		}
	}

	return &detections.RawResult{
		Objects: objects,
		Names:   names,
		Render: func() (image.Image, error) {
			return annotate.Draw(img, boxes), nil
		},
	}
}

// CheckHealth reports whether the inference service answers its health
// endpoint.
func (m *ModelAdapter) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.inferenceURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
