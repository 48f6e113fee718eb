package models

import (
	"math"
	"time"

	"github.com/Tutortoise/wildsnap-service/detections"
)

// Detection is the wire form of one detection.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       [4]int  `json:"bbox"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// ModelResult is the wire form of one model's run over one image.
type ModelResult struct {
	Model             string         `json:"model"`
	Detections        []Detection    `json:"detections"`
	InferenceTimeMs   float64        `json:"inference_time_ms"`
	AnnotatedImage    string         `json:"annotated_image,omitempty"`
	ObjectCount       int            `json:"object_count"`
	UniqueClassCount  int            `json:"unique_class_count"`
	ClassCounts       map[string]int `json:"class_counts"`
	AverageConfidence float64        `json:"average_confidence"`
}

// SlotError reports why a model slot produced no result.
type SlotError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type DetectRequest struct {
	Image         string   `json:"image"`
	Model         string   `json:"model"`
	Confidence    *float64 `json:"confidence"`
	IoU           *float64 `json:"iou"`
	FilterAnimals bool     `json:"filter_animals"`
}

// Params resolves the request's thresholds against the given defaults.
func (r DetectRequest) Params(defaults detections.Params) detections.Params {
	p := defaults
	if r.Confidence != nil {
		p.Confidence = *r.Confidence
	}
	if r.IoU != nil {
		p.IoU = *r.IoU
	}
	p.FilterAnimals = r.FilterAnimals
	return p
}

type DetectResponse struct {
	Success   bool                   `json:"success"`
	RequestID string                 `json:"request_id"`
	Results   map[string]ModelResult `json:"results"`
	Errors    map[string]SlotError   `json:"errors,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

type BatchImage struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type BatchRequest struct {
	Images []BatchImage `json:"images"`
	DetectRequest
}

type BatchItem struct {
	Index   int                    `json:"index"`
	Name    string                 `json:"name,omitempty"`
	Results map[string]ModelResult `json:"results,omitempty"`
	Errors  map[string]SlotError   `json:"errors,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
}

// Summary is the wire form of aggregate statistics.
type Summary struct {
	ObjectCount       int            `json:"object_count"`
	UniqueClassCount  int            `json:"unique_class_count"`
	ClassCounts       map[string]int `json:"class_counts"`
	AverageConfidence float64        `json:"average_confidence"`
}

type BatchResponse struct {
	Success   bool               `json:"success"`
	RequestID string             `json:"request_id"`
	Items     []BatchItem        `json:"items"`
	Summary   map[string]Summary `json:"summary"`
	Failed    int                `json:"failed"`
	Timestamp string             `json:"timestamp"`
}

type ProcessingTimings struct {
	RequestID   string
	Mode        string
	Images      int
	ImageDecode time.Duration
	Inference   time.Duration
	Encode      time.Duration
	Total       time.Duration
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FromDetections encodes detections for the wire.
func FromDetections(dets []detections.Detection) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		out = append(out, Detection{
			Class:      d.ClassName,
			Confidence: Round(d.Confidence, detections.ConfidencePrecision),
			BBox:       [4]int{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2},
			Width:      d.Box.Width(),
			Height:     d.Box.Height(),
		})
	}
	return out
}

// ToDetections decodes wire detections, attributing them to source.
// Width and height are derived from the box and ignored on input.
func ToDetections(wire []Detection, source detections.ModelIdentity) []detections.Detection {
	out := make([]detections.Detection, 0, len(wire))
	for _, w := range wire {
		out = append(out, detections.Detection{
			ClassName:  w.Class,
			Confidence: w.Confidence,
			Box:        detections.BoundingBox{X1: w.BBox[0], Y1: w.BBox[1], X2: w.BBox[2], Y2: w.BBox[3]},
			Source:     source,
		})
	}
	return out
}

// FromSummary encodes aggregate statistics.
func FromSummary(s detections.Summary) Summary {
	return Summary{
		ObjectCount:       s.TotalCount,
		UniqueClassCount:  s.UniqueClassCount,
		ClassCounts:       s.PerClassCounts,
		AverageConfidence: Round(s.AverageConfidence, detections.ConfidencePrecision),
	}
}

// NewModelResult encodes an inference result. annotated is the already
// encoded annotated image, or empty to omit it.
func NewModelResult(res *detections.InferenceResult, annotated string) ModelResult {
	s := res.Summary()
	return ModelResult{
		Model:             res.ModelName,
		Detections:        FromDetections(res.Detections),
		InferenceTimeMs:   Round(res.InferenceTimeMs, detections.TimePrecision),
		AnnotatedImage:    annotated,
		ObjectCount:       s.TotalCount,
		UniqueClassCount:  s.UniqueClassCount,
		ClassCounts:       s.PerClassCounts,
		AverageConfidence: Round(s.AverageConfidence, detections.ConfidencePrecision),
	}
}

// NewSlotError encodes a slot failure.
func NewSlotError(err error) SlotError {
	return SlotError{Error: err.Error(), Code: detections.Code(err)}
}
