package detections

import (
	"context"
	"image"
	"math"
	"strconv"
)

// DetectionModel is a pluggable detector. Two instances are structurally
// identical and are told apart only by the identity of their registry entry.
type DetectionModel interface {
	Predict(ctx context.Context, img image.Image, confidence, iou float64) (*RawResult, error)
}

// RawObject is one object as emitted by a model. A NaN Confidence marks a
// missing score; Box holds x1, y1, x2, y2 in absolute pixels.
type RawObject struct {
	ClassID    int
	Confidence float64
	Box        []float64
}

// MissingConfidence is the Confidence value of an object without a score.
var MissingConfidence = math.NaN()

// ClassNames maps model class ids to names.
type ClassNames map[int]string

// Lookup resolves id, falling back to its decimal form when unmapped.
func (n ClassNames) Lookup(id int) string {
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return strconv.Itoa(id)
}

// NamesFromSlice builds a ClassNames where the slice index is the id.
func NamesFromSlice(names []string) ClassNames {
	out := make(ClassNames, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// RawResult is a model's raw output for one image.
type RawResult struct {
	Objects []RawObject
	Names   ClassNames
	// Render returns an annotated copy of the input image. It must not
	// modify the input.
	Render func() (image.Image, error)
}
