package detections

import "image"

// ModelIdentity tags which detection capability produced a result.
// Filtering policy depends on it, never on the model instance.
type ModelIdentity int

const (
	PrimaryModel ModelIdentity = iota + 1
	CustomModel
)

func (m ModelIdentity) String() string {
	switch m {
	case PrimaryModel:
		return "primary"
	case CustomModel:
		return "custom"
	default:
		return "unknown"
	}
}

// BoundingBox is an absolute pixel box with X1 <= X2 and Y1 <= Y2.
type BoundingBox struct {
	X1, Y1, X2, Y2 int
}

func (b BoundingBox) Width() int  { return b.X2 - b.X1 }
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// Detection is one recognized object instance.
type Detection struct {
	ClassName  string
	Confidence float64
	Box        BoundingBox
	Source     ModelIdentity
}

// Params are the per-request inference parameters.
type Params struct {
	Confidence    float64
	IoU           float64
	FilterAnimals bool
}

// DefaultParams returns the parameters used when a request omits them.
func DefaultParams() Params {
	return Params{Confidence: DefaultConfidence, IoU: DefaultIoU}
}

// Validate reports ErrInvalidParameter for thresholds outside [0,1].
func (p Params) Validate() error {
	if !inUnitRange(p.Confidence) {
		return invalidParameter("confidence threshold %v outside [0,1]", p.Confidence)
	}
	if !inUnitRange(p.IoU) {
		return invalidParameter("iou threshold %v outside [0,1]", p.IoU)
	}
	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// InferenceResult is the output of one model run over one image.
type InferenceResult struct {
	Model           ModelIdentity
	ModelName       string
	AnnotatedImage  image.Image
	Detections      []Detection
	InferenceTimeMs float64
}

// Summary returns the aggregate statistics of the result's detections.
func (r *InferenceResult) Summary() Summary {
	return Summarize(r.Detections)
}

// SlotResult is the outcome of one model slot. Exactly one of Result and
// Err is set.
type SlotResult struct {
	Name   string
	Result *InferenceResult
	Err    error
}

func (s SlotResult) OK() bool { return s.Result != nil && s.Err == nil }

// ComparisonResult pairs the primary and custom runs over the same image.
type ComparisonResult struct {
	Primary SlotResult
	Custom  SlotResult
}

// CustomAbsent reports whether the custom slot produced no result because
// its model is unavailable. This is not the same as zero detections.
func (c ComparisonResult) CustomAbsent() bool {
	return c.Custom.Result == nil
}
