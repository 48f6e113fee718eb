package detections

import "time"

const (
	DefaultConfidence = 0.4
	DefaultIoU        = 0.5
	DefaultTimeout    = 30 * time.Second
	DefaultWorkers    = 4

	// Wire rounding, in decimal places.
	ConfidencePrecision = 4
	TimePrecision       = 2
)

// DefaultAnimalClasses is the allowlist used when none is configured.
var DefaultAnimalClasses = []string{
	"bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe",
}
