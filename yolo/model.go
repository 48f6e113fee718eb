package yolo

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/Tutortoise/wildsnap-service/annotate"
	"github.com/Tutortoise/wildsnap-service/detections"
	ort "github.com/yalue/onnxruntime_go"
)

const DefaultInputSize = 640

var defaultStrides = []int{8, 16, 32}

// Options configure a YOLO model loaded from an ONNX export.
type Options struct {
	Name          string
	Path          string
	NamesFile     string
	InputSize     int
	PoolSize      int
	Threads       int
	MaxDetections int
}

// Model is a YOLOv8-family detector backed by a pool of ONNX sessions.
// It implements detections.DetectionModel.
type Model struct {
	name          string
	names         detections.ClassNames
	inputSize     int
	numClasses    int
	numAnchors    int
	maxDetections int
	pool          *SessionPool

	closeOnce sync.Once
}

// Load inspects the model file, resolves its tensor shapes and creates the
// session pool. InitRuntime must have succeeded first.
func Load(opts Options) (*Model, error) {
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	names := detections.NamesFromSlice(COCONames)
	if opts.NamesFile != "" {
		loaded, err := LoadNames(opts.NamesFile)
		if err != nil {
			return nil, err
		}
		names = loaded
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("error reading model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("unexpected model signature: %d inputs, %d outputs", len(inputs), len(outputs))
	}

	size := opts.InputSize
	if size <= 0 {
		size = staticDim(inputs[0].Dimensions, 2, DefaultInputSize)
	}
	numClasses, numAnchors, err := outputLayout(outputs[0].Dimensions, size, len(names))
	if err != nil {
		return nil, err
	}

	spec := sessionSpec{
		modelPath:   opts.Path,
		inputName:   inputs[0].Name,
		outputName:  outputs[0].Name,
		inputShape:  ort.NewShape(1, 3, int64(size), int64(size)),
		outputShape: ort.NewShape(1, int64(4+numClasses), int64(numAnchors)),
		threads:     opts.Threads,
	}

	pool, err := NewSessionPool(opts.PoolSize, func() (*Session, error) {
		return newSession(spec)
	})
	if err != nil {
		return nil, err
	}

	maxDet := opts.MaxDetections
	if maxDet <= 0 {
		maxDet = DefaultMaxDetections
	}
	return &Model{
		name:          opts.Name,
		names:         names,
		inputSize:     size,
		numClasses:    numClasses,
		numAnchors:    numAnchors,
		maxDetections: maxDet,
		pool:          pool,
	}, nil
}

func staticDim(shape ort.Shape, i int, fallback int) int {
	if i < len(shape) && shape[i] > 0 {
		return int(shape[i])
	}
	return fallback
}

// outputLayout resolves the class and anchor counts of a [1, 4+nc, N]
// output, filling dynamic dimensions from the input size and name count.
func outputLayout(shape ort.Shape, inputSize, nameCount int) (int, int, error) {
	if len(shape) != 3 {
		return 0, 0, fmt.Errorf("unexpected output rank %d", len(shape))
	}
	numClasses := nameCount
	if shape[1] > 4 {
		numClasses = int(shape[1]) - 4
	}
	if numClasses <= 0 {
		return 0, 0, fmt.Errorf("cannot determine class count")
	}
	numAnchors := int(shape[2])
	if numAnchors <= 0 {
		numAnchors = anchorCount(inputSize, defaultStrides)
	}
	return numClasses, numAnchors, nil
}

func anchorCount(inputSize int, strides []int) int {
	n := 0
	for _, s := range strides {
		g := inputSize / s
		n += g * g
	}
	return n
}

func (m *Model) Name() string { return m.name }

func (m *Model) Predict(ctx context.Context, img image.Image, confidence, iou float64) (*detections.RawResult, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}

	session, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("error acquiring session: %w", err)
	}

	lb := prepareInput(img, m.inputSize, session.Input.GetData())
	if err := session.Session.Run(); err != nil {
		m.pool.Discard(session, err)
		return nil, fmt.Errorf("error running inference: %w", err)
	}
	cands := decodePredictions(session.Output.GetData(), m.numClasses, m.numAnchors, float32(confidence), lb)
	m.pool.Release(session)

	kept := suppress(cands, float32(iou), m.maxDetections)
	return m.rawResult(img, kept), nil
}

func (m *Model) rawResult(img image.Image, kept []candidate) *detections.RawResult {
	objects := make([]detections.RawObject, len(kept))
	boxes := make([]annotate.Box, len(kept))
	for i, c := range kept {
		box := []float64{float64(c.box[0]), float64(c.box[1]), float64(c.box[2]), float64(c.box[3])}
		objects[i] = detections.RawObject{
			ClassID:    c.classID,
			Confidence: float64(c.score),
			Box:        box,
		}
		boxes[i] = annotate.Box{
			ClassID:    c.classID,
			Label:      m.names.Lookup(c.classID),
			Confidence: float64(c.score),
			Rect:       image.Rect(int(box[0]), int(box[1]), int(box[2]), int(box[3])),
		}
	}
	return &detections.RawResult{
		Objects: objects,
		Names:   m.names,
		Render: func() (image.Image, error) {
			return annotate.Draw(img, boxes), nil
		},
	}
}

// Stats reports the session pool metrics.
func (m *Model) Stats() PoolStats {
	return m.pool.Stats()
}

func (m *Model) Close() error {
	m.closeOnce.Do(m.pool.Destroy)
	return nil
}
