package detections

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeModel struct {
	objects []RawObject
	names   ClassNames
	err     error
	delay   time.Duration
	panics  bool
	calls   atomic.Int32
}

func (m *fakeModel) Predict(ctx context.Context, img image.Image, confidence, iou float64) (*RawResult, error) {
	m.calls.Add(1)
	if m.panics {
		panic("boom")
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &RawResult{
		Objects: m.objects,
		Names:   m.names,
		Render: func() (image.Image, error) {
			b := img.Bounds()
			out := image.NewRGBA(b)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					out.Set(x, y, img.At(x, y))
				}
			}
			out.Set(b.Min.X, b.Min.Y, color.RGBA{R: 255, A: 255})
			return out, nil
		},
	}, nil
}

var errBoom = errors.New("unsupported image shape")

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}
	return img
}

func cocoNames() ClassNames {
	return ClassNames{0: "person", 2: "car", 14: "bird", 16: "dog"}
}

func dogAndCar() *fakeModel {
	return &fakeModel{
		names: cocoNames(),
		objects: []RawObject{
			{ClassID: 16, Confidence: 0.91, Box: []float64{10, 20, 110, 220}},
			{ClassID: 2, Confidence: 0.40, Box: []float64{5, 5, 50, 40}},
		},
	}
}

func newTestRunner(timeout time.Duration) *Runner {
	return NewRunner(NewAllowlist(DefaultAnimalClasses), timeout, quietLogger())
}
