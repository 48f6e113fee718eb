package yolo

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestLetterboxMapping(t *testing.T) {
	lb := newLetterbox(1280, 640, 640)
	if lb.scale != 0.5 || lb.padX != 0 || lb.padY != 160 {
		t.Fatalf("letterbox = %+v", lb)
	}
	if w, h := lb.resized(); w != 640 || h != 320 {
		t.Fatalf("resized = %dx%d, want 640x320", w, h)
	}

	tests := []struct {
		name   string
		x, y   float32
		wx, wy float32
	}{
		{"center", 320, 320, 640, 320},
		{"clamped top-left", 0, 0, 0, 0},
		{"clamped bottom-right", 640, 640, 1280, 640},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := lb.toSource(tt.x, tt.y)
			if x != tt.wx || y != tt.wy {
				t.Errorf("toSource(%v, %v) = (%v, %v), want (%v, %v)", tt.x, tt.y, x, y, tt.wx, tt.wy)
			}
		})
	}
}

func TestPrepareInput(t *testing.T) {
	src := imaging.New(4, 2, color.NRGBA{R: 255, A: 255})
	const size = 8
	dst := make([]float32, 3*size*size)

	lb := prepareInput(src, size, dst)
	if lb.padY != 2 || lb.padX != 0 {
		t.Fatalf("letterbox = %+v", lb)
	}

	plane := size * size
	pad := float32(114) / 255
	if dst[0] != pad || dst[plane] != pad || dst[2*plane] != pad {
		t.Errorf("padding pixel = (%v, %v, %v), want %v", dst[0], dst[plane], dst[2*plane], pad)
	}

	i := 3*size + 4
	if dst[i] != 1 || dst[plane+i] != 0 || dst[2*plane+i] != 0 {
		t.Errorf("image pixel = (%v, %v, %v), want (1, 0, 0)", dst[i], dst[plane+i], dst[2*plane+i])
	}
}

func TestPrepareInputLeavesSourceUntouched(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	src.Set(1, 1, color.NRGBA{G: 200, A: 255})
	before := append([]uint8(nil), src.Pix...)

	prepareInput(src, 16, make([]float32, 3*16*16))

	for i := range before {
		if src.Pix[i] != before[i] {
			t.Fatalf("source pixel byte %d changed", i)
		}
	}
}
