package annotate

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func grayImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 90, 90, 90, 255
	}
	return img
}

func TestDraw_LeavesSourceUntouched(t *testing.T) {
	src := grayImage(120, 80)
	before := bytes.Clone(src.Pix)
	out := Draw(src, []Box{{ClassID: 16, Label: "dog", Confidence: 0.91, Rect: image.Rect(10, 20, 100, 70)}})

	if !bytes.Equal(before, src.Pix) {
		t.Fatal("source image was modified")
	}
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	want := ColorFor(16)
	if got := out.NRGBAAt(50, 69); got != want {
		t.Fatalf("expected box edge color %v, got %v", want, got)
	}
	if got := out.NRGBAAt(50, 45); got != (color.NRGBA{90, 90, 90, 255}) {
		t.Fatalf("box interior should be untouched, got %v", got)
	}
}

func TestDraw_ZeroAreaAndOutOfBounds(t *testing.T) {
	src := grayImage(30, 30)
	out := Draw(src, []Box{
		{ClassID: 1, Rect: image.Rect(5, 5, 5, 5)},
		{ClassID: 2, Rect: image.Rect(100, 100, 200, 200)},
		{ClassID: 3, Rect: image.Rect(-10, -10, 10, 10)},
	})
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
}

func TestColorFor_NegativeIDs(t *testing.T) {
	if ColorFor(-3) != ColorFor(3) {
		t.Fatal("negative ids should map like their absolute value")
	}
}
