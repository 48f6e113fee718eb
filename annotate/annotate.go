// Package annotate renders detection boxes and labels onto a copy of an
// image.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Box is one box to draw, in absolute pixel coordinates.
type Box struct {
	ClassID    int
	Label      string
	Confidence float64
	Rect       image.Rectangle
}

// palette cycles per class id.
var palette = []color.NRGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
	{R: 82, G: 0, B: 133, A: 255},
	{R: 203, G: 56, B: 255, A: 255},
	{R: 255, G: 149, B: 200, A: 255},
	{R: 255, G: 55, B: 199, A: 255},
}

// ColorFor returns the drawing color of a class id.
func ColorFor(classID int) color.NRGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// Draw returns a copy of src with boxes drawn on it. src is not modified
// and the result has the same bounds.
func Draw(src image.Image, boxes []Box) *image.NRGBA {
	dst := imaging.Clone(src)
	bounds := dst.Bounds()
	thickness := lineWidth(bounds)
	for _, b := range boxes {
		r := b.Rect.Canon()
		if !r.Min.In(bounds) && !r.Overlaps(bounds) {
			continue
		}
		c := ColorFor(b.ClassID)
		clipped := r.Intersect(bounds)
		if clipped.Empty() {
			// Zero-area box: label only, anchored at its corner.
			clipped = image.Rectangle{Min: r.Min, Max: r.Min}
		} else {
			strokeRect(dst, clipped, thickness, c)
		}
		drawLabel(dst, clipped, labelText(b), c)
	}
	return dst
}

func labelText(b Box) string {
	if b.Label == "" {
		return fmt.Sprintf("%d %.2f", b.ClassID, b.Confidence)
	}
	return fmt.Sprintf("%s %.2f", b.Label, b.Confidence)
}

func lineWidth(bounds image.Rectangle) int {
	w := (bounds.Dx() + bounds.Dy()) / 600
	if w < 1 {
		return 1
	}
	return w
}

func strokeRect(dst *image.NRGBA, r image.Rectangle, t int, c color.NRGBA) {
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), u, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.NRGBA, r image.Rectangle, text string, c color.NRGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 4
	height := face.Metrics().Height.Ceil() + 2

	// Above the box when there is room, otherwise inside its top edge.
	top := r.Min.Y - height
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	bg := image.Rect(r.Min.X, top, r.Min.X+width, top+height).Intersect(dst.Bounds())
	if bg.Empty() {
		return
	}
	draw.Draw(dst, bg, image.NewUniform(c), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor(c)),
		Face: face,
		Dot:  fixed.P(bg.Min.X+2, bg.Min.Y+face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
}

// textColor picks black or white for contrast against c.
func textColor(c color.NRGBA) color.Color {
	luma := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	if luma > 150 {
		return color.Black
	}
	return color.White
}
