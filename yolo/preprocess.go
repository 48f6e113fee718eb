package yolo

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

var padColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// letterbox records how a source image was fitted into the square model
// input, so boxes can be mapped back.
type letterbox struct {
	scale      float64
	padX, padY int
	srcW, srcH int
}

func newLetterbox(srcW, srcH, size int) letterbox {
	scale := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	w := max(1, int(math.Round(float64(srcW)*scale)))
	h := max(1, int(math.Round(float64(srcH)*scale)))
	return letterbox{
		scale: scale,
		padX:  (size - w) / 2,
		padY:  (size - h) / 2,
		srcW:  srcW,
		srcH:  srcH,
	}
}

func (l letterbox) resized() (int, int) {
	w := max(1, int(math.Round(float64(l.srcW)*l.scale)))
	h := max(1, int(math.Round(float64(l.srcH)*l.scale)))
	return w, h
}

// toSource maps an input-space coordinate back into the source image and
// clamps it to its bounds.
func (l letterbox) toSource(x, y float32) (float32, float32) {
	sx := (float64(x) - float64(l.padX)) / l.scale
	sy := (float64(y) - float64(l.padY)) / l.scale
	sx = math.Max(0, math.Min(float64(l.srcW), sx))
	sy = math.Max(0, math.Min(float64(l.srcH), sy))
	return float32(sx), float32(sy)
}

// prepareInput letterboxes img to size x size and writes it into dst in
// CHW order, scaled to [0,1]. The source image is not modified.
func prepareInput(img image.Image, size int, dst []float32) letterbox {
	b := img.Bounds()
	lb := newLetterbox(b.Dx(), b.Dy(), size)
	w, h := lb.resized()

	resized := imaging.Resize(img, w, h, imaging.Linear)
	canvas := imaging.New(size, size, padColor)
	canvas = imaging.Paste(canvas, resized, image.Pt(lb.padX, lb.padY))

	fillCHW(canvas, dst, runtime.GOMAXPROCS(0))
	return lb
}

// fillCHW splits rows across workers and converts interleaved NRGBA
// pixels into planar float channels.
func fillCHW(img *image.NRGBA, dst []float32, workers int) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	channelSize := width * height
	if workers < 1 {
		workers = 1
	}
	if workers > height {
		workers = height
	}
	rowsPerWorker := height / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		startRow := w * rowsPerWorker
		endRow := (w + 1) * rowsPerWorker
		if w == workers-1 {
			endRow = height
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				src := img.Pix[y*img.Stride : y*img.Stride+width*4]
				offset := y * width
				for x := 0; x < width; x++ {
					i := offset + x
					dst[i] = float32(src[x*4]) / 255.0
					dst[channelSize+i] = float32(src[x*4+1]) / 255.0
					dst[channelSize*2+i] = float32(src[x*4+2]) / 255.0
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
}
