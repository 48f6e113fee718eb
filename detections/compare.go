package detections

import (
	"context"
	"image"
	"sync"
)

// Compare runs primary and custom independently over the same image and
// parameters. One slot failing never prevents the other's result. img is
// only read; annotation happens on copies.
func (r *Runner) Compare(ctx context.Context, primary, custom ModelEntry, img image.Image, p Params) ComparisonResult {
	out := ComparisonResult{
		Primary: SlotResult{Name: primary.Label()},
		Custom:  SlotResult{Name: custom.Label()},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Primary.Result, out.Primary.Err = r.Run(ctx, primary, img, p)
	}()
	go func() {
		defer wg.Done()
		out.Custom.Result, out.Custom.Err = r.Run(ctx, custom, img, p)
	}()
	wg.Wait()

	return out
}
