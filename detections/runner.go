package detections

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner executes one model invocation end to end: validation, timing,
// normalization, class filtering and packaging.
type Runner struct {
	allowlist Allowlist
	timeout   time.Duration
	log       logrus.FieldLogger
}

// NewRunner creates a runner. A non-positive timeout disables the
// per-invocation deadline.
func NewRunner(allowlist Allowlist, timeout time.Duration, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{allowlist: allowlist, timeout: timeout, log: log}
}

type prediction struct {
	raw *RawResult
	err error
}

// Run invokes entry's model on img. Invalid thresholds and unavailable
// models are reported before the model is touched. Any model failure
// yields an error and no result.
func (r *Runner) Run(ctx context.Context, entry ModelEntry, img image.Image, p Params) (*InferenceResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, invalidParameter("no image provided")
	}
	if !entry.Available() {
		return nil, modelUnavailable(entry.Label())
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := r.predict(ctx, entry, img, p)
	elapsed := time.Since(start)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"model": entry.Label(),
			"error": err,
		}).Warn("model invocation failed")
		return nil, err
	}

	dets := Normalize(raw, entry.Identity)
	dets = r.allowlist.Apply(dets, entry.Identity, p.FilterAnimals)

	annotated, err := render(raw, img)
	if err != nil {
		return nil, invocationFailure(entry.Label(), "render annotated image", err)
	}

	res := &InferenceResult{
		Model:           entry.Identity,
		ModelName:       entry.Label(),
		AnnotatedImage:  annotated,
		Detections:      dets,
		InferenceTimeMs: float64(elapsed) / float64(time.Millisecond),
	}
	r.log.WithFields(logrus.Fields{
		"model":        entry.Label(),
		"raw_objects":  len(raw.Objects),
		"detections":   len(dets),
		"inference_ms": res.InferenceTimeMs,
	}).Debug("inference complete")
	return res, nil
}

// predict runs the model in its own goroutine so that a model ignoring
// ctx still cannot outlive the deadline.
func (r *Runner) predict(ctx context.Context, entry ModelEntry, img image.Image, p Params) (*RawResult, error) {
	done := make(chan prediction, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- prediction{err: fmt.Errorf("model panic: %v", rec)}
			}
		}()
		raw, err := entry.Model.Predict(ctx, img, p.Confidence, p.IoU)
		done <- prediction{raw: raw, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, invocationFailure(entry.Label(), "prediction failed", out.err)
		}
		if out.raw == nil {
			return nil, invocationFailure(entry.Label(), "prediction returned no result", nil)
		}
		return out.raw, nil
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, invocationFailure(entry.Label(), "prediction timed out", err)
		}
		return nil, invocationFailure(entry.Label(), "prediction cancelled", err)
	}
}

func render(raw *RawResult, src image.Image) (image.Image, error) {
	if raw.Render == nil {
		return src, nil
	}
	out, err := raw.Render()
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("renderer returned no image")
	}
	return out, nil
}
