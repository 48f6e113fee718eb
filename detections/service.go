package detections

import (
	"context"
	"image"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Mode selects which model slots a request runs against.
type Mode int

const (
	ModePrimary Mode = iota + 1
	ModeCustom
	ModeCompare
)

func (m Mode) String() string {
	switch m {
	case ModePrimary:
		return "primary"
	case ModeCustom:
		return "custom"
	case ModeCompare:
		return "compare"
	default:
		return "unknown"
	}
}

// ParseMode accepts "primary", "custom", "compare" or the configured name
// of a slot. An empty selector means the primary model.
func ParseMode(reg *Registry, s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary":
		return ModePrimary, nil
	case "custom":
		return ModeCustom, nil
	case "compare", "both":
		return ModeCompare, nil
	}
	if e, ok := reg.ByName(strings.TrimSpace(s)); ok {
		if e.Identity == CustomModel {
			return ModeCustom, nil
		}
		return ModePrimary, nil
	}
	return 0, invalidParameter("unknown model %q", s)
}

// Outcome holds the per-slot results of one image.
type Outcome struct {
	Mode  Mode
	Slots []SlotResult
}

// Err returns nil when at least one slot produced a result, otherwise the
// first slot's error.
func (o Outcome) Err() error {
	for _, s := range o.Slots {
		if s.OK() {
			return nil
		}
	}
	for _, s := range o.Slots {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Service binds the registry to a runner and serves whole requests.
type Service struct {
	registry *Registry
	runner   *Runner
	workers  int
	log      logrus.FieldLogger
}

func NewService(registry *Registry, runner *Runner, workers int, log logrus.FieldLogger) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{registry: registry, runner: runner, workers: workers, log: log}
}

func (s *Service) Registry() *Registry { return s.registry }

// Detect runs img through the slots selected by mode.
func (s *Service) Detect(ctx context.Context, mode Mode, img image.Image, p Params) Outcome {
	switch mode {
	case ModeCompare:
		cmp := s.runner.Compare(ctx, s.registry.Lookup(PrimaryModel), s.registry.Lookup(CustomModel), img, p)
		return Outcome{Mode: mode, Slots: []SlotResult{cmp.Primary, cmp.Custom}}
	case ModeCustom:
		return Outcome{Mode: mode, Slots: []SlotResult{s.runSlot(ctx, CustomModel, img, p)}}
	default:
		return Outcome{Mode: ModePrimary, Slots: []SlotResult{s.runSlot(ctx, PrimaryModel, img, p)}}
	}
}

func (s *Service) runSlot(ctx context.Context, identity ModelIdentity, img image.Image, p Params) SlotResult {
	entry := s.registry.Lookup(identity)
	res, err := s.runner.Run(ctx, entry, img, p)
	return SlotResult{Name: entry.Label(), Result: res, Err: err}
}

// Decoder turns raw image bytes into a pixel buffer.
type Decoder func([]byte) (image.Image, error)

// BatchItem is one image of a batch request.
type BatchItem struct {
	Name string
	Data []byte
}

// BatchResult is the outcome of one batch item. Err is set when the image
// could not be decoded; model failures live in Outcome.
type BatchResult struct {
	Index   int
	Name    string
	Outcome Outcome
	Err     error
}

// DetectBatch processes items concurrently. A failing item never aborts
// its siblings. Results are returned in input order. Only invalid
// parameters fail the whole batch.
func (s *Service) DetectBatch(ctx context.Context, items []BatchItem, mode Mode, p Params, decode Decoder) ([]BatchResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, invalidParameter("no images provided")
	}

	results := make([]BatchResult, len(items))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = s.processItem(ctx, i, item, mode, p, decode)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *Service) processItem(ctx context.Context, index int, item BatchItem, mode Mode, p Params, decode Decoder) BatchResult {
	res := BatchResult{Index: index, Name: item.Name}
	if len(item.Data) == 0 {
		res.Err = invalidParameter("empty image payload")
		return res
	}
	img, err := decode(item.Data)
	if err != nil {
		s.log.WithFields(logrus.Fields{"image": item.Name, "error": err}).Warn("skipping undecodable image")
		res.Err = DecodeFailure(err)
		return res
	}
	res.Outcome = s.Detect(ctx, mode, img, p)
	return res
}
