package main

import (
	"context"
	"errors"
	"time"

	"github.com/Tutortoise/wildsnap-service/config"
	"github.com/Tutortoise/wildsnap-service/detections"
	"github.com/Tutortoise/wildsnap-service/remote"
	"github.com/Tutortoise/wildsnap-service/yolo"
	"github.com/sirupsen/logrus"
)

var errSlotDisabled = errors.New("model slot disabled")

// modelLoader builds the model behind one configured slot.
type modelLoader func(mc config.ModelConfig) (detections.DetectionModel, error)

// newModelLoader returns the loader used in production: onnx slots run in
// process, http slots are forwarded to an inference server.
func newModelLoader(rt config.RuntimeConfig, log logrus.FieldLogger) modelLoader {
	return func(mc config.ModelConfig) (detections.DetectionModel, error) {
		switch mc.Backend {
		case config.BackendHTTP:
			adapter := remote.NewModelAdapter(mc.Name, mc.URL, mc.Timeout)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := adapter.CheckHealth(ctx); err != nil {
				log.WithFields(logrus.Fields{"model": mc.Name, "url": mc.URL, "error": err}).
					Warn("inference service not reachable yet")
			}
			return adapter, nil
		default:
			if err := yolo.InitRuntime(rt.Library, log); err != nil {
				return nil, err
			}
			return yolo.Load(yolo.Options{
				Name:          mc.Name,
				Path:          mc.Path,
				NamesFile:     mc.NamesFile,
				InputSize:     mc.InputSize,
				PoolSize:      mc.PoolSize,
				Threads:       rt.Threads,
				MaxDetections: mc.MaxDetections,
			})
		}
	}
}

// buildRegistry loads both slots. A slot that fails to load is kept as
// unavailable so the service still starts.
func buildRegistry(models config.ModelsConfig, load modelLoader, log logrus.FieldLogger) *detections.Registry {
	slots := []struct {
		identity detections.ModelIdentity
		cfg      config.ModelConfig
	}{
		{detections.PrimaryModel, models.Primary},
		{detections.CustomModel, models.Custom},
	}

	entries := make([]detections.ModelEntry, 0, len(slots))
	for _, s := range slots {
		entry := detections.ModelEntry{
			Identity:    s.identity,
			Name:        s.cfg.Name,
			Type:        s.cfg.Backend,
			Description: s.cfg.Description,
		}
		fields := logrus.Fields{"slot": s.identity, "model": s.cfg.Name, "backend": s.cfg.Backend}

		if s.cfg.Disabled {
			entry.LoadErr = errSlotDisabled
			log.WithFields(fields).Info("model slot disabled")
			entries = append(entries, entry)
			continue
		}

		start := time.Now()
		model, err := load(s.cfg)
		if err != nil {
			entry.LoadErr = err
			log.WithFields(fields).WithError(err).Warn("model failed to load, slot unavailable")
		} else {
			entry.Model = model
			log.WithFields(fields).WithField("took", time.Since(start)).Info("model loaded")
		}
		entries = append(entries, entry)
	}
	return detections.NewRegistry(entries...)
}
