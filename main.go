package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tutortoise/wildsnap-service/config"
	"github.com/Tutortoise/wildsnap-service/detections"
	"github.com/Tutortoise/wildsnap-service/yolo"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgFlag := flag.String("config", "config.yaml", "path of the config file")
	flag.Parse()

	if err := run(*cfgFlag); err != nil {
		logrus.Fatal(err)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log, cfg.Debug)

	registry := buildRegistry(cfg.Models, newModelLoader(cfg.ONNXRuntime, log), log)
	defer yolo.DestroyRuntime()
	defer func() {
		if err := registry.Close(); err != nil {
			log.WithError(err).Warn("error releasing models")
		}
	}()

	runner := detections.NewRunner(
		detections.NewAllowlist(cfg.Inference.AnimalClasses),
		cfg.Inference.Timeout,
		log,
	)
	state := &AppState{
		Service:   detections.NewService(registry, runner, cfg.Inference.Workers, log),
		Config:    cfg,
		Log:       log,
		Debug:     cfg.Debug,
		StartedAt: time.Now(),
	}

	srv := &http.Server{
		Handler:      newRouter(state),
		Addr:         cfg.Server.Addr,
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":   srv.Addr,
			"models": registry.Availability(),
		}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
