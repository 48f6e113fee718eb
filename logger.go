package main

import (
	"os"

	"github.com/Tutortoise/wildsnap-service/config"
	"github.com/Tutortoise/wildsnap-service/models"
	"github.com/sirupsen/logrus"
)

func newLogger(cfg config.LogConfig, debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
		log.WithField("level", cfg.Level).Warn("unknown log level, using info")
	}
	if debug && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	return log
}

// logTimings reports where a request spent its time. Only emitted in
// debug mode.
func (s *AppState) logTimings(t *models.ProcessingTimings) {
	if !s.Debug {
		return
	}
	s.Log.WithFields(logrus.Fields{
		"request_id": t.RequestID,
		"mode":       t.Mode,
		"images":     t.Images,
		"decode":     t.ImageDecode,
		"inference":  t.Inference,
		"encode":     t.Encode,
		"total":      t.Total,
	}).Debug("processing times")
}
