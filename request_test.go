package main

import (
	"errors"
	"net/url"
	"testing"

	"github.com/Tutortoise/wildsnap-service/config"
	"github.com/Tutortoise/wildsnap-service/detections"
	"github.com/Tutortoise/wildsnap-service/models"
	"github.com/sirupsen/logrus"
)

func TestFormParams(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		wantErr bool
		check   func(t *testing.T, r models.DetectRequest)
	}{
		{
			name:   "empty",
			values: url.Values{},
			check: func(t *testing.T, r models.DetectRequest) {
				if r.Confidence != nil || r.IoU != nil || r.FilterAnimals || r.Model != "" {
					t.Errorf("request = %+v", r)
				}
			},
		},
		{
			name:   "all set",
			values: url.Values{"model": {"best"}, "confidence": {" 0.25 "}, "iou": {"0.6"}, "filter_animals": {"1"}},
			check: func(t *testing.T, r models.DetectRequest) {
				if r.Model != "best" || *r.Confidence != 0.25 || *r.IoU != 0.6 || !r.FilterAnimals {
					t.Errorf("request = %+v", r)
				}
			},
		},
		{name: "bad confidence", values: url.Values{"confidence": {"abc"}}, wantErr: true},
		{name: "bad iou", values: url.Values{"iou": {"1,5"}}, wantErr: true},
		{name: "bad filter", values: url.Values{"filter_animals": {"yes please"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := formParams(tt.values)
			if tt.wantErr {
				if !errors.Is(err, detections.ErrInvalidParameter) {
					t.Fatalf("err = %v, want invalid parameter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("formParams: %v", err)
			}
			tt.check(t, r)
		})
	}
}

func TestNewLogger(t *testing.T) {
	log := newLogger(config.LogConfig{Level: "warn", Format: "json"}, false)
	if log.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSON", log.Formatter)
	}

	log = newLogger(config.LogConfig{Level: "info"}, true)
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("debug mode level = %v, want debug", log.GetLevel())
	}

	log = newLogger(config.LogConfig{Level: "loud"}, false)
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("fallback level = %v, want info", log.GetLevel())
	}
}
