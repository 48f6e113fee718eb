package main

import (
	"errors"
	"testing"

	"github.com/Tutortoise/wildsnap-service/config"
	"github.com/Tutortoise/wildsnap-service/detections"
)

func TestBuildRegistry(t *testing.T) {
	cfg := config.DefaultConfig().Models
	loaded := dogAndCar()
	var calls []string

	load := func(mc config.ModelConfig) (detections.DetectionModel, error) {
		calls = append(calls, mc.Name)
		if mc.Name == "best" {
			return nil, errors.New("model file not found")
		}
		return loaded, nil
	}

	reg := buildRegistry(cfg, load, quietLogger())
	primary := reg.Lookup(detections.PrimaryModel)
	if !primary.Available() || primary.Name != "yolov8n" || primary.Type != config.BackendONNX {
		t.Errorf("primary = %+v", primary)
	}
	custom := reg.Lookup(detections.CustomModel)
	if custom.Available() || custom.LoadErr == nil {
		t.Errorf("custom = %+v", custom)
	}
	if len(calls) != 2 {
		t.Errorf("loader calls = %v", calls)
	}
}

func TestBuildRegistryDisabledSlot(t *testing.T) {
	cfg := config.DefaultConfig().Models
	cfg.Custom.Disabled = true

	calls := 0
	reg := buildRegistry(cfg, func(config.ModelConfig) (detections.DetectionModel, error) {
		calls++
		return dogAndCar(), nil
	}, quietLogger())

	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if custom := reg.Lookup(detections.CustomModel); !errors.Is(custom.LoadErr, errSlotDisabled) {
		t.Errorf("custom load error = %v", custom.LoadErr)
	}
}
