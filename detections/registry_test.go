package detections

import (
	"errors"
	"testing"
)

type closingModel struct {
	fakeModel
	closed bool
	err    error
}

func (m *closingModel) Close() error {
	m.closed = true
	return m.err
}

func TestRegistry(t *testing.T) {
	primary := &closingModel{}
	custom := &closingModel{err: errors.New("release failed")}
	reg := NewRegistry(
		ModelEntry{Identity: PrimaryModel, Name: "yolov8n", Model: primary},
		ModelEntry{Identity: CustomModel, Name: "best", Model: custom},
		ModelEntry{Identity: PrimaryModel, Name: "duplicate", Model: dogAndCar()},
	)

	if got := len(reg.Entries()); got != 2 {
		t.Fatalf("entries = %d, want 2", got)
	}
	if e := reg.Lookup(PrimaryModel); e.Name != "yolov8n" {
		t.Errorf("primary = %q, duplicate identity must be ignored", e.Name)
	}
	if e, ok := reg.ByName("BEST"); !ok || e.Identity != CustomModel {
		t.Errorf("ByName(BEST) = %+v, %v", e, ok)
	}
	if _, ok := reg.ByName("nope"); ok {
		t.Error("ByName found an unknown slot")
	}

	avail := reg.Availability()
	if !avail["yolov8n"] || !avail["best"] {
		t.Errorf("availability = %v", avail)
	}

	if err := reg.Close(); err == nil {
		t.Error("Close should report the custom model's error")
	}
	if !primary.closed || !custom.closed {
		t.Error("Close must release every closable model")
	}
}

func TestRegistryUnknownIdentity(t *testing.T) {
	reg := NewRegistry(ModelEntry{Identity: PrimaryModel, Name: "yolov8n", Model: dogAndCar()})

	e := reg.Lookup(CustomModel)
	if e.Available() || e.Label() != "custom" {
		t.Errorf("missing slot = %+v", e)
	}

	failed := NewRegistry(ModelEntry{Identity: PrimaryModel, Name: "yolov8n", LoadErr: errors.New("missing file")})
	if failed.Availability()["yolov8n"] {
		t.Error("slot with a load error reported available")
	}
}
