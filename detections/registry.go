package detections

import (
	"errors"
	"io"
	"strings"
)

// ModelEntry is one registry slot. A slot whose model failed to load keeps
// its LoadErr and reports itself unavailable.
type ModelEntry struct {
	Identity    ModelIdentity
	Name        string
	Type        string
	Description string
	Model       DetectionModel
	LoadErr     error
}

func (e ModelEntry) Available() bool {
	return e.Model != nil && e.LoadErr == nil
}

// Label is the name used in logs and responses.
func (e ModelEntry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Identity.String()
}

// Registry holds the process-wide model slots. It is built once at startup
// and never mutated afterwards, so concurrent reads need no locking.
type Registry struct {
	entries []ModelEntry
}

// NewRegistry builds a registry. Later entries with a duplicate identity
// are ignored.
func NewRegistry(entries ...ModelEntry) *Registry {
	r := &Registry{}
	seen := make(map[ModelIdentity]bool)
	for _, e := range entries {
		if seen[e.Identity] {
			continue
		}
		seen[e.Identity] = true
		r.entries = append(r.entries, e)
	}
	return r
}

// Lookup returns the slot for identity. Unknown identities yield an
// unavailable entry rather than an error.
func (r *Registry) Lookup(identity ModelIdentity) ModelEntry {
	for _, e := range r.entries {
		if e.Identity == identity {
			return e
		}
	}
	return ModelEntry{Identity: identity}
}

// ByName finds a slot by its configured name, case-insensitively.
func (r *Registry) ByName(name string) (ModelEntry, bool) {
	for _, e := range r.entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return ModelEntry{}, false
}

// Entries returns a copy of all slots in registration order.
func (r *Registry) Entries() []ModelEntry {
	out := make([]ModelEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Availability reports, per slot label, whether its model is loaded.
func (r *Registry) Availability() map[string]bool {
	out := make(map[string]bool, len(r.entries))
	for _, e := range r.entries {
		out[e.Label()] = e.Available()
	}
	return out
}

// Close releases every model that holds resources.
func (r *Registry) Close() error {
	var errs []error
	for _, e := range r.entries {
		if c, ok := e.Model.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
