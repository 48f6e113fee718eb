package detections

import "strings"

// Allowlist is a case-insensitive set of class names that survive the
// class filter when it is active.
type Allowlist struct {
	classes map[string]struct{}
}

// NewAllowlist builds an allowlist from the given class names.
func NewAllowlist(classes []string) Allowlist {
	set := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	return Allowlist{classes: set}
}

func (a Allowlist) Contains(class string) bool {
	_, ok := a.classes[strings.ToLower(class)]
	return ok
}

func (a Allowlist) Len() int { return len(a.classes) }

// Apply filters dets only when enabled is set and identity is the primary
// model. The custom model's output is never filtered. Order is preserved.
func (a Allowlist) Apply(dets []Detection, identity ModelIdentity, enabled bool) []Detection {
	if !enabled || identity != PrimaryModel {
		return dets
	}
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if a.Contains(d.ClassName) {
			out = append(out, d)
		}
	}
	return out
}
