package detections

import "math"

// Normalize converts a raw model result into canonical detections in
// emission order. Malformed entries are skipped; nothing else is dropped.
func Normalize(raw *RawResult, source ModelIdentity) []Detection {
	if raw == nil {
		return nil
	}
	out := make([]Detection, 0, len(raw.Objects))
	for _, obj := range raw.Objects {
		det, ok := normalizeObject(obj, raw.Names, source)
		if !ok {
			continue
		}
		out = append(out, det)
	}
	return out
}

func normalizeObject(obj RawObject, names ClassNames, source ModelIdentity) (Detection, bool) {
	conf := obj.Confidence
	if math.IsNaN(conf) || math.IsInf(conf, 0) || conf < 0 || conf > 1 {
		return Detection{}, false
	}
	if len(obj.Box) != 4 {
		return Detection{}, false
	}
	var coords [4]int
	for i, v := range obj.Box {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Detection{}, false
		}
		coords[i] = int(v)
	}
	box := BoundingBox{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
	if box.X1 > box.X2 || box.Y1 > box.Y2 {
		return Detection{}, false
	}
	return Detection{
		ClassName:  names.Lookup(obj.ClassID),
		Confidence: conf,
		Box:        box,
		Source:     source,
	}, true
}
