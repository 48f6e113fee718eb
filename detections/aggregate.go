package detections

// Summary holds statistics derived from a detection sequence.
type Summary struct {
	TotalCount        int
	UniqueClassCount  int
	PerClassCounts    map[string]int
	AverageConfidence float64
}

// Summarize computes statistics over dets. An empty input yields zero
// counts and a zero average. Class names are counted as given.
func Summarize(dets []Detection) Summary {
	s := Summary{
		TotalCount:     len(dets),
		PerClassCounts: make(map[string]int),
	}
	if len(dets) == 0 {
		return s
	}
	var sum float64
	for _, d := range dets {
		s.PerClassCounts[d.ClassName]++
		sum += d.Confidence
	}
	s.UniqueClassCount = len(s.PerClassCounts)
	s.AverageConfidence = sum / float64(len(dets))
	return s
}

// Merge combines summaries, e.g. across the images of a batch.
func Merge(summaries ...Summary) Summary {
	out := Summary{PerClassCounts: make(map[string]int)}
	var weighted float64
	for _, s := range summaries {
		out.TotalCount += s.TotalCount
		weighted += s.AverageConfidence * float64(s.TotalCount)
		for class, n := range s.PerClassCounts {
			out.PerClassCounts[class] += n
		}
	}
	out.UniqueClassCount = len(out.PerClassCounts)
	if out.TotalCount > 0 {
		out.AverageConfidence = weighted / float64(out.TotalCount)
	}
	return out
}
