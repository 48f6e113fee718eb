package yolo

import (
	"math"
	"runtime"
	"sort"
	"sync"
)

const DefaultMaxDetections = 300

type candidate struct {
	classID int
	score   float32
	box     [4]float32 // x1, y1, x2, y2 in source pixels
}

// decodePredictions reads a [4+numClasses][numAnchors] output (channel
// major) and returns every anchor whose best class score reaches
// threshold, sorted by score descending.
func decodePredictions(preds []float32, numClasses, numAnchors int, threshold float32, lb letterbox) []candidate {
	const chunkSize = 512
	numWorkers := runtime.NumCPU()
	jobs := make(chan int, numWorkers)
	results := make(chan []candidate, numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]candidate, 0, 32)
			for start := range jobs {
				end := min(start+chunkSize, numAnchors)
				for i := start; i < end; i++ {
					classID, score := bestClass(preds, numClasses, numAnchors, i)
					if score < threshold {
						continue
					}
					local = append(local, candidate{
						classID: classID,
						score:   score,
						box: toSourceBox(
							preds[i],
							preds[numAnchors+i],
							preds[2*numAnchors+i],
							preds[3*numAnchors+i],
							lb,
						),
					})
				}
			}
			if len(local) > 0 {
				results <- local
			}
		}()
	}

	go func() {
		for i := 0; i < numAnchors; i += chunkSize {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []candidate
	for chunk := range results {
		out = append(out, chunk...)
	}
	sortByScore(out)
	return out
}

func bestClass(preds []float32, numClasses, numAnchors, anchor int) (int, float32) {
	best, bestScore := 0, float32(-1)
	for c := 0; c < numClasses; c++ {
		if s := preds[(4+c)*numAnchors+anchor]; s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

// toSourceBox converts a center/size box in model input space into corner
// coordinates in the source image.
func toSourceBox(cx, cy, w, h float32, lb letterbox) [4]float32 {
	x1, y1 := lb.toSource(cx-w/2, cy-h/2)
	x2, y2 := lb.toSource(cx+w/2, cy+h/2)
	return [4]float32{x1, y1, x2, y2}
}

// sortByScore orders candidates by descending score; ties keep class and
// position order so results are deterministic.
func sortByScore(c []candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].score != c[j].score {
			return c[i].score > c[j].score
		}
		if c[i].classID != c[j].classID {
			return c[i].classID < c[j].classID
		}
		return c[i].box[0] < c[j].box[0]
	})
}

// suppress keeps the highest-scoring candidates and drops any candidate of
// the same class overlapping a kept one by more than iouThreshold.
// Input must be sorted by score.
func suppress(cands []candidate, iouThreshold float32, limit int) []candidate {
	if limit <= 0 {
		limit = DefaultMaxDetections
	}
	kept := make([]candidate, 0, min(len(cands), limit))
	removed := make([]bool, len(cands))
	for i := range cands {
		if removed[i] {
			continue
		}
		kept = append(kept, cands[i])
		if len(kept) == limit {
			break
		}
		for j := i + 1; j < len(cands); j++ {
			if removed[j] || cands[j].classID != cands[i].classID {
				continue
			}
			if calculateIOU(cands[i].box, cands[j].box) > iouThreshold {
				removed[j] = true
			}
		}
	}
	return kept
}

func calculateIOU(box1, box2 [4]float32) float32 {
	x1 := math.Max(float64(box1[0]), float64(box2[0]))
	y1 := math.Max(float64(box1[1]), float64(box2[1]))
	x2 := math.Min(float64(box1[2]), float64(box2[2]))
	y2 := math.Min(float64(box1[3]), float64(box2[3]))

	if x2 <= x1 || y2 <= y1 {
		return 0.0
	}

	intersection := (x2 - x1) * (y2 - y1)
	area1 := float64((box1[2] - box1[0]) * (box1[3] - box1[1]))
	area2 := float64((box2[2] - box2[0]) * (box2[3] - box2[1]))
	union := area1 + area2 - intersection
	if union <= 0 {
		return 0.0
	}

	return float32(intersection / union)
}
