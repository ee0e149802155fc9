package predator

import "math"

// Scoring scales. Isolation and edge distances are normalized against
// these references so the weight vectors stay comparable across world
// sizes.
const (
	isolationRefDist = 60.0
	densityRef       = 12.0
	edgeRefDist      = 250.0
	topCandidates    = 3
)

// TargetScore is one scored candidate, recomputed on every scan and never
// persisted.
type TargetScore struct {
	Index int32
	Score float32
}

// ScoreCandidates scores every prey within the archetype's scan range of
// (hx, hy) and appends results to dst, which is caller-owned scratch.
func (a *Archetype) ScoreCandidates(dst []TargetScore, hx, hy float32, view *FlockView) []TargetScore {
	scanSq := a.ScanRange * a.ScanRange
	w := &a.Weights

	for i := range view.Prey {
		prey := &view.Prey[i]

		dx, dy := view.Delta(hx, hy, prey.X, prey.Y)
		distSq := dx*dx + dy*dy
		if distSq > scanSq {
			continue
		}
		dist := float32(math.Sqrt(float64(distSq)))

		// Isolation: far from its nearest flockmate and few neighbors
		var nnDist float32
		if prey.NearestSq < math.MaxFloat32 {
			nnDist = float32(math.Sqrt(float64(prey.NearestSq)))
		}
		isolation := 0.6*clamp01(nnDist/isolationRefDist) +
			0.4*clamp01(1-prey.Density/densityRef)

		// Edge: distance from the flock centroid
		cx, cy := view.Delta(view.CentroidX, view.CentroidY, prey.X, prey.Y)
		edge := clamp01(float32(math.Sqrt(float64(cx*cx+cy*cy))) / edgeRefDist)

		// Velocity: heading away from the centroid scores high
		velocity := float32(0.5)
		speedSq := prey.VX*prey.VX + prey.VY*prey.VY
		centDistSq := cx*cx + cy*cy
		if speedSq > 1e-6 && centDistSq > 1e-6 {
			dot := (prey.VX*cx + prey.VY*cy) /
				float32(math.Sqrt(float64(speedSq))*math.Sqrt(float64(centDistSq)))
			velocity = (dot + 1) * 0.5
		}

		// Intercept feasibility: closer candidates are cheaper to reach
		intercept := clamp01(1 - dist/a.ScanRange)

		score := w.Isolation*isolation +
			w.Edge*edge +
			w.Velocity*velocity +
			w.Panic*prey.Panic +
			w.Intercept*intercept

		dst = append(dst, TargetScore{Index: prey.Index, Score: score})
	}
	return dst
}

// topScored moves the best k candidates to the front of scores, in
// descending order. Partial selection sort; k is tiny.
func topScored(scores []TargetScore, k int) []TargetScore {
	if len(scores) < k {
		k = len(scores)
	}
	for i := 0; i < k; i++ {
		best := i
		for j := i + 1; j < len(scores); j++ {
			if scores[j].Score > scores[best].Score {
				best = j
			}
		}
		scores[i], scores[best] = scores[best], scores[i]
	}
	return scores[:k]
}

// selectTarget scans the flock and picks uniformly among the top three
// scored candidates. The randomization keeps hunts unpredictable for the
// flock and is intentional; callers wanting reproducibility seed the
// predator's RNG.
func (p *Predator) selectTarget(view *FlockView) int32 {
	p.scratch = p.Arch.ScoreCandidates(p.scratch[:0], p.X, p.Y, view)
	if len(p.scratch) == 0 {
		return -1
	}
	top := topScored(p.scratch, topCandidates)
	return top[p.rng.Intn(len(top))].Index
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
