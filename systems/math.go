package systems

import "math"

// clampFloat clamps v to the range [minVal, maxVal].
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps v to [0, 1].
func clamp01(v float32) float32 {
	return clampFloat(v, 0, 1)
}

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float32) float32 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// mod wraps v into [0, m).
func mod(v, m float32) float32 {
	r := float32(math.Mod(float64(v), float64(m)))
	if r < 0 {
		r += m
	}
	return r
}

// limitVec scales (x, y) down to magnitude maxLen if it is longer.
func limitVec(x, y, maxLen float32) (float32, float32) {
	magSq := x*x + y*y
	if magSq == 0 || magSq <= maxLen*maxLen {
		return x, y
	}
	scale := maxLen / float32(math.Sqrt(float64(magSq)))
	return x * scale, y * scale
}
