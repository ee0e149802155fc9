package systems

import (
	"math"
	"math/rand"
)

// PerlinNoise is a classic gradient noise generator. The force model
// samples it by position, time, and agent id so steering jitter stays
// smooth across ticks instead of flickering like per-call randomness.
type PerlinNoise struct {
	perm [512]int
}

// NewPerlinNoise creates a generator whose permutation table is shuffled
// by the given seed. Equal seeds produce identical noise fields.
func NewPerlinNoise(seed int64) *PerlinNoise {
	p := &PerlinNoise{}
	rng := rand.New(rand.NewSource(seed))

	perm := make([]int, 256)
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}

	// Duplicate so hashing never needs a modulo
	for i := 0; i < 512; i++ {
		p.perm[i] = perm[i&255]
	}
	return p
}

// Noise3D returns smooth noise in roughly [-1, 1] at (x, y, z).
// The third axis is conventionally time.
func (p *PerlinNoise) Noise3D(x, y, z float64) float64 {
	xi := int(math.Floor(x)) & 255
	yi := int(math.Floor(y)) & 255
	zi := int(math.Floor(z)) & 255

	xf := x - math.Floor(x)
	yf := y - math.Floor(y)
	zf := z - math.Floor(z)

	u := fade(xf)
	v := fade(yf)
	w := fade(zf)

	a := p.perm[xi] + yi
	aa := p.perm[a] + zi
	ab := p.perm[a+1] + zi
	b := p.perm[xi+1] + yi
	ba := p.perm[b] + zi
	bb := p.perm[b+1] + zi

	return lerp(w,
		lerp(v,
			lerp(u, grad3D(p.perm[aa], xf, yf, zf), grad3D(p.perm[ba], xf-1, yf, zf)),
			lerp(u, grad3D(p.perm[ab], xf, yf-1, zf), grad3D(p.perm[bb], xf-1, yf-1, zf)),
		),
		lerp(v,
			lerp(u, grad3D(p.perm[aa+1], xf, yf, zf-1), grad3D(p.perm[ba+1], xf-1, yf, zf-1)),
			lerp(u, grad3D(p.perm[ab+1], xf, yf-1, zf-1), grad3D(p.perm[bb+1], xf-1, yf-1, zf-1)),
		),
	)
}

// fade is the 6t^5 - 15t^4 + 10t^3 smoothing curve.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

// grad3D picks a pseudo-random gradient direction from the hash and
// returns its dot product with the offset vector.
func grad3D(hash int, x, y, z float64) float64 {
	h := hash & 15
	u := x
	if h >= 8 {
		u = y
	}
	v := y
	if h >= 4 {
		v = z
		if h == 12 || h == 14 {
			v = x
		}
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
