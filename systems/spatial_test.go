package systems

import (
	"math"
	"math/rand"
	"testing"

	"pgregory.net/rapid"
)

// bruteForceSet is the O(n^2) reference the grid query must match.
func bruteForceSet(pts [][2]float32, x, y, radius float32, exclude int32, width, height float32, wrap bool) map[int32]bool {
	out := make(map[int32]bool)
	radiusSq := radius * radius
	for i := range pts {
		if int32(i) == exclude {
			continue
		}
		dx := pts[i][0] - x
		dy := pts[i][1] - y
		if wrap {
			dx = ToroidalDelta(dx, width)
			dy = ToroidalDelta(dy, height)
		}
		if dx*dx+dy*dy <= radiusSq {
			out[int32(i)] = true
		}
	}
	return out
}

func buildGrid(pts [][2]float32, width, height, cellSize float32, wrap bool) *SpatialGrid {
	g := NewSpatialGrid(width, height, cellSize, wrap)
	for i := range pts {
		g.Insert(int32(i), pts[i][0], pts[i][1], 0, 0, 0)
	}
	return g
}

// ---------- Grid vs brute force ----------

func TestQueryRadius_MatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		width := rapid.Float32Range(100, 1000).Draw(t, "width")
		height := rapid.Float32Range(100, 1000).Draw(t, "height")
		cellSize := rapid.Float32Range(10, 200).Draw(t, "cellSize")
		radius := rapid.Float32Range(1, 500).Draw(t, "radius")
		wrap := rapid.Bool().Draw(t, "wrap")
		n := rapid.IntRange(2, 150).Draw(t, "n")

		pts := make([][2]float32, n)
		for i := range pts {
			pts[i][0] = rapid.Float32Range(0, width*0.999).Draw(t, "x")
			pts[i][1] = rapid.Float32Range(0, height*0.999).Draw(t, "y")
		}
		self := int32(rapid.IntRange(0, n-1).Draw(t, "self"))

		g := buildGrid(pts, width, height, cellSize, wrap)
		got := g.QueryRadiusInto(nil, pts[self][0], pts[self][1], radius, self)
		want := bruteForceSet(pts, pts[self][0], pts[self][1], radius, self, width, height, wrap)

		if len(got) != len(want) {
			t.Fatalf("grid found %d neighbors, brute force found %d", len(got), len(want))
		}
		for _, nb := range got {
			if !want[nb.Index] {
				t.Fatalf("grid returned index %d not in brute-force set", nb.Index)
			}
		}
	})
}

func TestQueryRadius_WithFOV_MatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const width, height = 800, 600
		radius := rapid.Float32Range(5, 300).Draw(t, "radius")
		fov := rapid.Float32Range(0.2, 2*math.Pi).Draw(t, "fov")
		heading := rapid.Float32Range(-math.Pi, math.Pi).Draw(t, "heading")
		wrap := rapid.Bool().Draw(t, "wrap")
		n := rapid.IntRange(2, 100).Draw(t, "n")

		pts := make([][2]float32, n)
		for i := range pts {
			pts[i][0] = rapid.Float32Range(0, width-1).Draw(t, "x")
			pts[i][1] = rapid.Float32Range(0, height-1).Draw(t, "y")
		}
		self := int32(rapid.IntRange(0, n-1).Draw(t, "self"))

		g := buildGrid(pts, width, height, radius, wrap)
		got := g.QueryRadiusInto(nil, pts[self][0], pts[self][1], radius, self)
		got = FilterFOV(got, heading, fov)

		want := make(map[int32]bool)
		half := fov * 0.5
		for idx := range bruteForceSet(pts, pts[self][0], pts[self][1], radius, self, width, height, wrap) {
			dx := pts[idx][0] - pts[self][0]
			dy := pts[idx][1] - pts[self][1]
			if wrap {
				dx = ToroidalDelta(dx, width)
				dy = ToroidalDelta(dy, height)
			}
			bearing := float32(math.Atan2(float64(dy), float64(dx)))
			if fov >= 2*math.Pi || absf(normalizeAngle(bearing-heading)) <= half {
				want[idx] = true
			}
		}

		if len(got) != len(want) {
			t.Fatalf("fov filter kept %d neighbors, brute force kept %d", len(got), len(want))
		}
		for _, nb := range got {
			if !want[nb.Index] {
				t.Fatalf("fov filter kept index %d not in brute-force set", nb.Index)
			}
		}
	})
}

func TestQueryRadius_SeededRandomSweep(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	const width, height = 640, 480

	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(300)
		pts := make([][2]float32, n)
		for i := range pts {
			pts[i][0] = rng.Float32() * width
			pts[i][1] = rng.Float32() * height
		}
		radius := 5 + rng.Float32()*200
		wrap := trial%2 == 0
		self := int32(rng.Intn(n))

		g := buildGrid(pts, width, height, 50, wrap)
		got := g.QueryRadiusInto(nil, pts[self][0], pts[self][1], radius, self)
		want := bruteForceSet(pts, pts[self][0], pts[self][1], radius, self, width, height, wrap)

		if len(got) != len(want) {
			t.Fatalf("trial %d: grid %d vs brute %d (radius=%f wrap=%v)",
				trial, len(got), len(want), radius, wrap)
		}
		for _, nb := range got {
			if !want[nb.Index] {
				t.Fatalf("trial %d: unexpected index %d", trial, nb.Index)
			}
		}
	}
}

// ---------- Query mechanics ----------

func TestQueryRadius_ExcludesSelf(t *testing.T) {
	pts := [][2]float32{{100, 100}, {105, 100}}
	g := buildGrid(pts, 800, 600, 50, false)

	got := g.QueryRadiusInto(nil, 100, 100, 50, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(got))
	}
	if got[0].Index != 1 {
		t.Errorf("expected neighbor index 1, got %d", got[0].Index)
	}
}

func TestQueryRadius_CarriesKinematicState(t *testing.T) {
	g := NewSpatialGrid(800, 600, 50, false)
	g.Insert(0, 100, 100, 0, 0, 0)
	g.Insert(1, 110, 100, 2.5, -1.5, 0.75)

	got := g.QueryRadiusInto(nil, 100, 100, 50, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(got))
	}
	nb := got[0]
	if nb.VX != 2.5 || nb.VY != -1.5 {
		t.Errorf("expected velocity (2.5, -1.5), got (%f, %f)", nb.VX, nb.VY)
	}
	if nb.Panic != 0.75 {
		t.Errorf("expected panic 0.75, got %f", nb.Panic)
	}
	if nb.DX != 10 || nb.DY != 0 {
		t.Errorf("expected offset (10, 0), got (%f, %f)", nb.DX, nb.DY)
	}
	if math.Abs(float64(nb.DistSq-100)) > 1e-3 {
		t.Errorf("expected distSq 100, got %f", nb.DistSq)
	}
}

func TestQueryRadius_ZeroRadiusEmpty(t *testing.T) {
	pts := [][2]float32{{100, 100}, {100, 100}}
	g := buildGrid(pts, 800, 600, 50, false)

	got := g.QueryRadiusInto(nil, 100, 100, 0, 0)
	if len(got) != 0 {
		t.Errorf("expected no neighbors for zero radius, got %d", len(got))
	}
}

func TestQueryRadius_WrapFindsAcrossSeam(t *testing.T) {
	pts := [][2]float32{{5, 300}, {795, 300}}
	g := buildGrid(pts, 800, 600, 50, true)

	got := g.QueryRadiusInto(nil, 5, 300, 20, 0)
	if len(got) != 1 {
		t.Fatalf("expected wrap query to find the agent across the seam, got %d", len(got))
	}
	if got[0].DX != -10 {
		t.Errorf("expected shortest-path DX -10, got %f", got[0].DX)
	}

	g.SetWrap(false)
	got = g.QueryRadiusInto(got[:0], 5, 300, 20, 0)
	if len(got) != 0 {
		t.Errorf("bounded query should not cross the seam, found %d", len(got))
	}
}

func TestQueryRadius_ReusesDst(t *testing.T) {
	pts := [][2]float32{{100, 100}, {110, 100}, {120, 100}}
	g := buildGrid(pts, 800, 600, 50, false)

	dst := make([]Neighbor, 0, 8)
	dst = g.QueryRadiusInto(dst, 100, 100, 50, 0)
	first := len(dst)
	dst = g.QueryRadiusInto(dst[:0], 100, 100, 50, 0)
	if len(dst) != first {
		t.Errorf("reused dst changed result count: %d vs %d", first, len(dst))
	}
}

// ---------- Insert and candidates ----------

func TestInsert_ClampsOutOfRange(t *testing.T) {
	g := NewSpatialGrid(800, 600, 50, false)
	g.Insert(0, -50, -50, 0, 0, 0)
	g.Insert(1, 5000, 5000, 0, 0, 0)

	ids := g.CandidatesInto(nil, 0, 0, 10)
	if len(ids) != 1 || ids[0] != 0 {
		t.Errorf("expected negative position clamped into corner cell, got %v", ids)
	}

	ids = g.CandidatesInto(nil, 800, 600, 10)
	if len(ids) != 1 || ids[0] != 1 {
		t.Errorf("expected oversized position clamped into far corner cell, got %v", ids)
	}
}

func TestCandidates_SupersetOfExact(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const width, height = 800, 600
	pts := make([][2]float32, 200)
	for i := range pts {
		pts[i][0] = rng.Float32() * width
		pts[i][1] = rng.Float32() * height
	}
	g := buildGrid(pts, width, height, 50, false)

	exact := g.QueryRadiusInto(nil, 400, 300, 120, -1)
	cand := g.CandidatesInto(nil, 400, 300, 120)

	seen := make(map[int32]bool, len(cand))
	for _, id := range cand {
		seen[id] = true
	}
	for _, nb := range exact {
		if !seen[nb.Index] {
			t.Fatalf("exact neighbor %d missing from candidate superset", nb.Index)
		}
	}
	if len(cand) < len(exact) {
		t.Errorf("candidate count %d below exact count %d", len(cand), len(exact))
	}
}

func TestClear_EmptiesAllBuckets(t *testing.T) {
	pts := [][2]float32{{10, 10}, {400, 300}, {790, 590}}
	g := buildGrid(pts, 800, 600, 50, false)

	g.Clear()
	for _, p := range pts {
		if got := g.QueryRadiusInto(nil, p[0], p[1], 100, -1); len(got) != 0 {
			t.Fatalf("expected empty grid after Clear, found %d near (%f, %f)", len(got), p[0], p[1])
		}
	}
}

func TestResize_AppliesNewCellSize(t *testing.T) {
	g := NewSpatialGrid(800, 600, 50, false)
	g.Insert(0, 400, 300, 0, 0, 0)

	g.Resize(1600, 1200, 80)
	if g.CellSize() != 80 {
		t.Errorf("expected cell size 80 after resize, got %f", g.CellSize())
	}

	// Entries are discarded on resize; rebuild and query at the new scale
	g.Insert(0, 1500, 1100, 0, 0, 0)
	got := g.QueryRadiusInto(nil, 1520, 1100, 40, -1)
	if len(got) != 1 {
		t.Fatalf("expected 1 neighbor after resize rebuild, got %d", len(got))
	}
}

// ---------- FOV filter ----------

func TestFilterFOV_FullCircleKeepsAll(t *testing.T) {
	nbs := []Neighbor{
		{Index: 0, DX: 1, DY: 0},
		{Index: 1, DX: -1, DY: 0},
		{Index: 2, DX: 0, DY: -1},
	}
	kept := FilterFOV(nbs, 0, 2*math.Pi)
	if len(kept) != 3 {
		t.Errorf("full-circle fov should keep all 3, kept %d", len(kept))
	}
}

func TestFilterFOV_BlindSpotBehind(t *testing.T) {
	nbs := []Neighbor{
		{Index: 0, DX: 10, DY: 0},   // dead ahead
		{Index: 1, DX: 0, DY: 10},   // left flank
		{Index: 2, DX: -10, DY: 1},  // behind
		{Index: 3, DX: -10, DY: -1}, // behind
	}
	// 270 degree view facing +x leaves a 90 degree blind cone behind
	kept := FilterFOV(nbs, 0, 3*math.Pi/2)
	if len(kept) != 2 {
		t.Fatalf("expected 2 visible neighbors, got %d", len(kept))
	}
	for _, nb := range kept {
		if nb.Index == 2 || nb.Index == 3 {
			t.Errorf("neighbor %d behind the agent should be filtered", nb.Index)
		}
	}
}

func TestFilterFOV_HeadingRotatesTheCone(t *testing.T) {
	nbs := []Neighbor{
		{Index: 0, DX: 10, DY: 0},
		{Index: 1, DX: -10, DY: 0},
	}
	kept := FilterFOV(nbs, math.Pi, math.Pi/2)
	if len(kept) != 1 || kept[0].Index != 1 {
		t.Fatalf("agent facing -x should only see the neighbor at -x, kept %v", kept)
	}
}
