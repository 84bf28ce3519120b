package common

import "testing"

func assertTrue(t *testing.T, v bool, msg string) {
	t.Helper()
	if !v {
		t.Fatal(msg)
	}
}

func TestNextPow2AndIlog2(t *testing.T) {
	cases := []struct {
		in, pow, log uint32
	}{
		{1, 1, 0},
		{3, 4, 1},
		{16, 16, 4},
		{1000, 1024, 9},
		{70000, 131072, 16},
	}
	for _, c := range cases {
		assertTrue(t, NextPow2(c.in) == c.pow, "NextPow2")
		assertTrue(t, Ilog2(c.in) == c.log, "Ilog2")
	}
}

func TestDistancePtSegSqr2D(t *testing.T) {
	p := []float32{0, 0, 0}
	q := []float32{10, 5, 0}
	d, tt := DistancePtSegSqr2D([]float32{5, 100, 2}, p, q)
	assertTrue(t, Abs(d-4) < 1e-5, "distance ignores height")
	assertTrue(t, Abs(tt-0.5) < 1e-5, "segment parameter")

	d, tt = DistancePtSegSqr2D([]float32{-3, 0, 4}, p, q)
	assertTrue(t, Abs(d-25) < 1e-5, "clamped to start")
	assertTrue(t, tt == 0, "clamped parameter")
}

func TestPointInPolygon(t *testing.T) {
	square := []float32{
		0, 0, 0,
		0, 0, 4,
		4, 0, 4,
		4, 0, 0,
	}
	assertTrue(t, PointInPolygon([]float32{2, 0, 2}, square, 4), "center inside")
	assertTrue(t, !PointInPolygon([]float32{5, 0, 2}, square, 4), "outside")
}

func TestClosestHeightPointTriangle(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{0, 2, 4}
	c := []float32{4, 0, 0}
	h, ok := ClosestHeightPointTriangle([]float32{1, 0, 2}, a, b, c)
	assertTrue(t, ok, "inside triangle")
	assertTrue(t, Abs(h-1) < 1e-4, "interpolated height")

	_, ok = ClosestHeightPointTriangle([]float32{4, 0, 4}, a, b, c)
	assertTrue(t, !ok, "outside triangle")
}

func TestTriArea2DOrientation(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 0, 1}
	assertTrue(t, TriArea2D(a, b, c) < 0, "orientation sign")
	assertTrue(t, TriArea2D(a, c, b) > 0, "reversed orientation sign")
}
