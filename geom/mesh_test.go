package geom

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/common"
)

func assertTrue(t *testing.T, v bool, msg string) {
	t.Helper()
	if !v {
		t.Fatal(msg)
	}
}

func TestFlattenPlane(t *testing.T) {
	g, err := Flatten(NewTriMesh(Plane(-10, -10, 10, 10, 0)))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	assertTrue(t, g.VertCount() == 4, "vertex count")
	assertTrue(t, g.TriCount() == 2, "triangle count")
	assertTrue(t, g.Areas[0] == uint8(AreaGround) && g.Areas[1] == uint8(AreaGround), "default area is ground")
	assertTrue(t, g.Bmin == [3]float32{-10, 0, -10} && g.Bmax == [3]float32{10, 0, 10}, "bounds")
}

func TestFlattenOffsetsIndicesPerBuffer(t *testing.T) {
	water := Plane(20, 0, 30, 10, 0)
	water.Area = AreaWater
	g, err := Flatten(NewTriMesh(Plane(0, 0, 10, 10, 0), water))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	assertTrue(t, g.TriCount() == 4, "triangle count")
	assertTrue(t, g.Tris[6] == 4, "second buffer indices are rebased")
	assertTrue(t, g.Areas[2] == uint8(AreaWater), "material hint applies")
}

func TestFlattenVertexHint(t *testing.T) {
	b := Plane(0, 0, 10, 10, 0)
	b.VertexAreas = []Area{AreaRoad, AreaNull, AreaNull, AreaNull}
	g, err := Flatten(NewTriMesh(b))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	// Both triangles start at vertex 0.
	assertTrue(t, g.Areas[0] == uint8(AreaRoad) && g.Areas[1] == uint8(AreaRoad), "vertex hint applies")
}

func TestFlattenTransform(t *testing.T) {
	m := NewTriMesh(Plane(0, 0, 1, 1, 0))
	xf := mgl32.Translate3D(5, 2, -3)
	m.Matrix = &xf
	g, err := Flatten(m)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	assertTrue(t, g.Bmin == [3]float32{5, 2, -3}, "translated bounds")
}

func TestFlattenRejectsBadInput(t *testing.T) {
	cases := map[string]Mesh{
		"nil":          nil,
		"empty":        NewTriMesh(),
		"no triangles": NewTriMesh(&TriBuffer{Positions: []mgl32.Vec3{{0, 0, 0}}}),
		"unknown format": NewTriMesh(&TriBuffer{
			Type:      VertexType(7),
			Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}},
			Indices:   []uint32{0, 1, 2},
		}),
		"bad index": NewTriMesh(&TriBuffer{
			Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}},
			Indices:   []uint32{0, 1, 9},
		}),
	}
	for name, m := range cases {
		_, err := Flatten(m)
		if !errors.Is(err, common.ErrInput) {
			t.Errorf("%s: expected input error, got %v", name, err)
		}
	}
}

func TestChunkyTriMeshQuery(t *testing.T) {
	m := NewTriMesh()
	for x := 0; x < 10; x++ {
		for z := 0; z < 10; z++ {
			m.Add(Plane(float32(x), float32(z), float32(x)+1, float32(z)+1, 0))
		}
	}
	g, err := Flatten(m)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	cm := NewChunkyTriMesh(g, 8)
	assertTrue(t, cm.MaxTrisPerChunk <= 8 && cm.MaxTrisPerChunk > 0, "chunk size")

	all, areas := cm.TrianglesInRect([2]float32{-1, -1}, [2]float32{11, 11})
	assertTrue(t, len(all) == g.TriCount()*3, "whole mesh gathered")
	assertTrue(t, len(areas) == g.TriCount(), "areas gathered")

	some, _ := cm.TrianglesInRect([2]float32{0.2, 0.2}, [2]float32{0.8, 0.8})
	assertTrue(t, len(some) >= 6, "cell triangles gathered")
	assertTrue(t, len(some) < len(all), "query prunes far chunks")

	none, _ := cm.TrianglesInRect([2]float32{50, 50}, [2]float32{60, 60})
	assertTrue(t, len(none) == 0, "nothing outside")
}
