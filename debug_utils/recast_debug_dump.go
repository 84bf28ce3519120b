package debug_utils

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gorustyt/irrnav/recast"
)

// DuDumpPolyMeshDetailToObj writes the detail mesh as a Wavefront OBJ.
func DuDumpPolyMeshDetailToObj(dmesh *recast.RcPolyMeshDetail, w io.Writer) error {
	if dmesh == nil {
		return fmt.Errorf("dump detail mesh: nil mesh")
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Recast Navmesh\n")
	fmt.Fprintf(bw, "o NavMesh\n\n")

	for i := 0; i+2 < len(dmesh.Verts); i += 3 {
		v := dmesh.Verts[i:]
		fmt.Fprintf(bw, "v %f %f %f\n", v[0], v[1], v[2])
	}
	fmt.Fprintf(bw, "\n")

	for _, m := range dmesh.Meshes {
		bverts, btris, ntris := m[0], m[2], m[3]
		for j := uint32(0); j < ntris; j++ {
			t := dmesh.Tris[(btris+j)*4:]
			fmt.Fprintf(bw, "f %d %d %d\n", bverts+uint32(t[0])+1, bverts+uint32(t[1])+1, bverts+uint32(t[2])+1)
		}
	}
	return bw.Flush()
}

// DuDumpDebugMeshToObj writes a collected debug mesh as a Wavefront OBJ.
func DuDumpDebugMeshToObj(mesh *DebugMesh, name string, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "o %s\n", name)
	for _, v := range mesh.Vertices {
		fmt.Fprintf(bw, "v %f %f %f\n", v[0], v[1], v[2])
	}
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		fmt.Fprintf(bw, "f %d %d %d\n", mesh.Indices[i]+1, mesh.Indices[i+1]+1, mesh.Indices[i+2]+1)
	}
	for i := 0; i+1 < len(mesh.Lines); i += 2 {
		fmt.Fprintf(bw, "l %d %d\n", mesh.Lines[i]+1, mesh.Lines[i+1]+1)
	}
	return bw.Flush()
}
