// Package stl converts height fields into triangle meshes and writes them
// in the binary STL format.
package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Triangle is one facet of a mesh
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// Relief builds the top surface of a height field, two triangles for every
// 2x2 neighbourhood of samples
type Relief struct {
	data   []float64
	width  int
	height int

	xScale, yScale, zScale float32
}

// NewRelief creates a relief over row-major heights of the given dimensions
func NewRelief(data []float64, width, height int) *Relief {
	return &Relief{
		data:   data,
		width:  width,
		height: height,
		xScale: 1,
		yScale: 1,
		zScale: 1,
	}
}

// SetScale sets the physical size of one sample step along each axis
func (r *Relief) SetScale(x, y, z float32) {
	r.xScale = x
	r.yScale = y
	r.zScale = z
}

func (r *Relief) vertex(x, y int) [3]float32 {
	return [3]float32{
		float32(x) * r.xScale,
		float32(y) * r.yScale,
		float32(r.data[y*r.width+x]) * r.zScale,
	}
}

// GenerateTriangles returns the mesh, with normals facing +Z on flat ground
func (r *Relief) GenerateTriangles() []Triangle {
	if r.width < 2 || r.height < 2 || len(r.data) < r.width*r.height {
		return nil
	}

	triangles := make([]Triangle, 0, 2*(r.width-1)*(r.height-1))
	for y := 0; y < r.height-1; y++ {
		for x := 0; x < r.width-1; x++ {
			v00 := r.vertex(x, y)
			v10 := r.vertex(x+1, y)
			v01 := r.vertex(x, y+1)
			v11 := r.vertex(x+1, y+1)

			triangles = append(triangles,
				newTriangle(v00, v10, v01),
				newTriangle(v10, v11, v01),
			)
		}
	}

	return triangles
}

func newTriangle(a, b, c [3]float32) Triangle {
	return Triangle{
		Normal:  normal(a, b, c),
		Vertex1: a,
		Vertex2: b,
		Vertex3: c,
	}
}

// normal is the unit vector of (b-a) x (c-a)
func normal(a, b, c [3]float32) [3]float32 {
	ux, uy, uz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
	vx, vy, vz := c[0]-a[0], c[1]-a[1], c[2]-a[2]

	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx

	mag := float32(math.Sqrt(float64(nx*nx + ny*ny + nz*nz)))
	if mag == 0 {
		return [3]float32{}
	}
	return [3]float32{nx / mag, ny / mag, nz / mag}
}

// WriteBinary writes triangles as a binary STL stream
func WriteBinary(w io.Writer, triangles []Triangle) error {
	bw := bufio.NewWriter(w)

	var header [80]byte
	copy(header[:], "scanstereo relief")
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return err
	}

	for _, t := range triangles {
		for _, v := range [][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
			if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		// attribute byte count
		if err := binary.Write(bw, binary.LittleEndian, uint16(0)); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// SaveBinary writes triangles to an STL file
func SaveBinary(path string, triangles []Triangle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create STL directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}

	if err := WriteBinary(file, triangles); err != nil {
		file.Close()
		return fmt.Errorf("failed to write STL data: %w", err)
	}
	return file.Close()
}
