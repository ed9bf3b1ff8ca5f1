package sim

import "strconv"

// Surface describes one face of a simulated volume
type Surface struct {
	Planar   bool
	Vertices int
}

// Volume describes one body a simulated import produces
type Volume struct {
	Name     string
	Surfaces []Surface
}

// Part is what importing one CAD file produces
type Part struct {
	Volumes []Volume
	// Fused volumes touch each other, so uniting them yields one volume.
	// Disjoint volumes survive a unite as separate lumps.
	Fused bool
}

// Shell records the cubes a subtract consumed
type Shell struct {
	Inner float64
	Outer float64
}

// Box is a volume with six planar quadrilateral faces
func Box(name string) Volume {
	surfaces := make([]Surface, 6)
	for i := range surfaces {
		surfaces[i] = Surface{Planar: true, Vertices: 4}
	}
	return Volume{Name: name, Surfaces: surfaces}
}

// Wedge is a torus sector: two planar quad cut faces, curved inner and outer
// faces, and planar top and bottom faces bounded by curved edges.
func Wedge(name string) Volume {
	return Volume{
		Name: name,
		Surfaces: []Surface{
			{Planar: true, Vertices: 4},
			{Planar: true, Vertices: 4},
			{Planar: false, Vertices: 4},
			{Planar: false, Vertices: 4},
			{Planar: true, Vertices: 2},
			{Planar: true, Vertices: 2},
		},
	}
}

// Boxes is a part of n disjoint boxes named name@1..name@n
func Boxes(name string, n int) Part {
	p := Part{}
	for i := 1; i <= n; i++ {
		p.Volumes = append(p.Volumes, Box(name+"@"+strconv.Itoa(i)))
	}
	return p
}
