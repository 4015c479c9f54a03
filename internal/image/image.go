// Package image provides a read-only descriptor over an externally owned
// pixel buffer, carrying the affine transform and per-plane grayscale
// weighting the resampler needs. It owns no pixel storage: the buffer it
// describes must outlive the single push_frame call it is used in.
package image

import "github.com/Brownie44l1/babble-runtime/internal/zone"

// Plane describes one grayscale-contributing byte within a pixel: the
// sampled value accumulates data[pixelOrigin+Offset]*Weight across all
// four planes, then divides by 255. A single plane with Weight=1 models
// plain 8-bit grayscale; three planes with luma weights model BGRx;
// offsetting into the high byte of a 16-bit sample models 16-bit gray.
type Plane struct {
	Offset uint
	Weight float32
}

// Descriptor is a bit-packed view over an external byte buffer.
type Descriptor struct {
	Data    []byte
	Size    [2]uint32 // width, height in pixels
	Stride  [2]uint   // byte step per column, per row
	Planes  [4]Plane
	// Transform is a 3x2 affine matrix mapping normalized output
	// coordinates [0,1] to normalized source coordinates. Transform[0]
	// and Transform[1] are the two basis rows; Transform[2] is the
	// translation row, matching image_transform[3][2] in spec.md.
	Transform [3][2]float32
	Zone      zone.Zone
}

// Valid reports whether the descriptor's declared geometry fits within
// Data, per spec.md §3: (size[0]-1)*stride[0] + (size[1]-1)*stride[1] +
// max(plane.offset) must be strictly less than len(Data).
func (d *Descriptor) Valid() bool {
	if d.Size[0] == 0 || d.Size[1] == 0 {
		return false
	}
	lastCol, ok := mulOverflows(d.Stride[0], uint(d.Size[0]-1))
	if ok {
		return false
	}
	lastRow, ok := mulOverflows(d.Stride[1], uint(d.Size[1]-1))
	if ok {
		return false
	}
	lastPixel, ok := addOverflows(lastCol, lastRow)
	if ok || lastPixel >= uint(len(d.Data)) {
		return false
	}
	for _, p := range d.Planes {
		if uint(len(d.Data))-lastPixel <= p.Offset {
			return false
		}
	}
	return true
}

// mulOverflows returns a*b and whether the multiplication overflowed uint.
func mulOverflows(a, b uint) (uint, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	r := a * b
	return r, r/a != b
}

// addOverflows returns a+b and whether the addition overflowed uint.
func addOverflows(a, b uint) (uint, bool) {
	r := a + b
	return r, r < a
}

// Identity is the identity affine transform: output coordinates map
// unchanged onto source coordinates.
var Identity = [3][2]float32{
	{1, 0},
	{0, 1},
	{0, 0},
}
