// Package resample implements the bit-exact affine image resampler that
// feeds each zone's model input tensor (spec.md §4.1). It is deterministic,
// single-threaded per call, and allocates nothing.
package resample

import (
	"math"

	"github.com/Brownie44l1/babble-runtime/internal/image"
)

// To resamples img into buf (a destination of buf[:bufLen]) at the given
// target rectangle size, applying img's affine transform and letterbox
// centering. It reports false on any bounds-check failure, matching
// BabbleImage_resampleTo in the original runtime.
func To(img *image.Descriptor, buf []float32, bufLen int, width, height uint32) bool {
	if img.Size[0] == 0 || img.Size[1] == 0 || width == 0 || height == 0 || bufLen == 0 {
		return false
	}
	if !img.Valid() {
		return false
	}
	stride := bufLen / int(height)

	// Clearing the whole buffer zeroes any row elements past width (the
	// row stride may exceed width); the loop below writes every element
	// of the width x height rectangle, with 0 for letterbox/out-of-source
	// samples.
	for i := range buf[:bufLen] {
		buf[i] = 0
	}

	longest := height
	if width > height {
		longest = width
	}
	norm := 1 / float32(longest-1)
	var xoff, yoff float32
	if width > height {
		xoff = float32(width-height) * (0.5 * norm)
	} else if height > width {
		yoff = float32(height-width) * (0.5 * norm)
	}

	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			buf[int(y)*stride+int(x)] = sampleAt(img, float32(x)*norm+xoff, float32(y)*norm+yoff)
		}
	}
	return true
}

// sampleAt maps normalized output coordinates (u, v) through the image's
// affine transform to a source pixel and returns its weighted grayscale
// value, or 0 if the mapped pixel falls outside the source image.
func sampleAt(img *image.Descriptor, u, v float32) float32 {
	t := img.Transform
	up := t[0][0]*u + t[1][0]*v + t[2][0]
	vp := t[0][1]*u + t[1][1]*v + t[2][1]
	px := roundToLong(up * float32(img.Size[0]-1))
	py := roundToLong(vp * float32(img.Size[1]-1))
	if px < 0 || px >= int64(img.Size[0]) || py < 0 || py >= int64(img.Size[1]) {
		return 0
	}
	offset := uint(py)*img.Stride[1] + uint(px)*img.Stride[0]
	var sum float32
	for _, plane := range img.Planes {
		sum += float32(img.Data[offset+plane.Offset]) * plane.Weight
	}
	return sum * (1 / 255.0)
}

// roundToLong rounds to the nearest integer, matching C's llroundf:
// halfway cases round away from zero, not to even.
func roundToLong(f float32) int64 {
	d := float64(f)
	if d >= 0 {
		return int64(math.Floor(d + 0.5))
	}
	return int64(math.Ceil(d - 0.5))
}
