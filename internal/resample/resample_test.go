package resample

import (
	"testing"

	"github.com/Brownie44l1/babble-runtime/internal/image"
	"github.com/Brownie44l1/babble-runtime/internal/zone"
)

func solidGray(width, height uint32, value byte) *image.Descriptor {
	data := make([]byte, int(width)*int(height))
	for i := range data {
		data[i] = value
	}
	return &image.Descriptor{
		Data:      data,
		Size:      [2]uint32{width, height},
		Stride:    [2]uint{1, uint(width)},
		Planes:    [4]image.Plane{{Offset: 0, Weight: 1}},
		Transform: image.Identity,
		Zone:      zone.Mouth,
	}
}

func TestToIdentitySquareUpscale(t *testing.T) {
	src := solidGray(2, 2, 255)
	buf := make([]float32, 4*4)
	if !To(src, buf, len(buf), 4, 4) {
		t.Fatal("expected resample to succeed")
	}
	for i, v := range buf {
		if v <= 0 {
			t.Fatalf("buf[%d] = %v, expected a nonzero sample from a solid-white source", i, v)
		}
	}
}

func TestToRejectsEmptySource(t *testing.T) {
	src := solidGray(0, 4, 128)
	buf := make([]float32, 16)
	if To(src, buf, len(buf), 4, 4) {
		t.Fatal("expected resample of a zero-width source to fail")
	}
}

func TestToRejectsZeroTarget(t *testing.T) {
	src := solidGray(4, 4, 128)
	buf := make([]float32, 16)
	if To(src, buf, len(buf), 0, 4) {
		t.Fatal("expected resample to a zero-width target to fail")
	}
}

func TestToRejectsInvalidDescriptor(t *testing.T) {
	src := solidGray(4, 4, 128)
	src.Data = src.Data[:2] // too small for declared geometry
	buf := make([]float32, 16)
	if To(src, buf, len(buf), 4, 4) {
		t.Fatal("expected resample of an invalid descriptor to fail")
	}
}

func TestToNonSquareTargetStaysInRange(t *testing.T) {
	src := solidGray(4, 4, 255)
	buf := make([]float32, 8*4)
	if !To(src, buf, len(buf), 8, 4) {
		t.Fatal("expected resample to succeed")
	}
	for i, v := range buf {
		if v < 0 || v > 1 {
			t.Fatalf("buf[%d] = %v, want a value in [0,1]", i, v)
		}
	}
}

func TestRoundToLongAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float32
		want int64
	}{
		{0.5, 1},
		{-0.5, -1},
		{1.5, 2},
		{-1.5, -2},
		{0.4, 0},
		{-0.4, 0},
	}
	for _, c := range cases {
		if got := roundToLong(c.in); got != c.want {
			t.Errorf("roundToLong(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
