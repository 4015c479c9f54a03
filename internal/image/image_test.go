package image

import (
	"testing"

	"github.com/Brownie44l1/babble-runtime/internal/zone"
)

func grayDescriptor(width, height uint32) Descriptor {
	return Descriptor{
		Data:      make([]byte, int(width)*int(height)),
		Size:      [2]uint32{width, height},
		Stride:    [2]uint{1, uint(width)},
		Planes:    [4]Plane{{Offset: 0, Weight: 1}},
		Transform: Identity,
		Zone:      zone.Mouth,
	}
}

func TestValidAcceptsExactFit(t *testing.T) {
	d := grayDescriptor(4, 4)
	if !d.Valid() {
		t.Fatal("expected exact-fit descriptor to be valid")
	}
}

func TestValidRejectsTooSmallBuffer(t *testing.T) {
	d := grayDescriptor(4, 4)
	d.Data = d.Data[:len(d.Data)-1]
	if d.Valid() {
		t.Fatal("expected undersized buffer to be rejected")
	}
}

func TestValidRejectsZeroSize(t *testing.T) {
	d := grayDescriptor(0, 4)
	if d.Valid() {
		t.Fatal("expected zero width to be rejected")
	}
	d = grayDescriptor(4, 0)
	if d.Valid() {
		t.Fatal("expected zero height to be rejected")
	}
}

func TestValidRejectsPlaneOffsetOverflow(t *testing.T) {
	d := grayDescriptor(4, 4)
	d.Planes[0].Offset = uint(len(d.Data))
	if d.Valid() {
		t.Fatal("expected out-of-range plane offset to be rejected")
	}
}

func TestValidRejectsStrideOverflow(t *testing.T) {
	d := grayDescriptor(4, 4)
	d.Stride[1] = ^uint(0)
	if d.Valid() {
		t.Fatal("expected overflowing stride computation to be rejected")
	}
}

func TestValidMultiPlane(t *testing.T) {
	// 4x4 BGRx buffer, stride 4 bytes per pixel.
	d := Descriptor{
		Data:   make([]byte, 4*4*4),
		Size:   [2]uint32{4, 4},
		Stride: [2]uint{4, 16},
		Planes: [4]Plane{
			{Offset: 0, Weight: 0.114},
			{Offset: 1, Weight: 0.587},
			{Offset: 2, Weight: 0.299},
		},
		Transform: Identity,
		Zone:      zone.LeftEye,
	}
	if !d.Valid() {
		t.Fatal("expected valid multi-plane descriptor to pass")
	}
}
