// Package zone defines the fixed set of camera zones the tracker ingests
// (left eye, right eye, mouth), the bitset over those zones, and the
// ordered expression-parameter taxonomy each zone's model output maps to.
package zone

import "math/bits"

// Zone identifies one physiological region fed by a camera.
type Zone uint8

const (
	LeftEye Zone = iota
	RightEye
	Mouth
	Count
)

func (z Zone) String() string {
	switch z {
	case LeftEye:
		return "LeftEye"
	case RightEye:
		return "RightEye"
	case Mouth:
		return "Mouth"
	default:
		return "Invalid"
	}
}

// Zones is a bitset over Zone, one bit per zone. The wire form is a
// single byte: 0x01 = LeftEye, 0x02 = RightEye, 0x04 = Mouth.
type Zones uint8

// Of builds a Zones bitset containing a single zone.
func Of(z Zone) Zones {
	return Zones(1 << uint(z))
}

// Has reports whether z is a member of zs.
func (zs Zones) Has(z Zone) bool {
	return zs&Of(z) != 0
}

// With returns zs with z added.
func (zs Zones) With(z Zone) Zones {
	return zs | Of(z)
}

// Without returns zs with z removed.
func (zs Zones) Without(z Zone) Zones {
	return zs &^ Of(z)
}

// Empty reports whether the bitset has no members.
func (zs Zones) Empty() bool {
	return zs == 0
}

// First returns the lowest-numbered zone in zs, or Count if zs is empty.
func First(zs Zones) Zone {
	return Zone(bits.TrailingZeros8(uint8(zs) | 1<<uint(Count)))
}

// Next returns the lowest-numbered zone in zs strictly greater than i, or
// Count if none remain. Callers iterate a Zones bitset as:
//
//	for z := zone.First(zs); z < zone.Count; z = zone.Next(zs, z) { ... }
func Next(zs Zones, i Zone) Zone {
	mask := Zones(^uint8(1) << uint(i))
	return Zone(bits.TrailingZeros8(uint8(zs&mask) | 1<<uint(Count)))
}

// Eyes is the only zone combination permitted to share a single executor
// session (spec.md §4.3 precondition 1).
const Eyes = Zones(1<<uint(LeftEye) | 1<<uint(RightEye))
