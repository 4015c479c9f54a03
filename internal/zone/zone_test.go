package zone

import "testing"

func TestZonesIteration(t *testing.T) {
	zs := Zones(0).With(LeftEye).With(Mouth)
	var got []Zone
	for z := First(zs); z < Count; z = Next(zs, z) {
		got = append(got, z)
	}
	want := []Zone{LeftEye, Mouth}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestZonesEmpty(t *testing.T) {
	if First(0) != Count {
		t.Fatalf("First(0) = %v, want Count", First(0))
	}
	if !Zones(0).Empty() {
		t.Fatal("Zones(0) should be Empty")
	}
}

func TestZonesHasWithWithout(t *testing.T) {
	zs := Of(RightEye)
	if !zs.Has(RightEye) {
		t.Fatal("expected RightEye to be a member")
	}
	if zs.Has(LeftEye) {
		t.Fatal("did not expect LeftEye to be a member")
	}
	zs = zs.With(LeftEye)
	if !zs.Has(LeftEye) || !zs.Has(RightEye) {
		t.Fatalf("expected both eyes, got %#x", uint8(zs))
	}
	zs = zs.Without(RightEye)
	if zs.Has(RightEye) {
		t.Fatal("RightEye should have been removed")
	}
}

func TestEyesConstant(t *testing.T) {
	if !Eyes.Has(LeftEye) || !Eyes.Has(RightEye) || Eyes.Has(Mouth) {
		t.Fatalf("Eyes = %#x is not exactly {LeftEye, RightEye}", uint8(Eyes))
	}
}

func TestParamZoneMapping(t *testing.T) {
	cases := []struct {
		p    Param
		zone Zone
	}{
		{EyeLookOutLeft, LeftEye},
		{EyeClosedLeft, LeftEye},
		{EyeLookOutRight, RightEye},
		{EyeClosedRight, RightEye},
		{CheekPuffLeft, Mouth},
		{TongueTwistRight, Mouth},
	}
	for _, c := range cases {
		if got := ZoneOf(c.p); got != c.zone {
			t.Errorf("ZoneOf(%v) = %v, want %v", c.p, got, c.zone)
		}
	}
}

func TestParamCounts(t *testing.T) {
	if EyeParamCount != 5 {
		t.Errorf("EyeParamCount = %d, want 5", EyeParamCount)
	}
	if EyeOutputLen != 3 {
		t.Errorf("EyeOutputLen = %d, want 3", EyeOutputLen)
	}
	if MouthParamCount != 45 {
		t.Errorf("MouthParamCount = %d, want 45", MouthParamCount)
	}
	if int(ParamCount) != 55 {
		t.Errorf("ParamCount = %d, want 55", int(ParamCount))
	}
	if OutputLen(LeftEye) != EyeOutputLen || OutputLen(RightEye) != EyeOutputLen {
		t.Errorf("OutputLen for eyes should equal EyeOutputLen, not the 5-entry param taxonomy")
	}
	if OutputLen(Mouth) != MouthParamCount {
		t.Errorf("OutputLen(Mouth) = %d, want %d", OutputLen(Mouth), MouthParamCount)
	}
}

func TestFirstParam(t *testing.T) {
	if FirstParam(LeftEye) != EyeLookOutLeft {
		t.Errorf("FirstParam(LeftEye) = %v, want EyeLookOutLeft", FirstParam(LeftEye))
	}
	if FirstParam(RightEye) != EyeLookOutRight {
		t.Errorf("FirstParam(RightEye) = %v, want EyeLookOutRight", FirstParam(RightEye))
	}
	if FirstParam(Mouth) != CheekPuffLeft {
		t.Errorf("FirstParam(Mouth) = %v, want CheekPuffLeft", FirstParam(Mouth))
	}
}

func TestParamStringInvalid(t *testing.T) {
	if Param(-1).String() != "Invalid" {
		t.Error("negative Param should stringify as Invalid")
	}
	if ParamCount.String() != "Invalid" {
		t.Error("ParamCount itself is out of range and should stringify as Invalid")
	}
}
