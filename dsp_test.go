package sfzcore

import (
	"math"
	"testing"
)

func TestFillAndApplyGain(t *testing.T) {
	out := make([]float64, 4)
	fill(2, out)
	for i, v := range out {
		if v != 2 {
			t.Errorf("fill: out[%d] = %f, want 2", i, v)
		}
	}

	in := []float64{1, 2, 3, 4}
	applyGain1(0.5, in, out)
	want := []float64{0.5, 1, 1.5, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("applyGain1: out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestMultiplyAdd(t *testing.T) {
	out := []float64{1, 1, 1}
	in := []float64{1, 2, 3}
	multiplyAdd1(2, in, out)
	want := []float64{3, 5, 7}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("multiplyAdd1: out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestLinearRamp(t *testing.T) {
	out := make([]float64, 5)
	end := linearRamp(out, 1, 0.5)
	want := []float64{1, 1.5, 2, 2.5, 3}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("linearRamp: out[%d] = %f, want %f", i, out[i], want[i])
		}
	}
	if end != 3.5 {
		t.Errorf("linearRamp returned %f, want 3.5", end)
	}
}

func TestCumsumDiffRoundTrip(t *testing.T) {
	in := []float64{1, 2, 3, 4}
	summed := make([]float64, 4)
	cumsum(in, summed)
	if summed[3] != 10 {
		t.Errorf("cumsum final = %f, want 10", summed[3])
	}
	back := make([]float64, 4)
	diff(summed, back)
	for i := range in {
		if math.Abs(back[i]-in[i]) > 1e-9 {
			t.Errorf("diff(cumsum(in))[%d] = %f, want %f", i, back[i], in[i])
		}
	}
}

func TestClampAllAndAllWithin(t *testing.T) {
	v := []float64{-1, 0.5, 2}
	clampAll(v, 0, 1)
	want := []float64{0, 0.5, 1}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("clampAll[%d] = %f, want %f", i, v[i], want[i])
		}
	}
	if !allWithin(v, 0, 1) {
		t.Error("allWithin should be true after clamping")
	}
}

func TestPanEqualPowerCenter(t *testing.T) {
	l := []float64{1}
	r := []float64{1}
	pan([]float64{0}, l, r)
	if math.Abs(l[0]-r[0]) > 1e-9 {
		t.Errorf("centered pan should be equal L/R, got L=%f R=%f", l[0], r[0])
	}
	// equal power: L^2 + R^2 == 1 at center
	if math.Abs(l[0]*l[0]+r[0]*r[0]-1) > 1e-9 {
		t.Errorf("pan should preserve power at center, got L^2+R^2=%f", l[0]*l[0]+r[0]*r[0])
	}
}

func TestPanHardLeftRight(t *testing.T) {
	gl, gr := panGains(-1)
	if math.Abs(gl-1) > 1e-9 || gr > 1e-9 {
		t.Errorf("hard left should be gl=1,gr=0, got gl=%f gr=%f", gl, gr)
	}
	gl, gr = panGains(1)
	if gl > 1e-9 || math.Abs(gr-1) > 1e-9 {
		t.Errorf("hard right should be gl=0,gr=1, got gl=%f gr=%f", gl, gr)
	}
}

func TestInterpolateLinear(t *testing.T) {
	buf := []float64{0, 10, 20, 30}
	v := interpolate(InterpLinear, buf, 1, 0.5)
	if v != 15 {
		t.Errorf("linear interpolate at 1.5 = %f, want 15", v)
	}
}

func TestInterpolateNearest(t *testing.T) {
	buf := []float64{0, 10, 20, 30}
	if v := interpolate(InterpNearest, buf, 1, 0.2); v != 10 {
		t.Errorf("nearest at 1.2 = %f, want 10", v)
	}
	if v := interpolate(InterpNearest, buf, 1, 0.8); v != 20 {
		t.Errorf("nearest at 1.8 = %f, want 20", v)
	}
}

func TestInterpolateHermite3IdentityAtIntegerPosition(t *testing.T) {
	// Hermite3's coefficient c0 is exactly y0, so interpolate(...,0) is a
	// true identity regardless of the neighboring samples' shape.
	buf := []float64{3, -7, 11, 2, 19, -4}
	for i := 0; i < len(buf); i++ {
		v := interpolate(InterpHermite3, buf, i, 0)
		if v != buf[i] {
			t.Errorf("hermite3 at integer position %d = %f, want %f", i, v, buf[i])
		}
	}
}

func TestInterpolateBspline3IdentityOnLinearData(t *testing.T) {
	// Bspline3 at x=0 evaluates to (ym1 + 4*y0 + y1)/6, which only reduces
	// to y0 when the neighbors satisfy ym1+y1 == 2*y0 (locally linear or
	// flat data).
	buf := []float64{0, 10, 20, 30, 40}
	for i := 1; i < len(buf)-1; i++ {
		v := interpolate(InterpBspline3, buf, i, 0)
		if math.Abs(v-buf[i]) > 1e-9 {
			t.Errorf("bspline3 at integer position %d on linear data = %f, want %f", i, v, buf[i])
		}
	}
}

func TestInterpolateBspline3NotIdentityOnNonlinearData(t *testing.T) {
	// Unlike Hermite3, Bspline3 is a smoothing spline: at an integer
	// position it blends in the neighboring samples, so it does not
	// reproduce buf[i] exactly when the data isn't locally linear.
	buf := []float64{0, 10, 0, 10, 0}
	v := interpolate(InterpBspline3, buf, 2, 0)
	if math.Abs(v-buf[2]) < 1e-9 {
		t.Error("bspline3 should not reproduce buf[i] exactly on non-locally-linear data")
	}
	want := (buf[1] + 4*buf[2] + buf[3]) / 6
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("bspline3 at integer position = %f, want %f", v, want)
	}
}

func TestSampleAtOutOfBounds(t *testing.T) {
	buf := []float64{1, 2, 3}
	if sampleAt(buf, -1) != 0 {
		t.Error("sampleAt below range should return 0")
	}
	if sampleAt(buf, 10) != 0 {
		t.Error("sampleAt above range should return 0")
	}
}

func TestDb2MagRoundTrip(t *testing.T) {
	mag := db2mag(-6)
	db := mag2db(mag)
	if math.Abs(db-(-6)) > 1e-6 {
		t.Errorf("mag2db(db2mag(-6)) = %f, want -6", db)
	}
	if mag2db(0) != math.Inf(-1) {
		t.Error("mag2db(0) should be -Inf")
	}
}

func TestCentsAndSemitonesToRatio(t *testing.T) {
	if math.Abs(centsToRatio(1200)-2) > 1e-9 {
		t.Errorf("centsToRatio(1200) = %f, want 2", centsToRatio(1200))
	}
	if math.Abs(semitonesToRatio(12)-2) > 1e-9 {
		t.Errorf("semitonesToRatio(12) = %f, want 2", semitonesToRatio(12))
	}
}

func TestReadWriteInterleaved(t *testing.T) {
	interleaved := []float64{1, 2, 3, 4, 5, 6}
	l := make([]float64, 3)
	r := make([]float64, 3)
	readInterleaved(interleaved, l, r)
	if l[0] != 1 || r[0] != 2 || l[2] != 5 || r[2] != 6 {
		t.Errorf("readInterleaved produced l=%v r=%v", l, r)
	}
	out := make([]float64, 6)
	writeInterleaved(l, r, out)
	for i := range interleaved {
		if out[i] != interleaved[i] {
			t.Errorf("writeInterleaved round-trip mismatch at %d: got %f want %f", i, out[i], interleaved[i])
		}
	}
}

func TestClampFloat(t *testing.T) {
	if clampFloat(-5, 0, 10) != 0 {
		t.Error("clampFloat should clamp below range")
	}
	if clampFloat(15, 0, 10) != 10 {
		t.Error("clampFloat should clamp above range")
	}
	if clampFloat(5, 0, 10) != 5 {
		t.Error("clampFloat should pass through in-range values")
	}
}
