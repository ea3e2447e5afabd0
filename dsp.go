package sfzcore

import (
	"math"

	"github.com/GeoffreyPlitt/debuggo"
)

var dspDebug = debuggo.Debug("sfzcore:dsp")

// InterpolatorKind selects one of the resampling kernels a Voice can use.
type InterpolatorKind int

const (
	InterpNearest InterpolatorKind = iota
	InterpLinear
	InterpHermite3
	InterpBspline3
)

// readInterleaved splits an interleaved stereo span into separate L/R spans.
func readInterleaved(in, l, r []float64) {
	n := len(l)
	if len(r) < n {
		n = len(r)
	}
	if len(in) < 2*n {
		n = len(in) / 2
	}
	for i := 0; i < n; i++ {
		l[i] = in[2*i]
		r[i] = in[2*i+1]
	}
}

// writeInterleaved combines separate L/R spans into an interleaved stereo span.
func writeInterleaved(l, r, out []float64) {
	n := len(l)
	if len(r) < n {
		n = len(r)
	}
	if len(out) < 2*n {
		n = len(out) / 2
	}
	for i := 0; i < n; i++ {
		out[2*i] = l[i]
		out[2*i+1] = r[i]
	}
}

func fill(v float64, out []float64) {
	for i := range out {
		out[i] = v
	}
}

func applyGain1(g float64, in, out []float64) {
	n := min(len(in), len(out))
	for i := 0; i < n; i++ {
		out[i] = in[i] * g
	}
}

func applyGain(gain, in, out []float64) {
	n := min(len(in), min(len(out), len(gain)))
	for i := 0; i < n; i++ {
		out[i] = in[i] * gain[i]
	}
}

func multiplyAdd1(g float64, in, out []float64) {
	n := min(len(in), len(out))
	for i := 0; i < n; i++ {
		out[i] += g * in[i]
	}
}

func multiplyAdd(gain, in, out []float64) {
	n := min(len(in), min(len(out), len(gain)))
	for i := 0; i < n; i++ {
		out[i] += gain[i] * in[i]
	}
}

// linearRamp fills out with an additive ramp starting at `start` stepping by
// `step`, and returns the value one step past the last written sample.
func linearRamp(out []float64, start, step float64) float64 {
	v := start
	for i := range out {
		out[i] = v
		v += step
	}
	return v
}

// multiplicativeRamp is linearRamp's multiplicative analogue.
func multiplicativeRamp(out []float64, start, mult float64) float64 {
	v := start
	for i := range out {
		out[i] = v
		v *= mult
	}
	return v
}

func add(in, out []float64) {
	n := min(len(in), len(out))
	for i := 0; i < n; i++ {
		out[i] += in[i]
	}
}

func subtract(in, out []float64) {
	n := min(len(in), len(out))
	for i := 0; i < n; i++ {
		out[i] -= in[i]
	}
}

func copySpan(in, out []float64) {
	copy(out, in)
}

// cumsum computes the running sum of in into out; out[0] = in[0].
func cumsum(in, out []float64) {
	if len(in) == 0 || len(out) == 0 {
		return
	}
	n := min(len(in), len(out))
	acc := 0.0
	for i := 0; i < n; i++ {
		acc += in[i]
		out[i] = acc
	}
}

// diff is cumsum's inverse: out[0] = in[0]; out[i] = in[i] - in[i-1].
func diff(in, out []float64) {
	if len(in) == 0 || len(out) == 0 {
		return
	}
	n := min(len(in), len(out))
	prev := 0.0
	for i := 0; i < n; i++ {
		out[i] = in[i] - prev
		prev = in[i]
	}
}

func clampAll(inout []float64, lo, hi float64) {
	for i, v := range inout {
		if v < lo {
			inout[i] = lo
		} else if v > hi {
			inout[i] = hi
		}
	}
}

func allWithin(in []float64, lo, hi float64) bool {
	for _, v := range in {
		if v < lo || v > hi {
			return false
		}
	}
	return true
}

func meanOf(in []float64) float64 {
	if len(in) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range in {
		sum += v
	}
	return sum / float64(len(in))
}

func meanSquared(in []float64) float64 {
	if len(in) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range in {
		sum += v * v
	}
	return sum / float64(len(in))
}

// pan applies an equal-power pan law per-frame: p in [-1, +1].
// gainL = cos((p+1)*pi/4), gainR = sin((p+1)*pi/4).
func pan(panSpan, l, r []float64) {
	n := min(len(panSpan), min(len(l), len(r)))
	for i := 0; i < n; i++ {
		p := panSpan[i]
		angle := (p + 1) * math.Pi / 4
		gl := math.Cos(angle)
		gr := math.Sin(angle)
		l[i] *= gl
		r[i] *= gr
	}
}

// panGains returns the equal-power L/R gains for a single pan value.
func panGains(p float64) (gl, gr float64) {
	angle := (p + 1) * math.Pi / 4
	return math.Cos(angle), math.Sin(angle)
}

// width applies a mid/side stereo width adjustment, width in [-1, +1].
func width(widthSpan, l, r []float64) {
	n := min(len(widthSpan), min(len(l), len(r)))
	for i := 0; i < n; i++ {
		w := (widthSpan[i] + 1) / 2
		mid := (l[i] + r[i]) * 0.5
		side := (l[i] - r[i]) * 0.5
		side *= w
		l[i] = mid + side
		r[i] = mid - side
	}
}

// interpolate samples buf at a fractional position i+frac using the given
// kernel. buf must have one guard sample before i and two after for Hermite3
// and Bspline3; callers are responsible for clamping access at source edges.
func interpolate(kind InterpolatorKind, buf []float64, i int, frac float64) float64 {
	switch kind {
	case InterpNearest:
		idx := i
		if frac >= 0.5 {
			idx++
		}
		return sampleAt(buf, idx)
	case InterpHermite3:
		return hermite3(sampleAt(buf, i-1), sampleAt(buf, i), sampleAt(buf, i+1), sampleAt(buf, i+2), frac)
	case InterpBspline3:
		return bspline3(sampleAt(buf, i-1), sampleAt(buf, i), sampleAt(buf, i+1), sampleAt(buf, i+2), frac)
	default: // InterpLinear
		return sampleAt(buf, i) + frac*(sampleAt(buf, i+1)-sampleAt(buf, i))
	}
}

func sampleAt(buf []float64, i int) float64 {
	if i < 0 || i >= len(buf) {
		return 0
	}
	return buf[i]
}

func hermite3(ym1, y0, y1, y2, x float64) float64 {
	c0 := y0
	c1 := 0.5 * (y1 - ym1)
	c2 := ym1 - 2.5*y0 + 2*y1 - 0.5*y2
	c3 := 0.5*(y2-ym1) + 1.5*(y0-y1)
	return ((c3*x+c2)*x+c1)*x + c0
}

func bspline3(ym1, y0, y1, y2, x float64) float64 {
	x2 := x * x
	x3 := x2 * x
	a := (-x3 + 3*x2 - 3*x + 1) / 6
	b := (3*x3 - 6*x2 + 4) / 6
	c := (-3*x3 + 3*x2 + 3*x + 1) / 6
	d := x3 / 6
	return a*ym1 + b*y0 + c*y1 + d*y2
}

func db2mag(db float64) float64 {
	return math.Pow(10, db/20)
}

func mag2db(mag float64) float64 {
	if mag <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(mag)
}

func centsToRatio(cents float64) float64 {
	return math.Pow(2, cents/1200)
}

func semitonesToRatio(semi float64) float64 {
	return math.Pow(2, semi/12)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
