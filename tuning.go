package sfzcore

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/GeoffreyPlitt/debuggo"
)

var tuningDebug = debuggo.Debug("sfzcore:tuning")

// Tuning maps MIDI key numbers to playback frequencies, combining an
// optional Scala scale (relative to a root key) with standard 12-TET and an
// optional Railsback-style stretch curve, per §6's Scala tuning surface.
type Tuning struct {
	degreesCents    []float64 // cents above the root for each scale degree, degree 0 = unison
	rootKey         int
	tuningFrequency float64 // Hz for A4 (or whichever key concert pitch is keyed to)
	stretchRatio    float64 // 0 = no stretch; see loadStretchTuningByRatio
	scalaFilePath   string  // empty if the loaded scale didn't come from a file
}

// NewTuning returns standard 12-TET tuning at A440 with no stretch.
func NewTuning() *Tuning {
	return &Tuning{
		degreesCents:    standard12TET(),
		rootKey:         60,
		tuningFrequency: 440.0,
	}
}

// standard12TET lays the default scale out like a parsed .scl file: unison
// plus 12 degrees, the last being the 1200-cent octave.
func standard12TET() []float64 {
	d := make([]float64, 13)
	for i := range d {
		d[i] = float64(i) * 100
	}
	return d
}

// LoadScalaFile loads a .scl scale definition. Returns false (tuning
// unchanged) on any parse error, per §7's tuning-error policy.
func (t *Tuning) LoadScalaFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		tuningDebug("failed to open scala file %s: %v", path, err)
		return false
	}
	defer f.Close()
	degrees, err := parseScalaScanner(bufio.NewScanner(f))
	if err != nil {
		tuningDebug("failed to parse scala file %s: %v", path, err)
		return false
	}
	t.degreesCents = degrees
	t.scalaFilePath = path
	return true
}

// LoadScalaString is LoadScalaFile's in-memory counterpart. It does not
// change ScalaFilePath, since the scale didn't come from a file.
func (t *Tuning) LoadScalaString(text string) bool {
	degrees, err := parseScalaScanner(bufio.NewScanner(strings.NewReader(text)))
	if err != nil {
		tuningDebug("failed to parse scala text: %v", err)
		return false
	}
	t.degreesCents = degrees
	return true
}

// ScalaFilePath returns the path last passed to LoadScalaFile, or "" if no
// scale was ever loaded from a file.
func (t *Tuning) ScalaFilePath() string { return t.scalaFilePath }

// parseScalaScanner implements the Scala .scl text format: '!'-prefixed
// comments, a description line, a note-count line, then one pitch per line
// expressed either in cents (a number containing a dot) or as an n/d or
// bare-integer ratio.
func parseScalaScanner(scanner *bufio.Scanner) ([]float64, error) {
	var dataLines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		dataLines = append(dataLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(dataLines) < 2 {
		return nil, fmt.Errorf("scala file too short")
	}
	// dataLines[0] is the description; dataLines[1] is the note count.
	count, err := strconv.Atoi(strings.Fields(dataLines[1])[0])
	if err != nil {
		return nil, fmt.Errorf("invalid note count: %w", err)
	}
	if len(dataLines)-2 < count {
		return nil, fmt.Errorf("expected %d pitch lines, found %d", count, len(dataLines)-2)
	}

	degrees := make([]float64, count+1)
	degrees[0] = 0 // unison
	for i := 0; i < count; i++ {
		cents, err := parseScalaPitch(strings.Fields(dataLines[2+i])[0])
		if err != nil {
			return nil, fmt.Errorf("pitch %d: %w", i+1, err)
		}
		degrees[i+1] = cents
	}
	return degrees, nil
}

func parseScalaPitch(tok string) (float64, error) {
	if strings.Contains(tok, "/") {
		parts := strings.SplitN(tok, "/", 2)
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, fmt.Errorf("invalid ratio %q", tok)
		}
		return 1200 * math.Log2(num/den), nil
	}
	if strings.Contains(tok, ".") {
		return strconv.ParseFloat(tok, 64)
	}
	// Bare integer: interpreted as an integer ratio n/1.
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid pitch %q", tok)
	}
	return 1200 * math.Log2(n), nil
}

// SetScalaRootKey sets which MIDI key the scale's degree 0 maps to.
func (t *Tuning) SetScalaRootKey(rootKey int) { t.rootKey = rootKey }

func (t *Tuning) ScalaRootKey() int { return t.rootKey }

// SetTuningFrequency sets the concert-pitch frequency standard 12-TET A4
// resolves to (and which anchors every other key's frequency).
func (t *Tuning) SetTuningFrequency(hz float64) {
	if hz > 0 {
		t.tuningFrequency = hz
	}
}

func (t *Tuning) TuningFrequency() float64 { return t.tuningFrequency }

// LoadStretchTuningByRatio applies a Railsback-curve-style stretch: ratio 0
// disables it, ratio 1 is the classic piano stretch curve, intermediate
// values interpolate linearly.
func (t *Tuning) LoadStretchTuningByRatio(ratio float64) {
	t.stretchRatio = clampFloat(ratio, 0, 1)
}

// StretchRatio returns the ratio last passed to LoadStretchTuningByRatio.
func (t *Tuning) StretchRatio() float64 { return t.stretchRatio }

// railsbackCents approximates the classic piano stretch-tuning deviation in
// cents for a key distance from the tuning reference (A4=69): compressed in
// the midrange, sharp in the treble, flat in the bass.
func railsbackCents(semitonesFromA4 float64) float64 {
	return 0.0003 * semitonesFromA4 * semitonesFromA4 * sign(semitonesFromA4)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	if v > 0 {
		return 1
	}
	return 0
}

// FrequencyForKey returns the playback frequency for a MIDI key, applying
// the loaded scale relative to rootKey (12-TET by default), anchored so that
// A4 sounds at tuningFrequency, and any stretch tuning.
func (t *Tuning) FrequencyForKey(key int) float64 {
	degreeCount := len(t.degreesCents) - 1
	if degreeCount <= 0 {
		degreeCount = 12
	}
	distance := key - t.rootKey
	octave := floorDiv(distance, degreeCount)
	degree := distance - octave*degreeCount
	cents := float64(octave*1200) + t.degreesCents[degree%len(t.degreesCents)]

	rootFreq := t.tuningFrequency * math.Pow(2, float64(t.rootKey-69)/12)
	freq := rootFreq * math.Pow(2, cents/1200)

	if t.stretchRatio > 0 {
		freq *= math.Pow(2, t.stretchRatio*railsbackCents(float64(key)-69)/1200)
	}
	return freq
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
