package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// ToneRate is the sample rate of every generated source
const ToneRate = 44100

// Waveform selects the function a ToneSource evaluates
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveWhiteNoise
	WavePinkNoise
)

const (
	noiseSeed = 0x7FFFFF // 23-bit LFSR seed
	noiseMask = 0x7FFFFF
	pinkRows  = 16
)

var waveformNames = map[Waveform]string{
	WaveSine:       "sine",
	WaveSquare:     "square",
	WaveWhiteNoise: "white",
	WavePinkNoise:  "pink",
}

func (w Waveform) String() string {
	if name, ok := waveformNames[w]; ok {
		return name
	}
	return fmt.Sprintf("waveform(%d)", int(w))
}

// ParseWaveform accepts sine, square, white and pink
func ParseWaveform(name string) (Waveform, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for w, n := range waveformNames {
		if n == name {
			return w, nil
		}
	}
	return 0, fmt.Errorf("unknown waveform %q", name)
}

// ToneSource is an unseekable mono 16-bit source computed from a sample counter.
// Reset restarts the counter, so the same samples come out again.
type ToneSource struct {
	unseekable
	wave      Waveform
	frequency float64
	elapsed   int64

	lfsr uint32
	rows [pinkRows]float64
	sum  float64
}

// NewTone returns a sine tone; frequency 0 produces silence
func NewTone(frequency float64) *ToneSource {
	return NewGenerator(WaveSine, frequency)
}

// NewGenerator returns a source for the given waveform. Frequency is ignored by the
// noise generators.
func NewGenerator(wave Waveform, frequency float64) *ToneSource {
	t := &ToneSource{wave: wave, frequency: frequency}
	t.Reset()
	return t
}

func (t *ToneSource) Format() Format {
	return Format{Channels: 1, SampleRate: ToneRate, SampleFormat: FormatS16LE}
}

func (t *ToneSource) Frequency() float64 { return t.frequency }
func (t *ToneSource) Waveform() Waveform { return t.wave }

func (t *ToneSource) Read(buf []byte, frames int) int {
	frames = clampFrames(buf, frames, 2)
	if t.frequency == 0 && (t.wave == WaveSine || t.wave == WaveSquare) {
		clear(buf[:frames*2])
		t.elapsed += int64(frames)
		return frames
	}
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(t.next()))
	}
	return frames
}

// Reset zeroes the sample counter and reseeds the noise generators
func (t *ToneSource) Reset() {
	t.elapsed = 0
	t.lfsr = noiseSeed
	t.sum = 0
	for i := range t.rows {
		t.rows[i] = 0
	}
}

func (t *ToneSource) Close() error { return nil }

// SampleAt returns the sample a sine or square source produces at counter value n
func (t *ToneSource) SampleAt(n int64) int16 {
	if t.frequency == 0 {
		return 0
	}
	switch t.wave {
	case WaveSquare:
		return normalToS16(squareAt(t.frequency, n))
	default:
		return normalToS16(math.Sin(2 * math.Pi * t.frequency / ToneRate * float64(n)))
	}
}

func (t *ToneSource) next() int16 {
	n := t.elapsed
	t.elapsed++
	switch t.wave {
	case WaveSine, WaveSquare:
		return t.SampleAt(n)
	case WaveWhiteNoise:
		return normalToS16(t.white())
	case WavePinkNoise:
		return normalToS16(t.pink(n))
	}
	return 0
}

func squareAt(frequency float64, n int64) float64 {
	period := ToneRate / frequency
	if math.Mod(float64(n), period) < period/2 {
		return 1
	}
	return -1
}

// white steps the 23-bit LFSR (taps 23,18) sixteen times and maps the fresh bits to [-1, 1]
func (t *ToneSource) white() float64 {
	for i := 0; i < 16; i++ {
		bit := ((t.lfsr >> 22) ^ (t.lfsr >> 17)) & 1
		t.lfsr = ((t.lfsr << 1) | bit) & noiseMask
	}
	return float64(t.lfsr&0xFFFF)/32767.5 - 1
}

// pink is the Voss-McCartney sum: row k is refreshed every 2^k samples
func (t *ToneSource) pink(n int64) float64 {
	if n > 0 {
		k := bits.TrailingZeros64(uint64(n))
		if k < pinkRows {
			v := t.white()
			t.sum += v - t.rows[k]
			t.rows[k] = v
		}
	}
	return (t.sum + t.white()) / (pinkRows + 1)
}

// normalToS16 maps [-1, 1] onto the half-scale range [-16384, 16383]
func normalToS16(d float64) int16 {
	d = (d + 1) / 2
	return int16(d*32767 - 16384)
}
