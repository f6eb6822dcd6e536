package audio

import (
	"encoding/binary"
	"math"
)

// Samples are widened to the signed 16-bit scale while mixing. U8 is centered on 128
// and shifted up by 8 bits.

func loadSample(buf []byte, sf SampleFormat, i int) int32 {
	switch sf {
	case FormatU8:
		return (int32(buf[i]) - 128) << 8
	case FormatS16LE:
		return int32(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return 0
}

func storeSample(buf []byte, sf SampleFormat, i int, v int32) {
	v = clampS16(v)
	switch sf {
	case FormatU8:
		buf[i] = byte((v >> 8) + 128)
	case FormatS16LE:
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
}

func clampS16(v int32) int32 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return v
}

// channelSample returns the value for output channel ch from one source frame:
// mono is duplicated, a mono output averages every input channel, and extra
// channels wrap.
func channelSample(frame []byte, src Format, ch, outChannels int) int32 {
	switch {
	case src.Channels == 1:
		return loadSample(frame, src.SampleFormat, 0)
	case outChannels == 1:
		var sum int32
		for c := 0; c < src.Channels; c++ {
			sum += loadSample(frame, src.SampleFormat, c)
		}
		return sum / int32(src.Channels)
	default:
		return loadSample(frame, src.SampleFormat, ch%src.Channels)
	}
}

// ConvertFrames converts frames from src layout into dst layout. Sample rates are not
// touched. dst must hold frames*to.FrameSize() bytes.
func ConvertFrames(dst []byte, to Format, src []byte, from Format, frames int) {
	inSize := from.FrameSize()
	for f := 0; f < frames; f++ {
		frame := src[f*inSize : (f+1)*inSize]
		for ch := 0; ch < to.Channels; ch++ {
			storeSample(dst, to.SampleFormat, f*to.Channels+ch, channelSample(frame, from, ch, to.Channels))
		}
	}
}

// intsToS16 narrows or widens signed integer samples of the given bit depth to
// little-endian 16-bit PCM
func intsToS16(data []int, bitDepth int) []byte {
	out := make([]byte, len(data)*2)
	for i, v := range data {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(scaleTo16(int64(v), bitDepth))))
	}
	return out
}

func scaleTo16(v int64, bitDepth int) int64 {
	switch {
	case bitDepth > 16:
		return v >> (bitDepth - 16)
	case bitDepth < 16 && bitDepth > 0:
		return v << (16 - bitDepth)
	}
	return v
}

// floatToS16 maps [-1, 1] to the full 16-bit range, clipping overs
func floatToS16(f float64) int16 {
	v := math.Round(f * math.MaxInt16)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
