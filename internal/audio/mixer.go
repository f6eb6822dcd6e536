package audio

import (
	"log/slog"
)

// mixer sums stream output into one buffer in the device format. It is driven under
// the device lock.
type mixer struct {
	format  Format
	frames  int
	acc     []int32
	scratch []byte
	out     []byte
	gains   []float32
}

func newMixer(format Format, frames int) *mixer {
	return &mixer{
		format: format,
		frames: frames,
		acc:    make([]int32, frames*format.Channels),
		out:    make([]byte, frames*format.FrameSize()),
		gains:  make([]float32, format.Channels),
	}
}

// mix pulls one buffer from every playing stream, scales it by stream and master
// volume, and returns the clamped sum. Streams that run short are stopped. With no
// playing streams the result is silence.
func (m *mixer) mix(streams []*Stream, master float32) []byte {
	clear(m.acc)
	for _, s := range streams {
		if s.playing {
			m.add(s, master)
		}
	}
	for i, v := range m.acc {
		storeSample(m.out, m.format.SampleFormat, i, v)
	}
	return m.out
}

func (m *mixer) add(s *Stream, master float32) {
	src := s.source.Format()
	frameSize := src.FrameSize()
	need := m.frames * frameSize
	if cap(m.scratch) < need {
		m.scratch = make([]byte, need)
	}
	buf := m.scratch[:need]

	n := ReadFull(s.source, buf, m.frames)
	s.framesPlayed += int64(n)
	if n < m.frames {
		s.playing = false
		slog.Debug("stream ran out of data, stopping", "frames", n, "wanted", m.frames)
	}
	if n == 0 {
		return
	}

	m.channelGains(s.volume*master, s.pan)
	outChannels := m.format.Channels
	for f := 0; f < n; f++ {
		frame := buf[f*frameSize : (f+1)*frameSize]
		for ch := 0; ch < outChannels; ch++ {
			v := channelSample(frame, src, ch, outChannels)
			m.acc[f*outChannels+ch] += int32(float32(v) * m.gains[ch])
		}
	}
}

// channelGains applies volume and a linear balance to the first two output channels
func (m *mixer) channelGains(volume, pan float32) {
	for ch := range m.gains {
		m.gains[ch] = volume
	}
	if len(m.gains) < 2 {
		return
	}
	if pan > 0 {
		m.gains[0] *= 1 - pan
	} else if pan < 0 {
		m.gains[1] *= 1 + pan
	}
}
