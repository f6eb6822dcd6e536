package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }

// NopSeekCloser wraps in-memory fixtures for decoders that take ownership
func NopSeekCloser(rs io.ReadSeeker) io.ReadSeekCloser {
	return nopSeekCloser{rs}
}

var (
	monoU8    = Format{Channels: 1, SampleRate: 22050, SampleFormat: FormatU8}
	stereoU8  = Format{Channels: 2, SampleRate: 22050, SampleFormat: FormatU8}
	monoS16   = Format{Channels: 1, SampleRate: 44100, SampleFormat: FormatS16LE}
	stereoS16 = Format{Channels: 2, SampleRate: 44100, SampleFormat: FormatS16LE}
)

// rampPCM returns frames of distinct, deterministic sample bytes
func rampPCM(format Format, frames int) []byte {
	data := make([]byte, frames*format.FrameSize())
	for i := range data {
		data[i] = byte(i*7 + i/3)
	}
	return data
}

type wavChunk struct {
	tag  string
	data []byte
}

// buildWav assembles a RIFF/WAVE file. Extra chunks are placed between the format
// and data chunks; odd-sized chunks get a pad byte.
func buildWav(format Format, pcm []byte, extra ...wavChunk) []byte {
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], 1)
	binary.LittleEndian.PutUint16(fmtChunk[2:], uint16(format.Channels))
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(format.SampleRate*format.FrameSize()))
	binary.LittleEndian.PutUint16(fmtChunk[12:], uint16(format.FrameSize()))
	binary.LittleEndian.PutUint16(fmtChunk[14:], uint16(format.SampleFormat.Bits()))

	chunks := []wavChunk{{"fmt ", fmtChunk}}
	chunks = append(chunks, extra...)
	chunks = append(chunks, wavChunk{"data", pcm})
	return buildRiff(chunks...)
}

func buildRiff(chunks ...wavChunk) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, c := range chunks {
		body.WriteString(c.tag)
		binary.Write(&body, binary.LittleEndian, uint32(len(c.data)))
		body.Write(c.data)
		if len(c.data)%2 == 1 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func mustBuffer(t *testing.T, format Format, data []byte) *BufferSource {
	t.Helper()
	src, err := NewBufferSource(format, data)
	if err != nil {
		t.Fatalf("NewBufferSource(%s) failed: %v", format, err)
	}
	return src
}

// readAll drains src in chunks of chunkFrames
func readAll(src SampleSource, chunkFrames int) []byte {
	fs := src.Format().FrameSize()
	buf := make([]byte, chunkFrames*fs)
	var out []byte
	for {
		n := src.Read(buf, chunkFrames)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n*fs]...)
	}
}

// constantSource is an unseekable source that repeats one frame for a fixed count
type constantSource struct {
	unseekable
	format Format
	frame  []byte
	left   int
	closed bool
}

func newConstantSource(format Format, frame []byte, frames int) *constantSource {
	return &constantSource{format: format, frame: frame, left: frames}
}

func (c *constantSource) Format() Format { return c.format }

func (c *constantSource) Read(buf []byte, frames int) int {
	fs := c.format.FrameSize()
	frames = min(clampFrames(buf, frames, fs), c.left)
	for i := 0; i < frames; i++ {
		copy(buf[i*fs:], c.frame)
	}
	c.left -= frames
	return frames
}

func (c *constantSource) Reset() {}

func (c *constantSource) Close() error {
	c.closed = true
	return nil
}

func u8Frame(v byte) []byte { return []byte{v} }

func s16Frame(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}
