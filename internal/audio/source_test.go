package audio

import (
	"bytes"
	"errors"
	"testing"
)

func TestBufferSourceRoundTrip(t *testing.T) {
	formats := []Format{monoU8, stereoU8, monoS16, stereoS16}
	for _, format := range formats {
		t.Run(format.String(), func(t *testing.T) {
			data := rampPCM(format, 1000)
			src := mustBuffer(t, format, data)

			if src.Length() != 1000 {
				t.Errorf("expected length 1000, got %d", src.Length())
			}
			got := readAll(src, 333)
			if !bytes.Equal(got, data) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
			}
			if src.Position() != 1000 {
				t.Errorf("expected position 1000 after drain, got %d", src.Position())
			}
		})
	}
}

func TestBufferSourceDropsPartialFrame(t *testing.T) {
	src := mustBuffer(t, stereoS16, make([]byte, 4*10+3))
	if src.Length() != 10 {
		t.Errorf("expected 10 whole frames, got %d", src.Length())
	}
}

func TestBufferSourceResetReproducesFrames(t *testing.T) {
	src := mustBuffer(t, stereoS16, rampPCM(stereoS16, 500))
	first := make([]byte, 100*4)
	if n := src.Read(first, 100); n != 100 {
		t.Fatalf("expected 100 frames, got %d", n)
	}
	readAll(src, 64)

	src.Reset()
	again := make([]byte, 100*4)
	src.Read(again, 100)
	if !bytes.Equal(first, again) {
		t.Error("frames after Reset differ from the first read")
	}
}

func TestBufferSourceSetPositionClamps(t *testing.T) {
	src := mustBuffer(t, monoU8, rampPCM(monoU8, 50))

	tests := []struct {
		name   string
		target int
		want   int
	}{
		{"negative", -5, 0},
		{"inside", 20, 20},
		{"end", 50, 50},
		{"past end", 90, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src.SetPosition(tt.target)
			if src.Position() != tt.want {
				t.Errorf("SetPosition(%d): position %d, want %d", tt.target, src.Position(), tt.want)
			}
		})
	}
}

func TestBufferSourceClosedReadsNothing(t *testing.T) {
	src := mustBuffer(t, monoU8, rampPCM(monoU8, 10))
	src.Close()
	if n := src.Read(make([]byte, 10), 10); n != 0 {
		t.Errorf("expected 0 frames from closed source, got %d", n)
	}
}

func TestReadClampsToBuffer(t *testing.T) {
	src := mustBuffer(t, stereoS16, rampPCM(stereoS16, 100))
	buf := make([]byte, 4*10)
	if n := src.Read(buf, 50); n != 10 {
		t.Errorf("expected read bounded to 10 frames, got %d", n)
	}
}

func TestLoadBuffer(t *testing.T) {
	t.Run("drains and closes", func(t *testing.T) {
		inner := newConstantSource(monoU8, u8Frame(200), 300)
		buffered, err := LoadBuffer(inner, 10)
		if err != nil {
			t.Fatalf("LoadBuffer failed: %v", err)
		}
		if buffered.Length() != 300 {
			t.Errorf("expected 300 frames, got %d", buffered.Length())
		}
		if !inner.closed {
			t.Error("expected source to be closed after buffering")
		}
	})

	t.Run("too long leaves source open", func(t *testing.T) {
		tone := NewTone(440)
		_, err := LoadBuffer(tone, 1)
		if !errors.Is(err, ErrUnboundedSource) {
			t.Fatalf("expected ErrUnboundedSource, got %v", err)
		}
		buf := make([]byte, 4)
		tone.Read(buf, 2)
		if got := int16(uint16(buf[2]) | uint16(buf[3])<<8); got != tone.SampleAt(1) {
			t.Errorf("expected tone rewound for streaming, second sample %d want %d", got, tone.SampleAt(1))
		}
	})

	t.Run("seekable length over limit", func(t *testing.T) {
		src := mustBuffer(t, monoU8, make([]byte, 22050*3))
		if _, err := LoadBuffer(src, 2); !errors.Is(err, ErrUnboundedSource) {
			t.Errorf("expected ErrUnboundedSource, got %v", err)
		}
	})
}

func TestReadFull(t *testing.T) {
	src := NewRepeatSource(mustBuffer(t, monoU8, rampPCM(monoU8, 10)))
	buf := make([]byte, 25)
	if n := ReadFull(src, buf, 25); n != 10 {
		t.Errorf("expected 10 frames from non-repeating source, got %d", n)
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"mono u8", monoU8, false},
		{"stereo s16", stereoS16, false},
		{"no channels", Format{SampleRate: 44100, SampleFormat: FormatU8}, true},
		{"no rate", Format{Channels: 2, SampleFormat: FormatS16LE}, true},
		{"unknown sample format", Format{Channels: 2, SampleRate: 44100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestFormatSizes(t *testing.T) {
	if stereoS16.FrameSize() != 4 || monoU8.FrameSize() != 1 {
		t.Errorf("unexpected frame sizes %d, %d", stereoS16.FrameSize(), monoU8.FrameSize())
	}
	if stereoU8.SilenceByte() != 0x80 || stereoS16.SilenceByte() != 0 {
		t.Error("unexpected silence bytes")
	}
	if d := stereoS16.Duration(44100); d.Seconds() != 1 {
		t.Errorf("expected 1s, got %v", d)
	}
	if f := stereoS16.Frames(stereoS16.Duration(4410)); f != 4410 {
		t.Errorf("expected 4410 frames, got %d", f)
	}
	if _, err := SampleFormatFromBits(24); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected 24 bits to be rejected, got %v", err)
	}
}
