package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func openWavBytes(t *testing.T, data []byte) *WavSource {
	t.Helper()
	src, err := OpenWav(NopSeekCloser(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("OpenWav failed: %v", err)
	}
	return src
}

func TestWavRoundTripPerFormat(t *testing.T) {
	for _, format := range []Format{monoU8, stereoU8, monoS16, stereoS16} {
		t.Run(format.String(), func(t *testing.T) {
			pcm := rampPCM(format, 777)
			src := openWavBytes(t, buildWav(format, pcm))

			if src.Format() != format {
				t.Errorf("format %s, want %s", src.Format(), format)
			}
			if src.Length() != 777 {
				t.Errorf("length %d, want 777", src.Length())
			}
			if got := readAll(src, 100); !bytes.Equal(got, pcm) {
				t.Errorf("decoded %d bytes differ from the %d written", len(got), len(pcm))
			}
		})
	}
}

func TestWavSkipsUnknownChunks(t *testing.T) {
	pcm := rampPCM(stereoS16, 50)
	data := buildWav(stereoS16, pcm,
		wavChunk{"LIST", []byte("odd")},
		wavChunk{"fact", []byte{1, 2, 3, 4}},
	)
	src := openWavBytes(t, data)
	if got := readAll(src, 7); !bytes.Equal(got, pcm) {
		t.Error("PCM after padded chunks decoded incorrectly")
	}
}

func TestWavDataBeforeFormat(t *testing.T) {
	pcm := rampPCM(monoS16, 20)
	fmtChunk := buildWav(monoS16, nil)[20:36]
	data := buildRiff(wavChunk{"data", pcm}, wavChunk{"fmt ", fmtChunk})

	src := openWavBytes(t, data)
	if src.Format() != monoS16 {
		t.Fatalf("format %s, want %s", src.Format(), monoS16)
	}
	if got := readAll(src, 8); !bytes.Equal(got, pcm) {
		t.Error("PCM from leading data chunk decoded incorrectly")
	}
}

func TestWavTruncatedDataChunk(t *testing.T) {
	data := buildWav(stereoS16, rampPCM(stereoS16, 100))
	data = data[:len(data)-41] // cut ten frames and one stray byte
	src := openWavBytes(t, data)
	if src.Length() != 89 {
		t.Errorf("length %d, want 89 whole frames", src.Length())
	}
}

func TestWavResetAndSeek(t *testing.T) {
	pcm := rampPCM(stereoU8, 300)
	src := openWavBytes(t, buildWav(stereoU8, pcm))

	first := make([]byte, 64*2)
	src.Read(first, 64)
	readAll(src, 50)
	if n := src.Read(make([]byte, 2), 1); n != 0 {
		t.Fatalf("expected exhausted source, read %d", n)
	}

	src.Reset()
	again := make([]byte, 64*2)
	if n := src.Read(again, 64); n != 64 {
		t.Fatalf("expected 64 frames after Reset, got %d", n)
	}
	if !bytes.Equal(first, again) {
		t.Error("frames after Reset differ")
	}

	src.SetPosition(250)
	if src.Position() != 250 {
		t.Errorf("position %d, want 250", src.Position())
	}
	rest := readAll(src, 100)
	if !bytes.Equal(rest, pcm[250*2:]) {
		t.Error("frames after SetPosition differ")
	}
}

func TestWavErrors(t *testing.T) {
	good := buildWav(monoS16, rampPCM(monoS16, 10))

	float := append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(float[20:], 3)

	bits24 := append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(bits24[34:], 24)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrDecode},
		{"not riff", []byte("RIFX\x00\x00\x00\x00WAVE"), ErrDecode},
		{"no data chunk", buildRiff(wavChunk{"fmt ", good[20:36]}), ErrDecode},
		{"no format chunk", buildRiff(wavChunk{"data", []byte{1, 2}}), ErrDecode},
		{"short format chunk", buildRiff(wavChunk{"fmt ", []byte{1, 0, 1, 0}}, wavChunk{"data", nil}), ErrDecode},
		{"float encoding", float, ErrUnsupportedFormat},
		{"24 bit", bits24, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenWav(NopSeekCloser(bytes.NewReader(tt.data)))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWavDecoderOpen(t *testing.T) {
	decoder := NewWavDecoder()
	var _ Decoder = decoder

	src, err := decoder.Open(NopSeekCloser(bytes.NewReader(buildWav(monoU8, rampPCM(monoU8, 5)))))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()
	if !src.Seekable() || src.Length() != 5 {
		t.Errorf("expected seekable 5-frame source, got %v %d", src.Seekable(), src.Length())
	}
}
