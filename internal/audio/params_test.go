package audio

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseParameters(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Parameters
	}{
		{"empty", "", Parameters{}},
		{"single", "buffer=100", Parameters{"buffer": "100"}},
		{"several", "buffer=100,rate=44100", Parameters{"buffer": "100", "rate": "44100"}},
		{"trimmed", " buffer = 100 , rate=22050 ", Parameters{"buffer": "100", "rate": "22050"}},
		{"last duplicate wins", "rate=8000,rate=11025", Parameters{"rate": "11025"}},
		{"flag without value", "mono,rate=8000", Parameters{"mono": "", "rate": "8000"}},
		{"value with equals", "dll=C:/a=b.dll", Parameters{"dll": "C:/a=b.dll"}},
		{"empty items", ",,rate=8000,", Parameters{"rate": "8000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseParameters(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseParameters(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParametersAccessors(t *testing.T) {
	p := ParseParameters("rate=8000,bits=x,file=out.wav")
	if p.Int(ParamRate, 1) != 8000 {
		t.Errorf("expected rate 8000")
	}
	if p.Int(ParamBits, 16) != 16 {
		t.Errorf("expected malformed bits to fall back to 16")
	}
	if p.Int(ParamChannels, 2) != 2 {
		t.Errorf("expected missing channels to fall back to 2")
	}
	if p.String(ParamFile, "") != "out.wav" || p.String(ParamDLL, "none") != "none" {
		t.Errorf("unexpected string accessors")
	}
	if got := p.Encode(); got != "bits=x,file=out.wav,rate=8000" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestOutputConfigFromParameters(t *testing.T) {
	tests := []struct {
		name       string
		params     string
		wantFormat Format
		wantFrames int
		wantErr    error
	}{
		{"defaults", "", stereoS16, 44100 * 100 / 1000 / DefaultQueueDepth, nil},
		{"8 bit mono", "bits=8,channels=1,rate=22050,buffer=200", Format{1, 22050, FormatU8}, 22050 * 200 / 1000 / DefaultQueueDepth, nil},
		{"explicit frames", "frames=512", stereoS16, 512, nil},
		{"bad bits", "bits=12", Format{}, 0, ErrInvalidFormat},
		{"bad channels", "channels=0", Format{}, 0, ErrInvalidFormat},
		{"bad buffer", "buffer=-5", Format{}, 0, ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := OutputConfigFromParameters(ParseParameters(tt.params))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.wantFormat {
				t.Errorf("format %s, want %s", config.Format, tt.wantFormat)
			}
			if config.FramesPerBuffer != tt.wantFrames {
				t.Errorf("frames %d, want %d", config.FramesPerBuffer, tt.wantFrames)
			}
		})
	}
}
