package audio

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// Parameters is a parsed "key=value,key=value" device parameter list
type Parameters map[string]string

// Recognized parameter keys
const (
	ParamBuffer   = "buffer"   // latency in milliseconds
	ParamRate     = "rate"     // sample rate in Hz
	ParamChannels = "channels" // output channel count
	ParamBits     = "bits"     // 8 or 16
	ParamFrames   = "frames"   // frames per mixing tick, overrides buffer
	ParamDLL      = "dll"      // driver library path for the dll backend
	ParamCommand  = "command"  // player command for the system_command backend
	ParamFile     = "file"     // output path for the wavfile backend
)

// Output defaults used when a parameter is absent
const (
	DefaultRate       = 44100
	DefaultChannels   = 2
	DefaultBits       = 16
	DefaultBufferMS   = 100
	DefaultQueueDepth = 4
)

// ParseParameters splits s on commas and each item on its first '='. Keys and values
// are trimmed, an item with no '=' maps to the empty string and the last occurrence of
// a key wins.
func ParseParameters(s string) Parameters {
	params := Parameters{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, _ := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		params[key] = strings.TrimSpace(value)
	}
	return params
}

// String returns the value for key or def when absent
func (p Parameters) String(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns the integer value for key or def when absent or malformed
func (p Parameters) Int(key string, def int) int {
	v, ok := p[key]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring malformed parameter", "key", key, "value", v)
		return def
	}
	return n
}

// Encode renders p back into parameter string form with keys sorted
func (p Parameters) Encode() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+p[k])
	}
	return strings.Join(parts, ",")
}

// OutputConfig is the output layout and tick size a backend derives from Parameters
type OutputConfig struct {
	Format          Format
	FramesPerBuffer int
	QueueDepth      int
}

// OutputConfigFromParameters reads rate, channels, bits, buffer and frames
func OutputConfigFromParameters(p Parameters) (OutputConfig, error) {
	sf, err := SampleFormatFromBits(p.Int(ParamBits, DefaultBits))
	if err != nil {
		return OutputConfig{}, err
	}
	format := Format{
		Channels:     p.Int(ParamChannels, DefaultChannels),
		SampleRate:   p.Int(ParamRate, DefaultRate),
		SampleFormat: sf,
	}
	if err := format.Validate(); err != nil {
		return OutputConfig{}, err
	}

	bufferMS := p.Int(ParamBuffer, DefaultBufferMS)
	if bufferMS <= 0 {
		return OutputConfig{}, fmt.Errorf("%w: buffer %dms", ErrInvalidFormat, bufferMS)
	}
	frames := p.Int(ParamFrames, 0)
	if frames <= 0 {
		frames = format.SampleRate * bufferMS / 1000 / DefaultQueueDepth
	}
	if frames <= 0 {
		frames = 1
	}
	return OutputConfig{Format: format, FramesPerBuffer: frames, QueueDepth: DefaultQueueDepth}, nil
}
