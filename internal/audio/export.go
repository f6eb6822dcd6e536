package audio

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/youpy/go-wav"
)

// ExportWAV renders src as a PCM WAV file into w and returns the frame count. It reads
// at most maxFrames frames, or until the source is exhausted when maxFrames is zero or
// negative; an endless source must be given a limit. The source is left open.
func ExportWAV(w io.Writer, src SampleSource, maxFrames int) (int, error) {
	format := src.Format()
	if err := format.Validate(); err != nil {
		return 0, err
	}
	fs := format.FrameSize()
	limit := maxFrames
	if limit <= 0 {
		limit = DefaultBufferLimit * format.SampleRate
	}

	var data []byte
	chunk := make([]byte, 4096*fs)
	frames := 0
	for frames < limit {
		n := src.Read(chunk, min(4096, limit-frames))
		if n == 0 {
			break
		}
		data = append(data, chunk[:n*fs]...)
		frames += n
	}
	if maxFrames <= 0 && frames == limit && src.Read(chunk[:fs], 1) > 0 {
		return 0, fmt.Errorf("%w: give a frame limit to export an endless source", ErrUnboundedSource)
	}

	writer := wav.NewWriter(w, uint32(frames), uint16(format.Channels),
		uint32(format.SampleRate), uint16(format.SampleFormat.Bits()))
	if _, err := writer.Write(data); err != nil {
		return 0, fmt.Errorf("writing wav data: %w", err)
	}

	slog.Debug("exported wav", "frames", frames, "format", format.String())
	return frames, nil
}
