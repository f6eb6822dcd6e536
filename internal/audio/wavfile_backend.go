package audio

import (
	"fmt"
	"log/slog"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// DefaultWavFile is written when the "file" parameter is absent
const DefaultWavFile = "mixdown.wav"

// FsBackend is implemented by backends that write through a filesystem
type FsBackend interface {
	SetFs(fs afero.Fs)
}

// WavFileBackend records the mix to a WAV file. It is a polling backend: every
// Device.Update appends one buffer, so rendering runs as fast as the caller ticks.
type WavFileBackend struct {
	mutex   sync.Mutex
	fs      afero.Fs
	path    string
	file    afero.File
	encoder *wav.Encoder
	config  OutputConfig
	buf     *goaudio.IntBuffer
	written int64
}

func NewWavFileBackend() *WavFileBackend {
	return &WavFileBackend{fs: afero.NewOsFs()}
}

func (wb *WavFileBackend) Name() string { return BackendWavFile }

func (wb *WavFileBackend) SetFs(fs afero.Fs) {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()
	wb.fs = fs
}

// Open creates the file named by the "file" parameter, replacing any existing one.
// Reopening the file this backend was last writing resumes it instead: the frames
// already recorded are kept and new ones are appended after them.
func (wb *WavFileBackend) Open(params Parameters) error {
	config, err := OutputConfigFromParameters(params)
	if err != nil {
		return err
	}
	path := params.String(ParamFile, DefaultWavFile)

	wb.mutex.Lock()
	defer wb.mutex.Unlock()

	format := config.Format
	var recorded *goaudio.IntBuffer
	if wb.encoder == nil && path == wb.path && wb.written > 0 {
		recorded, err = wb.readRecorded(path, format)
		if err != nil {
			slog.Error("cannot resume wav output", "path", path, "error", err)
			return fmt.Errorf("%w: resuming %s: %v", ErrOpenFailed, path, err)
		}
	}

	f, err := wb.fs.Create(path)
	if err != nil {
		slog.Error("failed to create wav output", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	encoder := wav.NewEncoder(f, format.SampleRate, format.SampleFormat.Bits(), format.Channels, 1)
	written := int64(0)
	if recorded != nil && len(recorded.Data) > 0 {
		if err := encoder.Write(recorded); err != nil {
			f.Close()
			return fmt.Errorf("%w: rewriting %s: %v", ErrOpenFailed, path, err)
		}
		written = int64(len(recorded.Data) / format.Channels)
		slog.Info("wav output resumed", "path", path, "frames", written)
	}

	wb.encoder = encoder
	wb.file = f
	wb.path = path
	wb.config = config
	wb.written = written
	wb.buf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           make([]int, config.FramesPerBuffer*format.Channels),
		SourceBitDepth: format.SampleFormat.Bits(),
	}
	slog.Debug("wav file backend opened", "path", path, "format", format.String())
	return nil
}

// readRecorded loads the samples of a file this backend finalized earlier
func (wb *WavFileBackend) readRecorded(path string, format Format) (*goaudio.IntBuffer, error) {
	f, err := wb.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if int(decoder.NumChans) != format.Channels || int(decoder.SampleRate) != format.SampleRate ||
		int(decoder.BitDepth) != format.SampleFormat.Bits() {
		return nil, fmt.Errorf("recorded as %dch/%dHz/%dbit, want %s",
			decoder.NumChans, decoder.SampleRate, decoder.BitDepth, format.String())
	}
	buf.SourceBitDepth = format.SampleFormat.Bits()
	return buf, nil
}

func (wb *WavFileBackend) Threaded() bool { return false }

func (wb *WavFileBackend) Format() Format {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()
	return wb.config.Format
}

func (wb *WavFileBackend) FramesPerBuffer() int {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()
	return wb.config.FramesPerBuffer
}

func (wb *WavFileBackend) Update() error { return nil }

// Write appends pcm to the file. U8 samples are stored unsigned, as WAV expects.
func (wb *WavFileBackend) Write(pcm []byte) error {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()
	if wb.encoder == nil {
		return ErrBackendClosed
	}

	sf := wb.config.Format.SampleFormat
	n := len(pcm) / sf.BytesPerSample()
	if cap(wb.buf.Data) < n {
		wb.buf.Data = make([]int, n)
	}
	wb.buf.Data = wb.buf.Data[:n]
	for i := range wb.buf.Data {
		if sf == FormatU8 {
			wb.buf.Data[i] = int(pcm[i])
		} else {
			wb.buf.Data[i] = int(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
		}
	}
	if err := wb.encoder.Write(wb.buf); err != nil {
		return fmt.Errorf("writing %s: %w", wb.path, err)
	}
	wb.written += int64(n / wb.config.Format.Channels)
	return nil
}

// FramesWritten returns the frames in the file, including any resumed ones
func (wb *WavFileBackend) FramesWritten() int64 {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()
	return wb.written
}

// Close finalizes the WAV header and closes the file
func (wb *WavFileBackend) Close() error {
	wb.mutex.Lock()
	defer wb.mutex.Unlock()
	if wb.encoder == nil {
		return nil
	}
	encoder, f := wb.encoder, wb.file
	wb.encoder, wb.file = nil, nil

	err := encoder.Close()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("finalizing %s: %w", wb.path, err)
	}
	slog.Debug("wav file backend closed", "path", wb.path, "frames", wb.written)
	return nil
}
