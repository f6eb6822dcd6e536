//go:build cgo || darwin || windows

package audio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process, so every OtoBackend shares it and must agree on
// its format.
var otoShared struct {
	sync.Mutex
	ctx    *oto.Context
	format Format
}

func otoContext(format Format, config OutputConfig) (*oto.Context, error) {
	otoShared.Lock()
	defer otoShared.Unlock()

	if otoShared.ctx != nil {
		if otoShared.format != format {
			return nil, fmt.Errorf("%w: oto is already running at %s", ErrOpenFailed, otoShared.format)
		}
		return otoShared.ctx, nil
	}

	sf := oto.FormatSignedInt16LE
	if format.SampleFormat == FormatU8 {
		sf = oto.FormatUnsignedInt8
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       sf,
		BufferSize:   format.Duration(config.FramesPerBuffer),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendNotAvailable, err)
	}
	<-ready

	otoShared.ctx = ctx
	otoShared.format = format
	slog.Debug("oto context initialized", "format", format.String())
	return ctx, nil
}

// OtoBackend plays through an oto player that pulls from a frame queue
type OtoBackend struct {
	mutex  sync.Mutex
	player *oto.Player
	queue  *pcmQueue
	config OutputConfig
	closed bool
}

func NewOtoBackend() *OtoBackend {
	slog.Debug("creating new OtoBackend")
	return &OtoBackend{closed: true}
}

func (ob *OtoBackend) Name() string { return BackendOto }

func (ob *OtoBackend) Open(params Parameters) error {
	config, err := OutputConfigFromParameters(params)
	if err != nil {
		return err
	}
	ctx, err := otoContext(config.Format, config)
	if err != nil {
		return err
	}

	queue := newPCMQueue(config.Format, config.FramesPerBuffer*config.QueueDepth)
	player := ctx.NewPlayer(queueReader{queue})
	player.Play()

	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	ob.player = player
	ob.queue = queue
	ob.config = config
	ob.closed = false
	slog.Debug("OtoBackend opened", "format", config.Format.String(), "frames_per_buffer", config.FramesPerBuffer)
	return nil
}

// queueReader feeds an oto player. It ends the stream once the queue is closed.
type queueReader struct {
	q *pcmQueue
}

func (r queueReader) Read(p []byte) (int, error) {
	if r.q.Closed() {
		return 0, io.EOF
	}
	p = p[:len(p)-len(p)%r.q.frameSize]
	return r.q.Read(p), nil
}

func (ob *OtoBackend) Threaded() bool { return true }

func (ob *OtoBackend) Format() Format {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	return ob.config.Format
}

func (ob *OtoBackend) FramesPerBuffer() int {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	return ob.config.FramesPerBuffer
}

// Update surfaces errors reported by the shared oto context
func (ob *OtoBackend) Update() error {
	otoShared.Lock()
	ctx := otoShared.ctx
	otoShared.Unlock()
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// Flush drops queued audio the player has not read yet
func (ob *OtoBackend) Flush() {
	ob.mutex.Lock()
	queue := ob.queue
	ob.mutex.Unlock()
	if queue != nil {
		queue.Flush()
	}
}

func (ob *OtoBackend) Write(pcm []byte) error {
	ob.mutex.Lock()
	queue, closed := ob.queue, ob.closed
	ob.mutex.Unlock()
	if closed {
		return ErrBackendClosed
	}
	return queue.Write(pcm)
}

// Close stops the player; the shared context stays up for the next Open
func (ob *OtoBackend) Close() error {
	ob.mutex.Lock()
	if ob.closed {
		ob.mutex.Unlock()
		return nil
	}
	ob.closed = true
	player, queue := ob.player, ob.queue
	ob.player = nil
	ob.mutex.Unlock()

	queue.Close()
	if err := player.Close(); err != nil {
		return fmt.Errorf("closing oto player: %w", err)
	}
	slog.Debug("OtoBackend closed", "underruns", queue.Underruns())
	return nil
}
