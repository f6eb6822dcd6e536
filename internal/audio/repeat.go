package audio

// RepeatSource loops a seekable inner source. It owns the inner source.
type RepeatSource struct {
	inner  SampleSource
	repeat bool
}

// NewRepeatSource wraps inner with looping disabled
func NewRepeatSource(inner SampleSource) *RepeatSource {
	return &RepeatSource{inner: inner}
}

func (r *RepeatSource) SetRepeat(repeat bool) { r.repeat = repeat }
func (r *RepeatSource) Repeat() bool { return r.repeat }

// Inner returns the wrapped source
func (r *RepeatSource) Inner() SampleSource { return r.inner }

func (r *RepeatSource) Format() Format { return r.inner.Format() }

// Read fills buf from the inner source, rewinding it when it runs short and looping
// is enabled. Two zero-frame reads in a row end the read so an empty source cannot
// spin.
func (r *RepeatSource) Read(buf []byte, frames int) int {
	frameSize := r.inner.Format().FrameSize()
	frames = clampFrames(buf, frames, frameSize)

	total := 0
	zeros := 0
	for total < frames {
		n := r.inner.Read(buf[total*frameSize:], frames-total)
		total += n
		if total >= frames {
			break
		}
		if n == 0 {
			zeros++
		} else {
			zeros = 0
		}
		if !r.repeat || !r.inner.Seekable() || zeros >= 2 {
			break
		}
		r.inner.Reset()
	}
	return total
}

func (r *RepeatSource) Reset() { r.inner.Reset() }
func (r *RepeatSource) Seekable() bool { return r.inner.Seekable() }
func (r *RepeatSource) Length() int { return r.inner.Length() }
func (r *RepeatSource) SetPosition(frame int) { r.inner.SetPosition(frame) }
func (r *RepeatSource) Position() int { return r.inner.Position() }
func (r *RepeatSource) Close() error { return r.inner.Close() }
