package audio

import (
	"bytes"
	"testing"
)

func TestRepeatSourceWrapsWhenRepeating(t *testing.T) {
	data := rampPCM(stereoS16, 100)
	r := NewRepeatSource(mustBuffer(t, stereoS16, data))
	r.SetRepeat(true)

	buf := make([]byte, 130*4)
	if n := r.Read(buf, 130); n != 130 {
		t.Fatalf("expected 130 frames, got %d", n)
	}
	if !bytes.Equal(buf[:400], data) {
		t.Error("first pass does not match source")
	}
	if !bytes.Equal(buf[400:], data[:120]) {
		t.Error("wrapped frames do not restart at the beginning")
	}
}

func TestRepeatSourceStopsWhenNotRepeating(t *testing.T) {
	r := NewRepeatSource(mustBuffer(t, monoU8, rampPCM(monoU8, 100)))

	buf := make([]byte, 130)
	if n := r.Read(buf, 130); n != 100 {
		t.Errorf("expected short read of 100 frames, got %d", n)
	}
	if n := r.Read(buf, 130); n != 0 {
		t.Errorf("expected 0 frames after exhaustion, got %d", n)
	}
}

func TestRepeatSourceToggle(t *testing.T) {
	r := NewRepeatSource(mustBuffer(t, monoU8, rampPCM(monoU8, 10)))
	r.SetRepeat(true)
	buf := make([]byte, 25)
	if n := r.Read(buf, 25); n != 25 {
		t.Errorf("expected 25 frames while repeating, got %d", n)
	}
	r.SetRepeat(false)
	if n := r.Read(buf, 25); n != 5 {
		t.Errorf("expected remaining 5 frames once repeat is off, got %d", n)
	}
}

func TestRepeatSourceUnseekableInner(t *testing.T) {
	r := NewRepeatSource(newConstantSource(monoU8, u8Frame(1), 10))
	r.SetRepeat(true)
	buf := make([]byte, 20)
	if n := r.Read(buf, 20); n != 10 {
		t.Errorf("expected unseekable source to end after 10 frames, got %d", n)
	}
}

func TestRepeatSourceEmptyInner(t *testing.T) {
	r := NewRepeatSource(mustBuffer(t, monoU8, nil))
	r.SetRepeat(true)
	if n := r.Read(make([]byte, 8), 8); n != 0 {
		t.Errorf("expected empty source to yield 0 frames, got %d", n)
	}
}

func TestRepeatSourceDelegates(t *testing.T) {
	inner := mustBuffer(t, monoU8, rampPCM(monoU8, 40))
	r := NewRepeatSource(inner)
	if !r.Seekable() || r.Length() != 40 {
		t.Errorf("expected seekable length 40, got %v %d", r.Seekable(), r.Length())
	}
	r.SetPosition(12)
	if inner.Position() != 12 || r.Position() != 12 {
		t.Errorf("expected position 12, got %d", inner.Position())
	}
	r.Close()
	if !inner.closed {
		t.Error("expected Close to reach the inner source")
	}
}
