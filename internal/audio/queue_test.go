package audio

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestPCMQueueFIFO(t *testing.T) {
	q := newPCMQueue(stereoS16, 8)
	data := rampPCM(stereoS16, 6)
	if err := q.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if q.Buffered() != 6 || q.Free() != 2 {
		t.Errorf("buffered %d free %d, want 6 and 2", q.Buffered(), q.Free())
	}

	out := make([]byte, 4*4)
	q.Read(out)
	if !bytes.Equal(out, data[:16]) {
		t.Error("first read out of order")
	}

	// wraps around the ring
	more := rampPCM(stereoS16, 4)
	if err := q.Write(more); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out = make([]byte, 6*4)
	q.Read(out)
	if !bytes.Equal(out, append(append([]byte(nil), data[16:]...), more...)) {
		t.Error("wrapped read out of order")
	}
}

func TestPCMQueueUnderrunPadsSilence(t *testing.T) {
	q := newPCMQueue(monoU8, 4)
	q.Write([]byte{1, 2})
	out := make([]byte, 4)
	if n := q.Read(out); n != 4 {
		t.Errorf("Read reported %d, want 4", n)
	}
	if !bytes.Equal(out, []byte{1, 2, 0x80, 0x80}) {
		t.Errorf("got %v, want padded with u8 silence", out)
	}
	if q.Underruns() != 1 {
		t.Errorf("underruns %d, want 1", q.Underruns())
	}
}

func TestPCMQueueWriteBlocksUntilRead(t *testing.T) {
	q := newPCMQueue(monoU8, 2)
	q.Write([]byte{1, 2})

	done := make(chan error, 1)
	go func() { done <- q.Write([]byte{3}) }()

	select {
	case <-done:
		t.Fatal("Write should block while the queue is full")
	case <-time.After(20 * time.Millisecond):
	}

	q.Read(make([]byte, 1))
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Write did not resume after a read")
	}
}

func TestPCMQueueCloseWakesWriter(t *testing.T) {
	q := newPCMQueue(monoU8, 1)
	q.Write([]byte{1})

	done := make(chan error, 1)
	go func() { done <- q.Write([]byte{2}) }()
	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrBackendClosed) {
			t.Errorf("expected ErrBackendClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake the blocked writer")
	}
	if !q.Closed() {
		t.Error("expected queue to report closed")
	}
}

func TestPCMQueueFlush(t *testing.T) {
	q := newPCMQueue(monoS16, 4)
	q.Write(rampPCM(monoS16, 3))
	q.Flush()
	if q.Buffered() != 0 || q.Free() != 4 {
		t.Errorf("expected empty queue after Flush, buffered %d", q.Buffered())
	}
}
