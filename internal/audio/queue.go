package audio

import (
	"sync"
)

// pcmQueue is a bounded FIFO of whole PCM frames between the mixing goroutine and a
// driver callback. Write blocks while the queue is full. Read never blocks; an
// underrun is padded with silence.
type pcmQueue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	ring      []byte
	start     int
	size      int
	frameSize int
	silence   byte
	closed    bool
	underruns int
}

func newPCMQueue(format Format, frames int) *pcmQueue {
	q := &pcmQueue{
		ring:      make([]byte, frames*format.FrameSize()),
		frameSize: format.FrameSize(),
		silence:   format.SilenceByte(),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Write appends p, waiting for room as needed
func (q *pcmQueue) Write(p []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(p) > 0 {
		for !q.closed && q.size == len(q.ring) {
			q.cond.Wait()
		}
		if q.closed {
			return ErrBackendClosed
		}
		n := q.push(p)
		p = p[n:]
		q.cond.Broadcast()
	}
	return nil
}

func (q *pcmQueue) push(p []byte) int {
	free := len(q.ring) - q.size
	if len(p) > free {
		p = p[:free]
	}
	end := (q.start + q.size) % len(q.ring)
	n := copy(q.ring[end:], p)
	if n < len(p) {
		n += copy(q.ring, p[n:])
	}
	q.size += n
	return n
}

// Read fills p with queued frames and pads any shortfall with silence. It always
// reports len(p).
func (q *pcmQueue) Read(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	avail := min(q.size, len(p))
	avail -= avail % q.frameSize
	n := copy(p[:avail], q.ring[q.start:min(q.start+avail, len(q.ring))])
	if n < avail {
		n += copy(p[n:avail], q.ring)
	}
	q.start = (q.start + n) % len(q.ring)
	q.size -= n
	if n < len(p) {
		if !q.closed {
			q.underruns++
		}
		for i := n; i < len(p); i++ {
			p[i] = q.silence
		}
	}
	if n > 0 {
		q.cond.Broadcast()
	}
	return len(p)
}

// Free returns the room left in frames
func (q *pcmQueue) Free() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return (len(q.ring) - q.size) / q.frameSize
}

// Buffered returns the queued frame count
func (q *pcmQueue) Buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size / q.frameSize
}

// Underruns returns how many reads were padded with silence
func (q *pcmQueue) Underruns() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.underruns
}

// Flush drops everything queued
func (q *pcmQueue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.start, q.size = 0, 0
	q.cond.Broadcast()
}

func (q *pcmQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close wakes blocked writers; later writes fail and reads return silence
func (q *pcmQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
