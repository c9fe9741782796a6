package system

import "sync"

// Direct Sound is latched at the same rate real GBA software targets
// for DMA-fed streams; RunFor resamples the CPU-clock-rate FIFO-A/B
// latch pair down to this rate into a small ring buffer a front end
// can drain from its own audio callback goroutine. The core only ever
// buffers the raw per-channel latches here — turning them into a
// mixed, volume-scaled stereo signal is the external mixer's job (see
// gbaui's apuStream), not RunFor's.
const (
	cpuClockHz      = 16777216
	audioSampleRate = 32768
	cyclesPerSample = cpuClockHz / audioSampleRate

	audioRingFrames = 1 << 14 // 16384 latch pairs, 500ms of headroom
)

// audioRing is a small mutex-guarded ring buffer of interleaved
// FIFO-A/FIFO-B int8 latch pairs, decoupling the emulation loop (which
// fills it during RunFor) from a front end's audio callback (which
// drains it from a different goroutine), the same separation the
// teacher's apuStream/APU pairing relies on.
type audioRing struct {
	mu   sync.Mutex
	buf  []int8 // interleaved A,B
	head int
	size int // frames currently buffered
}

func newAudioRing() *audioRing {
	return &audioRing{buf: make([]int8, audioRingFrames*2)}
}

func (r *audioRing) pushLatch(a, b int8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tail := (r.head + r.size) % audioRingFrames
	if r.size == audioRingFrames {
		// Drop the oldest frame rather than block the emulation loop.
		r.head = (r.head + 1) % audioRingFrames
		r.size--
		tail = (r.head + r.size) % audioRingFrames
	}
	r.buf[tail*2] = a
	r.buf[tail*2+1] = b
	r.size++
}

// PullLatches removes up to maxFrames interleaved A/B latch pairs,
// returning fewer if the ring is running dry.
func (r *audioRing) PullLatches(maxFrames int) []int8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := maxFrames
	if n > r.size {
		n = r.size
	}
	out := make([]int8, n*2)
	for i := 0; i < n; i++ {
		idx := (r.head + i) % audioRingFrames
		out[i*2] = r.buf[idx*2]
		out[i*2+1] = r.buf[idx*2+1]
	}
	r.head = (r.head + n) % audioRingFrames
	r.size -= n
	return out
}

func (r *audioRing) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// accumulateAudio resamples the APU's CPU-clock-rate latch pair down
// to audioSampleRate, called once per RunFor step with that step's
// elapsed cycle count.
func (s *System) accumulateAudio(elapsed int) {
	s.sampleAccum += elapsed
	for s.sampleAccum >= cyclesPerSample {
		s.sampleAccum -= cyclesPerSample
		a, b := s.apu.Latches()
		s.audio.pushLatch(a, b)
	}
}

// PullAudioLatches drains up to maxFrames buffered FIFO-A/B latch
// pairs (interleaved int8 A,B), safe to call from a different
// goroutine than the one driving RunFor. Combining these into a mixed
// stereo signal is left to the caller.
func (s *System) PullAudioLatches(maxFrames int) []int8 {
	return s.audio.PullLatches(maxFrames)
}

// BufferedAudioFrames reports how many latch pairs are currently
// queued, for a front end's underrun/backpressure heuristics.
func (s *System) BufferedAudioFrames() int {
	return s.audio.Buffered()
}
