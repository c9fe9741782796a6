package gbaui

import (
	"encoding/binary"
	"time"

	"github.com/maemo-arm7/gbacore/internal/gba/system"
)

// apuStream implements io.Reader by pulling raw FIFO-A/B latch pairs
// from the running System and mixing them into 16-bit little-endian
// stereo frames itself — the core only latches samples, so the
// SOUNDCNT_H volume/left-right routing and the final mix happen here,
// adapted from the teacher's ui.apuStream (which pulled already-mixed
// frames from emu.Machine.APUPullStereo) onto System.PullAudioLatches'
// ring buffer of unmixed latches.
type apuStream struct {
	sys        *system.System
	mono       bool
	muted      *bool
	lowLatency bool

	underruns  int
	lastWant   int
	lastPulled int
}

// mixLatch combines one FIFO-A/B latch pair into a stereo frame per
// SOUNDCNT_H's per-channel volume (50%/100%) and left/right enable
// bits, the same computation the teacher's DMG mixer applies to its
// four PSG channels but here over the GBA's two Direct Sound FIFOs.
func mixLatch(soundcntH uint16, a, b int8) (left, right int16) {
	volA := int16(a)
	if soundcntH&(1<<2) == 0 {
		volA /= 2
	}
	volB := int16(b)
	if soundcntH&(1<<3) == 0 {
		volB /= 2
	}
	if soundcntH&(1<<8) != 0 {
		right += volA
	}
	if soundcntH&(1<<9) != 0 {
		left += volA
	}
	if soundcntH&(1<<12) != 0 {
		right += volB
	}
	if soundcntH&(1<<13) != 0 {
		left += volB
	}
	return left << 6, right << 6 // scale 8-bit signed PCM toward int16 range
}

func (s *apuStream) Read(p []byte) (int, error) {
	if len(p) < 4 || s == nil || s.sys == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	if s.muted != nil && *s.muted {
		for i := range p {
			p[i] = 0
		}
		time.Sleep(5 * time.Millisecond)
		return len(p), nil
	}

	maxReq := len(p) / 4
	capFrames := 2048
	if s.lowLatency {
		capFrames = 1024
	}
	if maxReq > capFrames {
		maxReq = capFrames
	}

	want := maxReq
	if buf := s.sys.BufferedAudioFrames(); buf > 0 {
		if buf < want {
			want = buf
		}
	} else {
		waitDur := 15 * time.Millisecond
		if s.lowLatency {
			waitDur = 8 * time.Millisecond
		}
		deadline := time.Now().Add(waitDur)
		for time.Now().Before(deadline) {
			if b := s.sys.BufferedAudioFrames(); b > 0 {
				want = b
				if want > maxReq {
					want = maxReq
				}
				break
			}
			time.Sleep(time.Millisecond)
		}
	}

	latches := s.sys.PullAudioLatches(want)
	if len(latches) == 0 {
		silence := 256
		if silence > maxReq {
			silence = maxReq
		}
		for i := 0; i < silence*4 && i+3 < len(p); i += 4 {
			binary.LittleEndian.PutUint16(p[i:], 0)
			binary.LittleEndian.PutUint16(p[i+2:], 0)
		}
		s.underruns++
		s.lastWant, s.lastPulled = silence, silence
		return silence * 4, nil
	}

	soundcntH := s.sys.SoundControl()
	i := 0
	pulled := 0
	for j := 0; j+1 < len(latches) && i+3 < len(p); j += 2 {
		l, r := mixLatch(soundcntH, latches[j], latches[j+1])
		if s.mono {
			m := int16((int32(l) + int32(r)) / 2)
			binary.LittleEndian.PutUint16(p[i:], uint16(m))
			binary.LittleEndian.PutUint16(p[i+2:], uint16(m))
		} else {
			binary.LittleEndian.PutUint16(p[i:], uint16(l))
			binary.LittleEndian.PutUint16(p[i+2:], uint16(r))
		}
		i += 4
		pulled++
	}
	s.lastWant, s.lastPulled = want, pulled
	return pulled * 4, nil
}
