package audio

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"time"
)

// Tone synthesizes a sine clip in the house format, with short attack and
// release ramps so it starts and ends without clicks. Useful as demo and
// test material.
func Tone(freq float64, d time.Duration) *Clip {
	format := DefaultFormat()
	n := format.Bytes(d) / BytesPerSample
	pcm := make([]byte, n*BytesPerSample)

	ramp := format.SampleRate / 200 // 5ms
	const amp = 0.4 * math.MaxInt16

	for i := 0; i < n; i++ {
		t := float64(i) / float64(format.SampleRate)
		v := amp * math.Sin(2*math.Pi*freq*t)
		if i < ramp {
			v *= float64(i) / float64(ramp)
		}
		if n-i < ramp {
			v *= float64(n-i) / float64(ramp)
		}
		binary.LittleEndian.PutUint16(pcm[i*BytesPerSample:], uint16(int16(v)))
	}
	return &Clip{Format: format, PCM: pcm}
}

// NoiseBurst synthesizes a soft noise burst that decays toward silence,
// the fallback pencil-stroke sample when no WAV is configured. decay is
// the time after which the envelope has fallen to roughly a third.
func NoiseBurst(d, decay time.Duration) *Clip {
	format := DefaultFormat()
	n := format.Bytes(d) / BytesPerSample
	pcm := make([]byte, n*BytesPerSample)
	if decay <= 0 {
		decay = d
	}

	// Fixed seed: the fallback sample is an asset, not a dice roll.
	rng := rand.New(rand.NewPCG(0x5eed, 0x0a11))
	tc := decay.Seconds()

	const amp = 0.5 * math.MaxInt16
	var prev float64
	for i := 0; i < n; i++ {
		t := float64(i) / float64(format.SampleRate)
		white := rng.Float64()*2 - 1
		// one-pole lowpass takes the hiss off the top
		prev += 0.25 * (white - prev)
		v := amp * prev * math.Exp(-t/tc)
		binary.LittleEndian.PutUint16(pcm[i*BytesPerSample:], uint16(int16(v)))
	}
	return &Clip{Format: format, PCM: pcm}
}
