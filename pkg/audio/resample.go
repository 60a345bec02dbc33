package audio

import (
	"encoding/binary"
)

// Convert returns a copy of the clip in the target rate and channel
// count. 16-bit depth is assumed throughout. Converting an empty clip
// yields an empty clip in the target format.
func Convert(c *Clip, target Format) *Clip {
	if c.Empty() {
		return &Clip{Format: target}
	}
	pcm := c.PCM
	channels := c.Format.Channels

	if channels == 2 && target.Channels == 1 {
		pcm = mixdownToMono(pcm)
		channels = 1
	} else if channels == 1 && target.Channels == 2 {
		pcm = duplicateToStereo(pcm)
		channels = 2
	}

	if c.Format.SampleRate != target.SampleRate {
		step := float64(c.Format.SampleRate) / float64(target.SampleRate)
		pcm = stretch(pcm, channels, step)
	}

	return &Clip{Format: target, PCM: pcm}
}

// stretch resamples interleaved 16-bit PCM by a fixed source step per
// output frame, interpolating linearly between neighbouring samples.
// step > 1 shortens the signal, step < 1 lengthens it.
func stretch(pcm []byte, channels int, step float64) []byte {
	if step <= 0 {
		return nil
	}
	frameBytes := channels * BytesPerSample
	frames := len(pcm) / frameBytes
	if frames == 0 {
		return nil
	}

	outFrames := int(float64(frames) / step)
	if outFrames < 1 {
		outFrames = 1
	}
	out := make([]byte, outFrames*frameBytes)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		if j >= frames-1 {
			j = frames - 2
			if j < 0 {
				j = 0
			}
			frac = 1
			if frames == 1 {
				frac = 0
			}
		}
		for ch := 0; ch < channels; ch++ {
			a := int16(binary.LittleEndian.Uint16(pcm[j*frameBytes+ch*BytesPerSample:]))
			b := a
			if j+1 < frames {
				b = int16(binary.LittleEndian.Uint16(pcm[(j+1)*frameBytes+ch*BytesPerSample:]))
			}
			v := float64(a) + (float64(b)-float64(a))*frac
			binary.LittleEndian.PutUint16(out[i*frameBytes+ch*BytesPerSample:], uint16(int16(v)))
		}
	}
	return out
}

func mixdownToMono(pcm []byte) []byte {
	frames := len(pcm) / (2 * BytesPerSample)
	out := make([]byte, frames*BytesPerSample)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16((int32(l)+int32(r))/2)))
	}
	return out
}

func duplicateToStereo(pcm []byte) []byte {
	frames := len(pcm) / BytesPerSample
	out := make([]byte, frames*2*BytesPerSample)
	for i := 0; i < frames; i++ {
		s := pcm[i*2 : i*2+2]
		copy(out[i*4:], s)
		copy(out[i*4+2:], s)
	}
	return out
}

// renderVoicePCM produces the PCM a voice will actually play: the clip's
// window shifted by the spec's rate. Rate r plays r times faster, so the
// source is stretched by step r.
func renderVoicePCM(c *Clip, spec VoiceSpec) []byte {
	w := c.Window(spec.Offset, spec.Duration)
	if w.Empty() {
		return nil
	}
	rate := spec.Rate
	if rate == 0 {
		rate = 1
	}
	if rate == 1 {
		out := make([]byte, len(w.PCM))
		copy(out, w.PCM)
		return out
	}
	return stretch(w.PCM, w.Format.Channels, rate)
}
