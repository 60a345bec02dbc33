package audio

import (
	"encoding/binary"
)

// DecodeError reports malformed or unsupported encoded audio. Decode
// failures degrade to a skipped narration entry, so the reason is kept
// human-readable rather than machine-matched.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode wav: " + e.Reason
}

// DecodeWAV parses a RIFF/WAVE stream carrying 16-bit PCM and returns the
// clip in its source format. Anything else fails with *DecodeError.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, &DecodeError{Reason: "not a RIFF/WAVE stream"}
	}

	var (
		format  Format
		pcm     []byte
		haveFmt bool
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		off += 8
		if size < 0 || off+size > len(data) {
			return nil, &DecodeError{Reason: "truncated " + id + " chunk"}
		}
		body := data[off : off+size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, &DecodeError{Reason: "short fmt chunk"}
			}
			if codec := binary.LittleEndian.Uint16(body[0:2]); codec != 1 {
				return nil, &DecodeError{Reason: "unsupported codec (PCM only)"}
			}
			format.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			format.BitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			if err := format.validate(); err != nil {
				return nil, &DecodeError{Reason: err.Error()}
			}
			haveFmt = true
		case "data":
			pcm = body
		}

		off += size
		// chunks are word-aligned
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt {
		return nil, &DecodeError{Reason: "missing fmt chunk"}
	}
	if pcm == nil {
		return nil, &DecodeError{Reason: "missing data chunk"}
	}

	// Tolerate a ragged tail; subprocess engines occasionally emit one.
	if rem := len(pcm) % format.BytesPerFrame(); rem != 0 {
		pcm = pcm[:len(pcm)-rem]
	}

	return &Clip{Format: format, PCM: pcm}, nil
}

// EncodeWAV renders the clip as a RIFF/WAVE stream with a standard 44-byte
// header.
func EncodeWAV(c *Clip) []byte {
	if c == nil {
		c = &Clip{Format: DefaultFormat()}
	}
	f := c.Format
	frameBytes := f.BytesPerFrame()
	byteRate := f.SampleRate * frameBytes

	out := make([]byte, 44+len(c.PCM))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(c.PCM)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(frameBytes))
	binary.LittleEndian.PutUint16(out[34:36], uint16(f.BitDepth))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(c.PCM)))
	copy(out[44:], c.PCM)
	return out
}
