package audio

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestDecodeWAVRoundtrip(t *testing.T) {
	orig := Tone(440, 200*time.Millisecond)
	data := EncodeWAV(orig)

	clip, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if clip.Format != orig.Format {
		t.Errorf("format changed in roundtrip: got %+v, want %+v", clip.Format, orig.Format)
	}
	if len(clip.PCM) != len(orig.PCM) {
		t.Errorf("PCM length changed: got %d, want %d", len(clip.PCM), len(orig.PCM))
	}
	if got, want := clip.Duration(), orig.Duration(); got != want {
		t.Errorf("duration changed: got %v, want %v", got, want)
	}
}

func TestDecodeWAVMalformed(t *testing.T) {
	valid := EncodeWAV(Tone(220, 50*time.Millisecond))

	nonPCM := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(nonPCM[20:22], 3) // float codec

	eightBit := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)

	truncated := append([]byte(nil), valid[:30]...)

	noData := EncodeWAV(&Clip{Format: DefaultFormat()})[:44]
	// Chop the data chunk header off entirely.
	noData = noData[:36]
	binary.LittleEndian.PutUint32(noData[4:8], uint32(len(noData)-8))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("this is not audio at all, sorry")},
		{"truncated chunk", truncated},
		{"non-pcm codec", nonPCM},
		{"8-bit depth", eightBit},
		{"missing data chunk", noData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWAV(tt.data)
			if err == nil {
				t.Fatal("expected decode error, got nil")
			}
			var derr *DecodeError
			if !errors.As(err, &derr) {
				t.Errorf("expected *DecodeError, got %T: %v", err, err)
			}
		})
	}
}

func TestDecodeWAVRaggedTail(t *testing.T) {
	clip := Tone(440, 50*time.Millisecond)
	data := EncodeWAV(clip)
	// Grow the data chunk by one byte so the PCM payload is no longer
	// frame-aligned.
	data = append(data, 0x7f)
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)-8))
	binary.LittleEndian.PutUint32(data[40:44], uint32(len(clip.PCM)+1))

	got, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed on ragged tail: %v", err)
	}
	if len(got.PCM) != len(clip.PCM) {
		t.Errorf("ragged tail not trimmed: got %d bytes, want %d", len(got.PCM), len(clip.PCM))
	}
}

func TestDecodeWAVStereo(t *testing.T) {
	mono := Tone(440, 100*time.Millisecond)
	stereo := Convert(mono, Format{SampleRate: 44100, Channels: 2, BitDepth: 16})
	data := EncodeWAV(stereo)

	b := NewMockBackend()
	clip, err := b.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if clip.Format != DefaultFormat() {
		t.Errorf("backend decode did not normalize format: got %+v", clip.Format)
	}
	if d := clip.Duration() - mono.Duration(); d > 2*time.Millisecond || d < -2*time.Millisecond {
		t.Errorf("duration drifted through conversion: got %v, want about %v", clip.Duration(), mono.Duration())
	}
}
