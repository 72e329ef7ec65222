package audio

import (
	"encoding/binary"
	"fmt"
)

// InputSampleRate is the capture sample rate expected by the streaming
// transcription channel (16 kHz mono).
const InputSampleRate = 16000

// PCMMimeType is the format descriptor attached to every streamed frame.
const PCMMimeType = "audio/pcm;rate=16000"

// EncodeFrame converts normalized float samples into 16-bit little-endian PCM
// for streaming. Samples are clamped to [-1, 1]. Negative values scale by
// 32768 and non-negative by 32767, matching the device's native signed
// integer range.
func EncodeFrame(samples []float32) ([]byte, string) {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sampleToInt16(s)))
	}
	return out, PCMMimeType
}

// DecodePCM16 converts 16-bit little-endian PCM bytes back into normalized
// float samples (divide by 32768). The byte length must be even.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (got %d bytes)", len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples, nil
}

func sampleToInt16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}
