package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func sineSamples(sampleRate int, duration, frequency float64) []float32 {
	numSamples := int(float64(sampleRate) * duration)
	samples := make([]float32, numSamples)
	for i := range samples {
		ts := float64(i) / float64(sampleRate)
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*frequency*ts))
	}
	return samples
}

func TestEncodeWAV(t *testing.T) {
	sampleRate := 16000
	samples := sineSamples(sampleRate, 0.1, 440.0)

	wavData, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expectedSize := 44 + len(samples)*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	if err := ValidateWAV(wavData); err != nil {
		t.Errorf("Generated WAV is invalid: %v", err)
	}
}

func TestEncodeWAVHeaderFields(t *testing.T) {
	sampleRate := 16000
	samples := make([]float32, 320)

	wavData, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	// Fixed byte offsets per the RIFF/WAVE layout
	if string(wavData[0:4]) != "RIFF" {
		t.Error("Missing RIFF marker at offset 0")
	}
	if string(wavData[8:12]) != "WAVE" {
		t.Error("Missing WAVE marker at offset 8")
	}
	if string(wavData[12:16]) != "fmt " {
		t.Error("Missing fmt chunk at offset 12")
	}
	if got := binary.LittleEndian.Uint16(wavData[20:22]); got != 1 {
		t.Errorf("Expected PCM format tag 1, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wavData[22:24]); got != 1 {
		t.Errorf("Expected 1 channel, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(wavData[24:28]); got != uint32(sampleRate) {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, got)
	}
	if got := binary.LittleEndian.Uint32(wavData[28:32]); got != uint32(sampleRate*2) {
		t.Errorf("Expected byte rate %d, got %d", sampleRate*2, got)
	}
	if got := binary.LittleEndian.Uint16(wavData[32:34]); got != 2 {
		t.Errorf("Expected block align 2, got %d", got)
	}
	if got := binary.LittleEndian.Uint16(wavData[34:36]); got != 16 {
		t.Errorf("Expected bit depth 16, got %d", got)
	}
	if string(wavData[36:40]) != "data" {
		t.Error("Missing data chunk at offset 36")
	}
	if got := binary.LittleEndian.Uint32(wavData[40:44]); got != uint32(len(samples)*2) {
		t.Errorf("Expected payload length %d, got %d", len(samples)*2, got)
	}
}

func TestEncodeWAVDeterministic(t *testing.T) {
	samples := sineSamples(16000, 0.05, 220.0)

	first, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	second, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatal("Encodes of the same input differ in length")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Encodes of the same input differ at byte %d", i)
		}
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	sampleRate := 16000
	samples := sineSamples(sampleRate, 0.1, 440.0)

	wavData, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, rate, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if rate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	maxErr := 1.0 / 32768.0
	for i := range samples {
		diff := math.Abs(float64(decoded[i]) - float64(samples[i]))
		if diff > maxErr {
			t.Fatalf("Sample %d: error %f exceeds quantization bound %f", i, diff, maxErr)
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("not a wav file")); err == nil {
		t.Error("Expected error for short data")
	}

	bad := make([]byte, 64)
	copy(bad, "RIFFxxxxNOPE")
	if _, _, err := DecodeWAV(bad); err == nil {
		t.Error("Expected error for wrong format marker")
	}
}

func TestWAVDuration(t *testing.T) {
	sampleRate := 16000
	samples := make([]float32, sampleRate/2) // half a second

	wavData, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	duration, err := WAVDuration(wavData)
	if err != nil {
		t.Fatalf("WAVDuration failed: %v", err)
	}

	if math.Abs(duration-0.5) > 0.001 {
		t.Errorf("Expected duration 0.5s, got %f", duration)
	}
}

func TestEncodeWAVEmptyInput(t *testing.T) {
	wavData, err := EncodeWAV(nil, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if len(wavData) != 44 {
		t.Errorf("Expected header-only file of 44 bytes, got %d", len(wavData))
	}
}
