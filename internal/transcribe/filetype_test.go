package transcribe

import (
	"errors"
	"testing"
)

func TestResolveMediaType(t *testing.T) {
	tests := []struct {
		name     string
		reported string
		want     string
	}{
		{"voice.mp3", "", "audio/mpeg"},
		{"voice.mpga", "", "audio/mpeg"},
		{"voice.wav", "", "audio/wav"},
		{"voice.m4a", "audio/x-m4a", "audio/mp4"},
		{"VOICE.M4A", "", "audio/mp4"},
		{"clip.mp4", "", "audio/mp4"},
		{"voice.aac", "", "audio/aac"},
		{"voice.flac", "", "audio/flac"},
		{"voice.ogg", "", "audio/ogg"},
		{"voice.opus", "", "audio/ogg"},
		{"voice.oga", "", "audio/ogg"},
		{"clip.webm", "", "audio/webm"},
		{"clip.3gp", "", "audio/3gpp"},
		{"voice.amr", "", "audio/amr"},
		// Unknown extension falls back to the reported type
		{"clip.bin", "audio/wav", "audio/wav"},
		{"clip.bin", "audio/x-m4a", "audio/mp4"},
		// Whitelisted video containers are accepted
		{"clip.xyz", "video/mp4", "video/mp4"},
		{"clip.xyz", "video/webm", "video/webm"},
	}

	for _, tt := range tests {
		got, err := ResolveMediaType(tt.name, tt.reported)
		if err != nil {
			t.Errorf("ResolveMediaType(%q, %q) failed: %v", tt.name, tt.reported, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveMediaType(%q, %q) = %q, want %q", tt.name, tt.reported, got, tt.want)
		}
	}
}

func TestResolveMediaTypeRejects(t *testing.T) {
	tests := []struct {
		name     string
		reported string
	}{
		{"clip.xyz", ""},
		{"notes.txt", "text/plain"},
		{"movie.avi", "video/x-msvideo"},
		{"image.png", "image/png"},
	}

	for _, tt := range tests {
		_, err := ResolveMediaType(tt.name, tt.reported)
		if err == nil {
			t.Errorf("ResolveMediaType(%q, %q): expected rejection", tt.name, tt.reported)
			continue
		}

		var unsupported *UnsupportedFileTypeError
		if !errors.As(err, &unsupported) {
			t.Errorf("ResolveMediaType(%q, %q): expected UnsupportedFileTypeError, got %T", tt.name, tt.reported, err)
		}
	}
}

func TestLanguageInstruction(t *testing.T) {
	for _, code := range SupportedLanguages() {
		instruction, err := LanguageInstruction(code)
		if err != nil {
			t.Errorf("LanguageInstruction(%q) failed: %v", code, err)
		}
		if instruction == "" {
			t.Errorf("LanguageInstruction(%q) returned empty instruction", code)
		}
	}

	if _, err := LanguageInstruction("xx"); err == nil {
		t.Error("Expected error for unsupported language")
	}
}
