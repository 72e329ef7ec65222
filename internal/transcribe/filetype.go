package transcribe

import (
	"fmt"
	"path/filepath"
	"strings"
)

// extensionTypes maps filename extensions to canonical media types. The
// extension wins over the reported type because browsers and OSes frequently
// mislabel audio files.
var extensionTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"mpga": "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"mp4":  "audio/mp4",
	"aac":  "audio/aac",
	"flac": "audio/flac",
	"ogg":  "audio/ogg",
	"opus": "audio/ogg",
	"oga":  "audio/ogg",
	"webm": "audio/webm",
	"3gp":  "audio/3gpp",
	"amr":  "audio/amr",
}

// videoWhitelist lists video container types known to carry audio-only
// content acceptably.
var videoWhitelist = map[string]bool{
	"video/mp4":  true,
	"video/webm": true,
	"video/3gpp": true,
	"video/mpeg": true,
}

// UnsupportedFileTypeError reports a file whose resolved media type cannot
// be transcribed. The detected type is included in the message.
type UnsupportedFileTypeError struct {
	Name string
	Type string
}

func (e *UnsupportedFileTypeError) Error() string {
	detected := e.Type
	if detected == "" {
		detected = "unknown"
	}
	return fmt.Sprintf("unsupported file type for %s: %s", e.Name, detected)
}

// ResolveMediaType resolves a file's canonical media type from its filename
// extension, falling back to the reported type. Known mislabelings (notably
// audio/x-m4a) are corrected. Files resolving to neither audio/* nor a
// whitelisted video container are rejected.
func ResolveMediaType(name, reportedType string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	resolved := extensionTypes[ext]
	if resolved == "" {
		resolved = normalizeReportedType(reportedType)
	}

	if strings.HasPrefix(resolved, "audio/") || videoWhitelist[resolved] {
		return resolved, nil
	}

	return "", &UnsupportedFileTypeError{Name: name, Type: resolved}
}

// normalizeReportedType corrects known mislabeled media types.
func normalizeReportedType(reported string) string {
	reported = strings.ToLower(strings.TrimSpace(reported))
	if reported == "audio/x-m4a" {
		return "audio/mp4"
	}
	return reported
}
