package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/marlowe/dicta/internal/note"
)

// Note is one finished dictation: the settled transcript plus session
// metadata, ready for export.
type Note struct {
	Text         string    `json:"text"`
	Language     string    `json:"language,omitempty"`
	DurationSecs int       `json:"duration_secs,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
}

// Exporter writes a finished note to a destination format.
type Exporter interface {
	// Export writes the note
	Export(note Note) error
}

// JSONExporter writes notes as indented JSON documents
type JSONExporter struct {
	encoder *json.Encoder
}

// NewJSONExporter creates a JSON exporter
func NewJSONExporter(writer io.Writer) *JSONExporter {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return &JSONExporter{encoder: encoder}
}

// Export writes the note as one JSON document
func (j *JSONExporter) Export(note Note) error {
	return j.encoder.Encode(note)
}

// TextExporter writes notes as plain text, with inline style markers
// stripped
type TextExporter struct {
	writer io.Writer
}

// NewTextExporter creates a plain text exporter
func NewTextExporter(writer io.Writer) *TextExporter {
	return &TextExporter{writer: writer}
}

// Export writes the transcript followed by a newline
func (t *TextExporter) Export(n Note) error {
	_, err := fmt.Fprintf(t.writer, "%s\n", note.StripMarkers(n.Text))
	return err
}

// MarkdownExporter writes notes as a markdown document with a metadata
// header, preserving any inline style markers in the transcript.
type MarkdownExporter struct {
	writer io.Writer
}

// NewMarkdownExporter creates a markdown exporter
func NewMarkdownExporter(writer io.Writer) *MarkdownExporter {
	return &MarkdownExporter{writer: writer}
}

// Export writes the note with a heading and metadata lines
func (m *MarkdownExporter) Export(note Note) error {
	title := note.RecordedAt.Format("2006-01-02 15:04")
	if _, err := fmt.Fprintf(m.writer, "# Note %s\n\n", title); err != nil {
		return err
	}
	if note.DurationSecs > 0 {
		if _, err := fmt.Fprintf(m.writer, "_%02d:%02d recorded_\n\n", note.DurationSecs/60, note.DurationSecs%60); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(m.writer, "%s\n", note.Text)
	return err
}
