package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/marlowe/dicta/internal/transcribe"
)

type TranscribeFileArgs struct {
	Path     string `json:"path,omitempty" jsonschema:"description=Path to the audio or video file to transcribe"`
	Data     string `json:"data,omitempty" jsonschema:"description=Base64-encoded file contents (alternative to path)"`
	Name     string `json:"name,omitempty" jsonschema:"description=File name used for type detection when data is given"`
	Language string `json:"language,omitempty" jsonschema:"description=Transcription language code (default: server language)"`
}

type ListLanguagesArgs struct{}

type TakeSharedFileArgs struct {
	Language string `json:"language,omitempty" jsonschema:"description=Transcription language code (default: server language)"`
}

func (s *Server) handleTranscribeFile(ctx context.Context, req *sdk.CallToolRequest, args TranscribeFileArgs) (*sdk.CallToolResult, any, error) {
	var (
		data []byte
		name string
		err  error
	)

	switch {
	case args.Path != "":
		data, err = os.ReadFile(args.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read file: %w", err)
		}
		name = filepath.Base(args.Path)
	case args.Data != "":
		data, err = base64.StdEncoding.DecodeString(args.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid base64 data: %w", err)
		}
		name = args.Name
		if name == "" {
			return nil, nil, fmt.Errorf("name is required when passing inline data")
		}
	default:
		return nil, nil, fmt.Errorf("either path or data must be given")
	}

	text, err := s.transcribe(ctx, name, data, args.Language)
	if err != nil {
		return nil, nil, err
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}, nil, nil
}

func (s *Server) handleListLanguages(ctx context.Context, req *sdk.CallToolRequest, args ListLanguagesArgs) (*sdk.CallToolResult, any, error) {
	codes := transcribe.SupportedLanguages()
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: strings.Join(codes, ", ")}},
	}, nil, nil
}

func (s *Server) handleTakeSharedFile(ctx context.Context, req *sdk.CallToolRequest, args TakeSharedFileArgs) (*sdk.CallToolResult, any, error) {
	shared, err := s.store.Take()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read handoff store: %w", err)
	}
	if shared == nil {
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: "no shared file is waiting"}},
		}, nil, nil
	}

	text, err := s.transcribe(ctx, shared.Name, shared.Data, args.Language)
	if err != nil {
		return nil, nil, err
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: fmt.Sprintf("Transcribed %s:", shared.Name)},
			&sdk.TextContent{Text: text},
		},
	}, nil, nil
}

func (s *Server) transcribe(ctx context.Context, name string, data []byte, language string) (string, error) {
	mediaType, err := transcribe.ResolveMediaType(name, "")
	if err != nil {
		return "", err
	}

	if language == "" {
		language = s.config.Language
	}

	text, err := s.client.TranscribeFile(ctx, data, mediaType, language)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return text, nil
}
