// Package mcp exposes dicta's file transcription flow as an MCP server over
// stdio, so editor agents can transcribe recordings without the interactive
// CLI.
package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/marlowe/dicta/internal/share"
	"github.com/marlowe/dicta/internal/transcribe"
)

type Config struct {
	ServerName    string
	ServerVersion string

	// Transcribe configures the hosted transcription client
	Transcribe transcribe.Config

	// Language is the default transcription language
	Language string

	// StorePath locates the shared-file handoff store. Empty disables the
	// take_shared_file tool.
	StorePath string
}

type Server struct {
	config    Config
	mcpServer *sdk.Server
	client    *transcribe.Client
	store     *share.Store
}

func NewServer(cfg Config) (*Server, error) {
	client, err := transcribe.NewClient(cfg.Transcribe)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription client: %w", err)
	}

	s := &Server{
		config: cfg,
		client: client,
	}

	if cfg.StorePath != "" {
		store, err := share.Open(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open handoff store: %w", err)
		}
		s.store = store
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()

	return s, nil
}

func (s *Server) Start() error {
	return s.mcpServer.Run(context.Background(), &sdk.StdioTransport{})
}

func (s *Server) Stop() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "transcribe_file",
		Description: "Transcribe an audio or video file to text",
	}, s.handleTranscribeFile)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_languages",
		Description: "List the transcription languages this server supports",
	}, s.handleListLanguages)

	if s.store != nil {
		sdk.AddTool(s.mcpServer, &sdk.Tool{
			Name:        "take_shared_file",
			Description: "Take and transcribe the file most recently shared to dicta, consuming it",
		}, s.handleTakeSharedFile)
	}
}
