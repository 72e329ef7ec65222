package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/marlowe/dicta/internal/config"
	"github.com/marlowe/dicta/internal/server/mcp"
	"github.com/marlowe/dicta/internal/share"
	"github.com/marlowe/dicta/internal/transcribe"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.dictarc or /etc/dicta/config.yaml)")
	language    = flag.String("language", "", "Default transcription language code")
	storePath   = flag.String("store", "", "Shared-file handoff store path (default: config, then standard location)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("dicta-mcp v%s\n", Version)
		fmt.Printf("  Commit: %s\n", GitCommit)
		fmt.Printf("  Built:  %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	lang := cfg.Language
	if *language != "" {
		lang = *language
	}

	store := cfg.Share.StorePath
	if *storePath != "" {
		store = *storePath
	}
	if store == "" {
		store = share.DefaultStorePath()
	}

	server, err := mcp.NewServer(mcp.Config{
		ServerName:    "dicta",
		ServerVersion: Version,
		Transcribe: transcribe.Config{
			Endpoint: cfg.Transcribe.Endpoint,
			APIKey:   config.APIKey(),
			Model:    cfg.Transcribe.Model,
			Timeout:  time.Duration(cfg.Transcribe.TimeoutSeconds) * time.Second,
		},
		Language:  lang,
		StorePath: store,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer server.Stop()

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
