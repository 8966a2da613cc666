package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/return-tracker/internal/imaging"
	"github.com/zombor/return-tracker/internal/ocr"
	"github.com/zombor/return-tracker/internal/record"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("return-tracker")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		dbPath          = fs.StringLong("db", "return-tracker.db", "Database file path")
		imagePath       = fs.StringLong("images", "./receipts", "Receipt image directory path")
		extractorType   = fs.StringLong("extractor", "none", "Extraction backend: 'gemini', 'edge' or 'none'")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		edgeURL         = fs.StringLong("edge-url", "", "Extraction function endpoint URL")
		edgeKey         = fs.StringLong("edge-key", "", "Extraction function API key")
		returnByNotPast = fs.BoolLong("strict-return-by", "Reject new records whose return-by date has already passed")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RETURN_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := record.NewBoltDB(*dbPath, version)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	appVersion, err := db.AppVersion()
	if err != nil {
		slog.Error("Failed to read app version", "error", err)
		os.Exit(1)
	}
	slog.Info("App version", "version", appVersion)

	// Initialize extraction backend
	var assist *ocr.Assist
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err := ocr.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer extractor.Close()
		assist = ocr.NewAssist(extractor)
	case "edge":
		slog.Info("Initializing edge extractor...", "url", *edgeURL)
		extractor, err := ocr.NewEdgeFunction(*edgeURL, *edgeKey)
		if err != nil {
			slog.Error("Failed to initialize edge extractor", "error", err)
			os.Exit(1)
		}
		defer extractor.Close()
		assist = ocr.NewAssist(extractor)
	case "none":
		slog.Info("No extraction backend configured; autofill disabled")
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini, edge or none")
		os.Exit(1)
	}

	// Initialize image storage
	slog.Info("Initializing image storage...")
	store, err := record.NewLocalStorage(*imagePath)
	if err != nil {
		slog.Error("Failed to initialize image storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	policy := record.Policy{RequireReturnByNotPast: *returnByNotPast}
	service := record.NewService(db, store, policy)

	// Initialize server
	basicAuth := record.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := record.NewServer(service, assist, imaging.Options{}, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
