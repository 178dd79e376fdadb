package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-ledger/internal/analytics"
	"github.com/zombor/receipt-ledger/internal/receipt"
	"github.com/zombor/receipt-ledger/internal/scanning"
	"github.com/zombor/receipt-ledger/internal/web"
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

	// A missing .env file is fine
	_ = godotenv.Load()

	fs := ff.NewFlagSet("receiptd")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		store       = fs.StringLong("store", "bolt", "Storage backend: 'bolt', 'sqlite' or 'postgres'")
		dbPath      = fs.StringLong("db", "receipts.db", "Database file path (bolt, sqlite) or connection string (postgres)")
		storagePath = fs.StringLong("storage", "./attachments", "Attachment directory path")
		scannerType = fs.StringLong("scanner", "sample", "Scanner type: 'sample', 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		locale      = fs.StringLong("locale", "th", "Display locale: 'th' or 'en'")
		monthly     = fs.StringLong("monthly", "calendar", "Monthly bucketing: 'calendar' or 'legacy' (month number only)")
		maxUpload   = fs.IntLong("max-upload-mb", 50, "Maximum upload size in megabytes")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	loc, err := analytics.ParseLocale(*locale)
	if err != nil {
		slog.Error("Invalid locale", "locale", *locale, "error", err)
		os.Exit(1)
	}
	if *monthly != "calendar" && *monthly != "legacy" {
		slog.Error("Invalid monthly bucketing", "monthly", *monthly, "valid", "calendar or legacy")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config{
		store:       *store,
		dbPath:      *dbPath,
		storagePath: *storagePath,
		scannerType: *scannerType,
		geminiKey:   *geminiKey,
		geminiModel: *geminiModel,
		ollamaURL:   *ollamaURL,
		ollamaModel: *ollamaModel,
		addr:        fmt.Sprintf(":%d", *port),
		web: web.Config{
			BasicAuth:      web.BasicAuth{Username: *authUser, Password: *authPass},
			Locale:         loc,
			LegacyMonthly:  *monthly == "legacy",
			MaxUploadBytes: int64(*maxUpload) << 20,
		},
	}); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}

type config struct {
	store       string
	dbPath      string
	storagePath string
	scannerType string
	geminiKey   string
	geminiModel string
	ollamaURL   string
	ollamaModel string
	addr        string
	web         web.Config
}

func run(ctx context.Context, cfg config) error {
	slog.Info("Initializing database...", "store", cfg.store)
	db, err := openDB(ctx, cfg.store, cfg.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	scanner, err := openScanner(ctx, cfg)
	if err != nil {
		return err
	}
	defer scanner.Close()

	slog.Info("Initializing storage...")
	storage, err := receipt.NewLocalStorage(cfg.storagePath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	service := receipt.NewService(receipt.NewFeed(db), scanner, storage)
	server := web.NewServer(service, cfg.web)

	if cfg.web.BasicAuth.Username != "" || cfg.web.BasicAuth.Password != "" {
		slog.Info("Basic auth enabled", "user", cfg.web.BasicAuth.Username)
	}
	return server.Start(ctx, cfg.addr)
}

func openDB(ctx context.Context, store, path string) (receipt.DB, error) {
	switch store {
	case "bolt":
		return receipt.NewBoltDB(path)
	case "sqlite":
		return receipt.NewSQLDB(ctx, receipt.DriverSQLite, path)
	case "postgres":
		return receipt.NewSQLDB(ctx, receipt.DriverPostgres, path)
	}
	return nil, fmt.Errorf("invalid store %q: valid stores are bolt, sqlite and postgres", store)
}

func openScanner(ctx context.Context, cfg config) (scanning.Scanner, error) {
	switch cfg.scannerType {
	case "sample":
		slog.Warn("Using the sample scanner; every scan returns the same receipt")
		return scanning.NewSample(), nil
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", cfg.geminiModel)
		return scanning.NewGemini(ctx, apiKey, cfg.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	}
	return nil, fmt.Errorf("invalid scanner %q: valid scanners are sample, gemini and ollama", cfg.scannerType)
}
