package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/api"
	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/completion"
	"github.com/anass-elhannaoui/RecieptsBudgetizerBackend/internal/ocr"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("receipt-budgetizer")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		threshold   = fs.StringLong("confidence-threshold", "0.35", "Minimum OCR confidence accepted for extraction")
		allowLow    = fs.BoolLong("allow-low-confidence", "Let the pattern endpoint proceed below the confidence threshold")
		categorize  = fs.BoolLong("categorize", "Use the AI provider to categorize items on the pattern endpoint")
		ocrEngine   = fs.StringLong("ocr-engine", "remote", "OCR engine: 'remote' or 'tesseract'")
		ocrURL      = fs.StringLong("ocr-url", "http://localhost:8501", "Remote OCR service base URL")
		ocrLanguage = fs.StringLong("ocr-language", "eng", "Tesseract language")
		aiProvider  = fs.StringLong("ai-provider", "", "AI provider: 'gemini', 'openai' or 'ollama' (empty disables AI parsing)")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		openaiKey   = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiModel = fs.StringLong("openai-model", "gpt-4o-mini", "OpenAI model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llama3.1", "Ollama model name")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_BUDGETIZER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	confidenceThreshold, err := strconv.ParseFloat(*threshold, 64)
	if err != nil || confidenceThreshold < 0 || confidenceThreshold > 1 {
		slog.Error("Invalid confidence threshold, must be a number in [0,1]", "value", *threshold)
		os.Exit(1)
	}

	// Initialize OCR engine
	var engine ocr.Engine
	switch *ocrEngine {
	case "remote":
		slog.Info("Initializing remote OCR engine...", "url", *ocrURL)
		engine, err = ocr.NewRemote(*ocrURL)
	case "tesseract":
		slog.Info("Initializing Tesseract OCR engine...", "language", *ocrLanguage)
		engine, err = ocr.NewTesseract(*ocrLanguage)
	default:
		slog.Error("Invalid OCR engine", "engine", *ocrEngine, "valid", "remote or tesseract")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize OCR engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Initialize AI completer. Without one, categorization degrades to
	// Uncategorized and the AI endpoint reports the feature unavailable.
	var completer completion.Completer
	switch *aiProvider {
	case "":
		slog.Info("No AI provider configured, AI parsing disabled")
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini completer...", "model", *geminiModel)
		completer, err = completion.NewGemini(apiKey, *geminiModel)
	case "openai":
		apiKey := *openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("OpenAI API key is required. Set --openai-key flag or OPENAI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing OpenAI completer...", "model", *openaiModel)
		completer, err = completion.NewOpenAI(apiKey, *openaiModel)
	case "ollama":
		slog.Info("Initializing Ollama completer...", "url", *ollamaURL, "model", *ollamaModel)
		completer, err = completion.NewOllama(*ollamaURL, *ollamaModel)
	default:
		slog.Error("Invalid AI provider", "provider", *aiProvider, "valid", "gemini, openai or ollama")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize AI provider", "error", err)
		os.Exit(1)
	}
	if completer != nil {
		defer completer.Close()
	}

	// Initialize pipeline service
	service := api.NewService(engine, completer, api.Config{
		ConfidenceThreshold: confidenceThreshold,
		AllowLowConfidence:  *allowLow,
		CategorizeItems:     *categorize,
	})

	server := api.NewServer(service, version)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
