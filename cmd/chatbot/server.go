package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/agent"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/api"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/config"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/engine"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/ingest"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/intent"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/persona"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/proxy"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/retrieval"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/skills"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/speech"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and backend status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// backend holds everything a process needs to route, ingest and analyze.
type backend struct {
	cfg       config.Config
	engine    engine.Engine
	store     *storage.Store
	index     retrieval.Index
	retriever *retrieval.Retriever
	closers   []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			slog.Warn("closing backend", "error", err)
		}
	}
}

// openBackend detects the model engine, opens storage and selects the vector
// index. An unreachable Qdrant degrades retrieval instead of failing startup.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	eng, err := engine.Detect(engine.DetectConfig{
		Provider:      cfg.LLM.Provider,
		OllamaBaseURL: cfg.Ollama.BaseURL,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting inference engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, cfg.ChatModel(), cfg.EmbedModel(), os.Stderr); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	b := &backend{cfg: cfg, engine: eng, store: store, closers: []func() error{store.Close}}

	switch cfg.Index.Backend {
	case "qdrant":
		q, err := retrieval.NewQdrant(cfg.Index.QdrantHost, cfg.Index.QdrantPort, cfg.Index.QdrantPrefix)
		if err == nil {
			b.closers = append(b.closers, q.Close)
			err = q.Ping(ctx)
		}
		if err != nil {
			slog.Warn("vector index unavailable, retrieval is degraded", "backend", "qdrant", "error", err)
			b.index = retrieval.Unavailable(err)
		} else {
			b.index = q
		}
	default:
		b.index = retrieval.NewSQLiteIndex(store.DB())
	}

	b.retriever = retrieval.NewRetriever(retrieval.NewEmbedder(eng, cfg.EmbedModel()), b.index)
	return b, nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "chatbot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	reg, err := skills.NewRegistry(skills.Deps{Chat: b.engine, Model: cfg.ChatModel(), Search: b.retriever})
	if err != nil {
		return fmt.Errorf("building skill registry: %w", err)
	}
	router := agent.New(intent.NewResolver(b.engine, cfg.ChatModel(), reg), agent.NewDispatcher(reg))
	analyzer := persona.NewAnalyzer(b.index, b.engine, cfg.ChatModel(), cfg.Persona.Subject)

	pipeline := ingest.New(b.retriever, ingest.Options{
		Workers:   cfg.Ingest.Workers,
		QueueSize: cfg.Ingest.QueueSize,
		Logger:    slog.Default(),
	})

	var codec speech.Codec
	if cfg.SpeechEnabled() {
		codec = speech.New(proxy.NewClient(cfg.Speech.APIKey, cfg.Speech.BaseURL), speech.Config{
			TranscribeModel: cfg.Speech.TranscribeModel,
			SpeechModel:     cfg.Speech.TTSModel,
			Voice:           cfg.Speech.Voice,
		})
	} else {
		slog.Info("speech disabled: no API key configured")
	}

	handler := api.NewHandler(api.Deps{
		Agent:    router,
		Analyzer: analyzer,
		Ingest:   pipeline,
		Index:    b.index,
		Speech:   codec,
		Store:    b.store,
		Token:    cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "chatbot listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Agent: router, Analyzer: analyzer, Ingest: pipeline, Store: b.store})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if cerr := pipeline.Close(shutdownCtx); cerr != nil {
			slog.Warn("ingest pipeline did not drain", "error", cerr, "stats", pipeline.Stats())
		}
		return err
	})

	return g.Wait()
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var health api.HealthResponse
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else if err := decodeJSON(resp, &health); err != nil {
		printStatus("Server", "error (%v)", err)
	} else {
		printStatus("Server", "running on port %d", cfg.Server.Port)
		printStatus("Vector index", "%s (%s)", health.Index, cfg.Index.Backend)
		printStatus("Speech", "%s", enabledLabel(health.Speech))
		if health.Ingest != nil {
			printStatus("Ingest", "%d submitted, %d pending, %d failed",
				health.Ingest.Submitted, health.Ingest.Pending, health.Ingest.Failed)
		}
	}

	printStatus("Provider", "%s", cfg.LLM.Provider)
	printStatus("Chat model", "%s", cfg.ChatModel())
	printStatus("Embed model", "%s", cfg.EmbedModel())
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
