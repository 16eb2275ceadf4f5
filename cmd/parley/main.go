package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	chromem "github.com/philippgille/chromem-go"

	"parley/internal/adapter/checkpoint"
	"parley/internal/adapter/gateway"
	"parley/internal/adapter/knowledge"
	"parley/internal/adapter/llm"
	"parley/internal/adapter/memory"
	"parley/internal/adapter/search"
	"parley/internal/adapter/tool"
	"parley/internal/domain"
	"parley/internal/infra/config"
	"parley/internal/infra/logger"
	"parley/internal/infra/tracer"
	"parley/internal/specialist"
	"parley/internal/usecase/coordinate"
	"parley/internal/usecase/orchestrate"
	"parley/internal/usecase/planning"
)

var version = "dev"

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "version":
			fmt.Println("parley " + version)
			return
		}
	}

	cmd := "serve"
	if len(os.Args) >= 2 && !strings.HasPrefix(os.Args[1], "-") {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe()
	case "chat":
		err = runChat()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'parley --help' for usage.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`parley - multi-agent conversation orchestrator

Usage:
  parley [serve]     start the HTTP gateway (default)
  parley chat        interactive chat on stdin
  parley version     print version

Configuration is read from parley.yaml (override with PARLEY_CONFIG),
with PARLEY_* environment variables taking precedence.`)
}

func configPath() string {
	if p := os.Getenv("PARLEY_CONFIG"); p != "" {
		return p
	}
	return "parley.yaml"
}

// app bundles the wired system for both entry modes.
type app struct {
	orchestrator *orchestrate.Orchestrator
	cfg          *config.Config
	logger       *slog.Logger
	cleanup      []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log}
	a.cleanup = append(a.cleanup, func() { closeLog() })

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.close()
		return nil, err
	}
	a.cleanup = append(a.cleanup, func() { shutdownTracer(context.Background()) })

	// LLM provider: rate limited, breaker protected.
	provider := llm.NewRateLimitedProvider(
		llm.NewCircuitBreakerProvider(
			llm.NewOpenAIProvider(cfg.LLM.Provider, log),
			cfg.LLM.Breaker, log,
		),
		cfg.LLM.RateLimit, cfg.LLM.RateBurst,
	)

	memStore, err := memory.NewSQLiteStore(cfg.Memory.Path)
	if err != nil {
		a.close()
		return nil, err
	}
	a.cleanup = append(a.cleanup, func() { memStore.Close() })

	embed := chromem.NewEmbeddingFuncOpenAICompat(
		cfg.LLM.Provider.BaseURL,
		cfg.LLM.Provider.APIKey,
		"text-embedding-3-small",
		nil,
	)
	knowStore, err := knowledge.NewStore(knowledge.Config{
		PersistPath:    cfg.Knowledge.Path,
		Collection:     cfg.Knowledge.Collection,
		ScoreThreshold: cfg.Knowledge.ScoreThreshold,
		ChunkSize:      cfg.Knowledge.ChunkSize,
		ChunkOverlap:   cfg.Knowledge.ChunkOverlap,
	}, embed, log)
	if err != nil {
		a.close()
		return nil, err
	}

	searcher, err := search.New(cfg.Search.Backend, cfg.Search.BaseURL, cfg.Search.Timeout, log)
	if err != nil {
		a.close()
		return nil, err
	}

	// Augmentation tools. MCP servers are optional.
	toolList := []domain.Tool{
		tool.NewMemoryTool(memStore, 5),
		tool.NewKnowledgeTool(knowStore, 3),
		tool.NewWebSearchTool(searcher, cfg.Search.MaxResults),
	}
	if len(cfg.MCPServers) > 0 {
		bridge, err := tool.NewMCPBridge(ctx, cfg.MCPServers, log)
		if err != nil {
			log.Warn("mcp bridge unavailable, continuing without it", "error", err)
		} else {
			a.cleanup = append(a.cleanup, bridge.Close)
			toolList = append(toolList, bridge.Tools()...)
		}
	}

	registry := coordinate.NewRegistry()
	if err := registry.Register(specialist.NewTravel(provider, log)); err != nil {
		a.close()
		return nil, err
	}
	if err := registry.Register(specialist.NewResearch(provider, knowStore, log)); err != nil {
		a.close()
		return nil, err
	}

	coordinator := coordinate.New(coordinate.Options{
		Provider:   provider,
		Registry:   registry,
		Classifier: coordinate.NewClassifier(provider, cfg.Orchestrator.IntentConfidenceThreshold, log),
		Decomposer: planning.NewDecomposer(provider, cfg.Orchestrator.MaxSubtasks, log),
		Planner:    planning.NewPlanner(log),
		Knowledge:  knowStore,
		Search:     searcher,
		Tools:      coordinate.NewToolSet(log, toolList...),
		Logger:     log,
		MaxResults: cfg.Search.MaxResults,
	})

	var checkpoints orchestrate.CheckpointStore
	if cfg.Orchestrator.Engine == "checkpoint" {
		cpStore, err := checkpoint.NewSQLiteStore(cfg.Orchestrator.CheckpointPath)
		if err != nil {
			log.Warn("checkpoint store unavailable, falling back to sequential engine", "error", err)
		} else {
			a.cleanup = append(a.cleanup, func() { cpStore.Close() })
			checkpoints = cpStore
		}
	}

	a.orchestrator = orchestrate.New(orchestrate.Options{
		Responder:   coordinator,
		Extractor:   planning.NewContextExtractor(provider, cfg.Orchestrator.ContextMessages, cfg.Orchestrator.MaxContextTokens, log),
		Memory:      memStore,
		Knowledge:   knowStore,
		Registry:    registry,
		Checkpoints: checkpoints,
		Logger:      log,
	})
	return a, nil
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.Gateway.Enabled {
		return fmt.Errorf("gateway disabled in config; nothing to serve")
	}

	srv := gateway.NewServer(a.orchestrator, a.cfg.Gateway, a.logger)
	return srv.Start(ctx)
}

func runChat() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println("parley chat - 输入消息，exit 退出")
	scanner := bufio.NewScanner(os.Stdin)
	conversationID := ""

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		result, err := a.orchestrator.ProcessMessage(ctx, input, conversationID, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		conversationID = result.ConversationID
		fmt.Println(result.Response)
		for _, tc := range result.ToolCalls {
			fmt.Printf("  [tool: %s]\n", tc.ToolName)
		}
	}
	return scanner.Err()
}
