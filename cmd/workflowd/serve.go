package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/config"
	"github.com/fyrsmithlabs/workflowd/internal/contextmgr"
	"github.com/fyrsmithlabs/workflowd/internal/contract"
	"github.com/fyrsmithlabs/workflowd/internal/executor"
	"github.com/fyrsmithlabs/workflowd/internal/httpapi"
	"github.com/fyrsmithlabs/workflowd/internal/llm"
	"github.com/fyrsmithlabs/workflowd/internal/logging"
	"github.com/fyrsmithlabs/workflowd/internal/memory"
	"github.com/fyrsmithlabs/workflowd/internal/retrieval"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestration HTTP server",
	RunE:  runServe,
}

// runtime bundles the wired core for reuse by one-shot commands.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	exec   *executor.Executor
	memory *memory.Service
}

// loadBase loads configuration and constructs the logger.
func loadBase() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func buildRuntime() (*runtime, error) {
	cfg, logger, err := loadBase()
	if err != nil {
		return nil, err
	}

	client, err := llm.NewAnthropicClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		MaxTokens:         cfg.LLM.MaxTokens,
		RequestTimeout:    cfg.LLM.RequestTimeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring llm client: %w", err)
	}

	storage, err := memory.NewFileStorage(cfg.Memory.Dir)
	if err != nil {
		return nil, err
	}
	mem, err := memory.NewService(storage, cfg.Memory.MaxLearnings, logger)
	if err != nil {
		return nil, err
	}

	retriever, err := buildRetriever(cfg, logger)
	if err != nil {
		return nil, err
	}

	contexts := contextmgr.NewManager(
		contextmgr.NewNotekeeper(),
		retriever,
		contextmgr.NewBudgetMonitor(cfg.Budget.MaxTokens, cfg.Budget.WarningThreshold),
		logger,
	)

	var instructions executor.InstructionSource
	if cfg.Executor.InstructionsDir != "" {
		instructions = executor.NewDirInstructionSource(cfg.Executor.InstructionsDir)
	}

	exec, err := executor.New(executor.Config{
		DefaultTimeout: cfg.Executor.Timeout,
		DefaultRetries: cfg.Executor.Retries,
		BackoffBase:    cfg.Executor.BackoffBase,
		BackoffMax:     cfg.Executor.BackoffMax,
	}, client, contract.NewRegistry(), executor.NewMemoryHistoryStore(), instructions, contexts, logger)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, exec: exec, memory: mem}, nil
}

// buildRetriever composes the configured retrieval sources. With nothing
// configured it returns nil and context assembly skips retrieval.
func buildRetriever(cfg *config.Config, logger *logging.Logger) (retrieval.Retriever, error) {
	var sources []retrieval.Retriever

	var docs []retrieval.Document
	if cfg.Retrieval.RepoPath != "" {
		var err error
		docs, err = retrieval.LoadRepoFiles(cfg.Retrieval.RepoPath)
		if err != nil {
			return nil, fmt.Errorf("indexing repository files: %w", err)
		}
		sources = append(sources, retrieval.NewKeywordRetriever(docs...))
	}
	if cfg.Retrieval.VectorDir != "" {
		vec, err := retrieval.NewPersistentVectorRetriever(cfg.Retrieval.VectorDir, chromem.NewEmbeddingFuncDefault())
		if err != nil {
			return nil, fmt.Errorf("opening vector index: %w", err)
		}
		// Embedding is the expensive step; only index a fresh collection.
		if len(docs) > 0 && vec.Len() == 0 {
			if err := vec.Index(context.Background(), docs...); err != nil {
				return nil, fmt.Errorf("embedding repository files: %w", err)
			}
		}
		sources = append(sources, vec)
	}
	if cfg.Retrieval.GitHubOwner != "" && cfg.Retrieval.GitHubRepo != "" {
		sources = append(sources, retrieval.NewGitHubIssueRetriever(
			context.Background(), cfg.Retrieval.GitHubToken, cfg.Retrieval.GitHubOwner, cfg.Retrieval.GitHubRepo))
	}
	if len(sources) == 0 {
		return nil, nil
	}
	return retrieval.NewMultiRetriever(logger, sources...)
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	server, err := httpapi.NewServer(rt.exec, rt.memory, rt.logger.Zap(), rt.cfg.Server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	rt.logger.Zap().Info("workflowd started", zap.String("addr", rt.cfg.Server.Addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		rt.logger.Zap().Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
