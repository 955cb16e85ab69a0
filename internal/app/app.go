// Package app assembles the course assistant from its components: Genkit
// with the Google AI plugin, the embedded vector store, the course tools,
// the generator and the session store.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/coursechat/coursechat/internal/config"
	"github.com/coursechat/coursechat/internal/course"
	"github.com/coursechat/coursechat/internal/generation"
	"github.com/coursechat/coursechat/internal/rag"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/tools"
	"github.com/coursechat/coursechat/internal/vectorstore"
)

// App holds the wired application.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Genkit *genkit.Genkit
	Store  *vectorstore.Store
	System *rag.System
}

// New builds the application. Requires GEMINI_API_KEY in the environment
// (read directly by the Genkit Google AI plugin).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	embedFunc := vectorstore.NewEmbeddingFuncWithDimensions(embedder, cfg.EmbeddingDimensions)

	store, err := vectorstore.New(ctx, vectorstore.Config{
		PersistDir:    cfg.PersistDir,
		MaxResults:    cfg.MaxResults,
		MinSimilarity: cfg.MinSimilarity,
	}, embedFunc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	search, err := tools.NewSearch(store, logger)
	if err != nil {
		return nil, fmt.Errorf("creating search tool: %w", err)
	}
	outline, err := tools.NewOutline(store, logger)
	if err != nil {
		return nil, fmt.Errorf("creating outline tool: %w", err)
	}
	if _, err := tools.Register(g, search, outline); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	registry := tools.NewRegistry(g, tools.SearchCourseContentName, tools.GetCourseOutlineName)

	generator, err := generation.New(generation.Config{
		Genkit:    g,
		Registry:  registry,
		Logger:    logger,
		ModelName: cfg.FullModelName(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	system, err := rag.New(rag.Config{
		Store:     store,
		Processor: course.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap),
		Generator: generator,
		Sessions:  session.NewStore(cfg.MaxHistoryExchanges, logger),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rag system: %w", err)
	}

	logger.Info("application assembled",
		"model", cfg.FullModelName(),
		"embedder", cfg.EmbedderModel,
		"courses", store.CourseCount())

	return &App{
		Config: cfg,
		Logger: logger,
		Genkit: g,
		Store:  store,
		System: system,
	}, nil
}
