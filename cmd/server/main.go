package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/berea-ai/berea/chain/knowledge"
	"github.com/berea-ai/berea/chain/router"
	"github.com/berea-ai/berea/embedder"
	embedgoogle "github.com/berea-ai/berea/embedder/google"
	embedmock "github.com/berea-ai/berea/embedder/mock"
	embedopenai "github.com/berea-ai/berea/embedder/openai"
	"github.com/berea-ai/berea/generator"
	genanthropic "github.com/berea-ai/berea/generator/anthropic"
	gengoogle "github.com/berea-ai/berea/generator/google"
	genopenai "github.com/berea-ai/berea/generator/openai"
	"github.com/berea-ai/berea/internal/ledger"
	ledgermemory "github.com/berea-ai/berea/internal/ledger/memory"
	ledgerredis "github.com/berea-ai/berea/internal/ledger/redis"
	"github.com/berea-ai/berea/internal/service/chat"
	"github.com/berea-ai/berea/internal/store"
	storepostgres "github.com/berea-ai/berea/internal/store/postgres"
	storesqlite "github.com/berea-ai/berea/internal/store/sqlite"
	"github.com/berea-ai/berea/retriever"
	"github.com/berea-ai/berea/retriever/timeweighted"
	httpserver "github.com/berea-ai/berea/server/http"
	toolhandler "github.com/berea-ai/berea/tool_handler"
	"github.com/berea-ai/berea/tool_handler/bookmark"
	"github.com/berea-ai/berea/tool_handler/highlight"
	"github.com/berea-ai/berea/tool_handler/search"
	"github.com/berea-ai/berea/vectorstore"
	vectorchromem "github.com/berea-ai/berea/vectorstore/chromem"
	vectormemory "github.com/berea-ai/berea/vectorstore/memory"
	vectorpostgres "github.com/berea-ai/berea/vectorstore/postgres"
)

var (
	cfg struct {
		// Server config
		Address string `help:"Address for the http server" default:":8080"`

		// Relational store config
		Store         string `help:"Relational store backend (sqlite, postgres)" default:"sqlite"`
		StoreLocation string `help:"Relational store location" default:"berea.db"`

		// Vector store config
		Vectors         string `help:"Vector store backend (memory, chromem, postgres)" default:"chromem"`
		VectorsLocation string `help:"Vector store location" default:"berea-vectors"`
		Dimensions      int    `help:"Embedding dimensions" default:"1536"`

		// Ledger config
		Ledger         string `help:"Credit ledger backend (memory, redis)" default:"memory"`
		LedgerLocation string `help:"Credit ledger location" default:"localhost:6379"`
		InitialCredits int64  `help:"Credits granted per kind when the memory ledger first sees a user" default:"20"`

		// Embedder config
		Embedder       string `help:"Embedder provider (openai, google, mock)" default:"openai"`
		EmbedderModel  string `help:"Model identifier for vector embeddings" default:"text-embedding-3-small"`
		EmbedderAPIKey string `help:"API key for the embedder" default:""`

		// Generator config
		Generator string `help:"Generator provider (anthropic, openai, google)" default:"anthropic"`
		APIKey    string `help:"API key for the generator" default:""`
		Model     string `help:"Model identifier for the default tier" default:"claude-haiku-4-5"`
		MaxTokens int    `help:"Max output tokens per generation" default:"1024"`

		// Model catalog config
		ContextTokens        int    `help:"Context window of the default tier in tokens" default:"8192"`
		ReservedOutputTokens int    `help:"Tokens reserved for output when trimming" default:"1024"`
		PremiumModel         string `help:"Model identifier for the premium tier" default:""`
		PremiumContext       int    `help:"Context window of the premium tier in tokens" default:"32768"`
	}
)

func main() {
	// Parse inputs
	_ = kong.Parse(&cfg)
	ctx := context.Background()

	// Create embedder
	var emb embedder.Embedder
	switch cfg.Embedder {
	case "google":
		emb = embedgoogle.NewEmbedder(
			embedder.WithApiKey(cfg.EmbedderAPIKey),
			embedder.WithModel(cfg.EmbedderModel),
		)
	case "mock":
		emb = embedmock.NewEmbedder(cfg.Dimensions)
	default:
		emb = embedopenai.NewEmbedder(
			embedder.WithApiKey(cfg.EmbedderAPIKey),
			embedder.WithModel(cfg.EmbedderModel),
			embedder.WithDimensions(cfg.Dimensions),
		)
	}

	// Create vector store
	var vectors vectorstore.Store
	switch cfg.Vectors {
	case "postgres":
		vectors = vectorpostgres.NewStore(
			vectorstore.WithLocation(cfg.VectorsLocation),
			vectorstore.WithEmbedder(emb),
			vectorstore.WithDimensions(cfg.Dimensions),
		)
	case "memory":
		vectors = vectormemory.NewStore(
			vectorstore.WithEmbedder(emb),
			vectorstore.WithDimensions(cfg.Dimensions),
		)
	default:
		vectors = vectorchromem.NewStore(
			vectorstore.WithLocation(cfg.VectorsLocation),
			vectorstore.WithEmbedder(emb),
			vectorstore.WithDimensions(cfg.Dimensions),
		)
	}

	// Create relational store
	var relational store.Store
	switch cfg.Store {
	case "postgres":
		relational = storepostgres.NewStore(
			store.WithLocation(cfg.StoreLocation),
		)
	default:
		relational = storesqlite.NewStore(
			store.WithLocation(cfg.StoreLocation),
		)
	}

	// Create credit ledger
	var credits ledger.Ledger
	switch cfg.Ledger {
	case "redis":
		credits = ledgerredis.NewLedger(
			ledger.WithLocation(cfg.LedgerLocation),
		)
	default:
		credits = ledgermemory.NewLedger(
			ledger.WithInitialCredits(cfg.InitialCredits),
		)
	}

	// Create generator
	var gen generator.Generator
	switch cfg.Generator {
	case "openai":
		gen = genopenai.NewGenerator(
			generator.WithApiKey(cfg.APIKey),
			generator.WithModel(cfg.Model),
			generator.WithMaxTokens(cfg.MaxTokens),
		)
	case "google":
		gen = gengoogle.NewGenerator(
			generator.WithApiKey(cfg.APIKey),
			generator.WithModel(cfg.Model),
			generator.WithMaxTokens(cfg.MaxTokens),
		)
	default:
		gen = genanthropic.NewGenerator(
			generator.WithApiKey(cfg.APIKey),
			generator.WithModel(cfg.Model),
			generator.WithMaxTokens(cfg.MaxTokens),
		)
	}

	// Create tooling
	catalog := chat.NewCatalog()
	for _, th := range []toolhandler.ToolHandler{
		highlight.NewToolHandler(highlight.WithStore(relational)),
		bookmark.NewToolHandler(bookmark.WithStore(relational)),
		search.NewToolHandler(search.WithStore(vectors)),
	} {
		if err := catalog.Register(th); err != nil {
			slog.ErrorContext(ctx, "failed to register tool", "tool", th.Spec().Name, "error", err)
			os.Exit(1)
		}
	}

	// Create chains
	route := router.NewRouter(
		router.WithGenerator(gen),
	)

	rag := knowledge.NewChain(
		knowledge.WithGenerator(gen),
		knowledge.WithStore(vectors),
		knowledge.WithTools(catalog.GeneratorTools()),
	)

	// Create model catalog
	models := map[string]chat.ModelSpec{
		cfg.Model: {
			ContextTokens:        cfg.ContextTokens,
			ReservedOutputTokens: cfg.ReservedOutputTokens,
			CreditKind:           "basic",
		},
	}
	if len(cfg.PremiumModel) > 0 {
		models[cfg.PremiumModel] = chat.ModelSpec{
			ContextTokens:        cfg.PremiumContext,
			ReservedOutputTokens: cfg.ReservedOutputTokens,
			CreditKind:           "premium",
			Premium:              true,
		}
	}

	// Create chat service
	service := chat.NewService(
		chat.WithStore(relational),
		chat.WithLedger(credits),
		chat.WithRouter(route),
		chat.WithKnowledge(rag),
		chat.WithGenerator(gen),
		chat.WithNamer(gen),
		chat.WithMemory(func() retriever.Retriever {
			return timeweighted.NewRetriever(
				retriever.WithStore(vectormemory.NewStore(
					vectorstore.WithEmbedder(emb),
					vectorstore.WithDimensions(cfg.Dimensions),
				)),
			)
		}),
		chat.WithCatalog(catalog),
		chat.WithModels(models),
		chat.WithDefaultModel(cfg.Model),
	)

	// Create http server
	srv := httpserver.NewServer(
		httpserver.WithAddress(cfg.Address),
		httpserver.WithChat(service),
		httpserver.WithDocuments(vectors),
		httpserver.WithStore(relational),
		httpserver.WithIdentity(&httpserver.HeaderIdentityProvider{}),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		slog.ErrorContext(ctx, "http server stopped", "error", err)
		os.Exit(1)
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "failed to shut down cleanly", "error", err)
		os.Exit(1)
	}
}
