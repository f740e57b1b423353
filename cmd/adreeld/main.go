// Command adreeld runs the ad generation pipeline's HTTP server: it wires
// together the LLM provider, object storage, the Generation store, the
// Progress Bus, the Orchestrator, and the Generation Coordinator, then
// serves the API described by internal/httpapi.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"adreel/internal/config"
	"adreel/internal/coordinator"
	"adreel/internal/httpapi"
	"adreel/internal/llm"
	"adreel/internal/llmfactory"
	"adreel/internal/objectstore"
	"adreel/internal/observability"
	"adreel/internal/orchestrator"
	"adreel/internal/persistence"
	"adreel/internal/progressbus"
	"adreel/internal/stitcher"
	"adreel/internal/version"
	"adreel/internal/videomodel"
	"adreel/internal/videosynth"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("example.env")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		log.Fatal().Err(err).Msg("failed to load config")
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)
	llm.ConfigureLogging(cfg.LogPayloads, 4096)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.InitOTel(ctx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
		shutdownOTel = nil
	}
	if shutdownOTel != nil {
		observability.AttachOTelBridge(cfg.Obs.ServiceName)
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	srv, err := newServer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialization failed")
	}

	httpSrv := &http.Server{Addr: cfg.HTTP.Addr, Handler: srv}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTP.Addr).Str("version", version.Version).Msg("adreeld listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func newServer(ctx context.Context, cfg config.Config) (*httpapi.Server, error) {
	provider, err := llmfactory.New(cfg.LLMClient)
	if err != nil {
		return nil, fmt.Errorf("build llm provider: %w", err)
	}

	objStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build object store: %w", err)
	}

	store, err := newGenerationStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build generation store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init generation store: %w", err)
	}

	videoClient := videomodel.New(videomodel.Config{
		BaseURL: cfg.VideoModel.BaseURL,
		APIKey:  cfg.VideoModel.APIKey,
	}, observability.NewHTTPClient(nil))

	synth := videosynth.New(videoClient, objStore, cfg.Pipeline.VideoSynthConcurrency, llm.DefaultRetryPolicy(),
		time.Duration(cfg.Pipeline.VideoTimeoutSeconds)*time.Second)
	stitch := stitcher.New(objStore, cfg.Pipeline.VideoStitcher)
	orch := orchestrator.New(provider, synth, stitch, cfg.Pipeline)

	buses := progressbus.NewRegistry(cfg.Pipeline.ProgressBusBufferDepth)
	coord := coordinator.New(buses, store, objStore, orch, cfg.Pipeline)

	return httpapi.NewServer(coord, buses, store), nil
}

func newObjectStore(ctx context.Context, cfg config.Config) (objectstore.ObjectStore, error) {
	if cfg.S3.Bucket == "" {
		log.Warn().Msg("no S3 bucket configured, using in-memory object store")
		return objectstore.NewMemoryStore(), nil
	}
	return objectstore.NewS3Store(ctx, cfg.S3)
}

func newGenerationStore(ctx context.Context, cfg config.Config) (persistence.GenerationStore, error) {
	if cfg.Database.DSN == "" {
		log.Warn().Msg("no database DSN configured, using in-memory generation store")
		return persistence.NewMemoryGenerationStore(), nil
	}
	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return persistence.NewPostgresGenerationStore(pool), nil
}
