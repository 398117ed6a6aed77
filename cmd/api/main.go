package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	genai "google.golang.org/genai"

	"atelier/internal/analytics"
	"atelier/internal/artifact"
	"atelier/internal/config"
	"atelier/internal/crm"
	"atelier/internal/genprovider"
	"atelier/internal/handler"
	"atelier/internal/oracle"
	"atelier/internal/orchestrator"
	"atelier/internal/queue"
	"atelier/internal/server"
	"atelier/internal/share"
)

// systemPolicy is the fixed consultation instruction. It is injected
// out-of-band and never comes from caller-supplied history.
const systemPolicy = `You are a jewelry design consultant for a retail chat widget.
Help the customer refine what piece they want: type, metal, stones, setting, finish.
When the design is concrete enough to visualize, end your reply with a single line
starting with GENERATE_IMAGE: followed by a one-sentence description of the piece.
Use GENERATE_VIDEO: instead when the customer asks for a rotating or video view.`

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.Env == "local" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()

	store := buildArtifactStore(cfg, log)
	contacts, counters, pool := buildStores(ctx, cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	consultant, err := oracle.NewGeminiConsultant(ctx, cfg.Oracle.APIKey, cfg.Oracle.ChatModel, cfg.Oracle.VisionModel, systemPolicy, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init oracle")
	}
	defer consultant.Close()

	genCli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Oracle.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init generation client")
	}

	imageChain := buildImageChain(cfg, genCli, log)
	videoQueue := queue.New(
		genprovider.Wrap(
			genprovider.NewVeo(genCli, cfg.Generate.VideoModels, cfg.Oracle.APIKey, cfg.Generate.VideoTimeout, log),
			genprovider.WithLogging(log),
		),
		queue.Config{
			MinInterval:    cfg.Queue.MinInterval,
			WindowDuration: cfg.Queue.WindowDuration,
			WindowCeiling:  cfg.Queue.WindowCeiling,
			StaleAfter:     cfg.Queue.StaleAfter,
			MaxAttempts:    cfg.Queue.MaxAttempts,
			QuotaBackoff:   cfg.Queue.QuotaBackoff,
			RetryDelay:     cfg.Queue.RetryDelay,
			CoolDown:       cfg.Queue.CoolDown,
		},
		log,
	)

	orch := orchestrator.New(consultant, imageChain, videoQueue, store, cfg.Generate.StrictErrors, log)
	shares := share.NewStore(store, cfg.Share.TTL, cfg.Share.MaxHeld, cfg.BaseURL)

	h := handler.New(orch, shares, contacts, counters, store, videoQueue, log)
	srv := server.New(cfg.Port, server.NewMux(h), log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exiting")
}

func buildArtifactStore(cfg *config.Config, log zerolog.Logger) artifact.Store {
	if cfg.Artifact.Enabled {
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err == nil {
			return s3
		}
		log.Warn().Err(err).Msg("object storage unavailable, falling back to in-memory artifacts")
	}
	return artifact.NewMemoryStore(cfg.BaseURL)
}

func buildStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (crm.Store, analytics.Store, *pgxpool.Pool) {
	if cfg.Store.DatabaseURL == "" {
		return crm.NewMemoryStore(), analytics.NewMemoryStore(), nil
	}
	pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, using in-memory CRM and analytics")
		return crm.NewMemoryStore(), analytics.NewMemoryStore(), nil
	}
	return crm.NewPostgresStore(pool), analytics.NewPostgresStore(pool), pool
}

func buildImageChain(cfg *config.Config, cli *genai.Client, log zerolog.Logger) *genprovider.Chain {
	adapters := []genprovider.Adapter{
		genprovider.NewGeminiImage(cli, cfg.Generate.ImageModel, cfg.Generate.ImageTimeout),
		genprovider.NewImagen(cli, cfg.Generate.ImagenModel, cfg.Generate.ImageTimeout),
	}
	if cfg.Generate.RESTEndpoint != "" {
		adapters = append(adapters, genprovider.NewRESTImage(cfg.Generate.RESTEndpoint, cfg.Generate.RESTAPIKey, cfg.Generate.ImageTimeout))
	}
	wrapped := make([]genprovider.Adapter, 0, len(adapters))
	for _, a := range adapters {
		wrapped = append(wrapped, genprovider.Wrap(a, genprovider.WithLogging(log)))
	}
	return genprovider.NewChain(log, wrapped...)
}
