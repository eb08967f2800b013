package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/actuallystonmai/nutrigrade/internal/cache"
	"github.com/actuallystonmai/nutrigrade/internal/config"
	"github.com/actuallystonmai/nutrigrade/internal/handler"
	"github.com/actuallystonmai/nutrigrade/internal/model"
	"github.com/actuallystonmai/nutrigrade/internal/repository"
	"github.com/actuallystonmai/nutrigrade/internal/router"
	"github.com/actuallystonmai/nutrigrade/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the prediction HTTP API",
		Long: `Run the prediction HTTP API.

The model is loaded once at startup. If the load fails the server still starts
and answers predictions with 503 until POST /model/reload succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	// ------------ Model source ---------------
	var source model.Source = model.FileSource{Path: cfg.ModelPath}
	if cfg.ModelSource == config.SourcePostgres {
		pool, err := connectDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		source = repository.ArtifactSource{Repo: repository.New(pool), Name: cfg.ModelName}
	}

	handle := model.NewHandle(source)
	if _, err := handle.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("starting without a model, predictions will fail until reload")
	}

	// ------------ Redis ---------------
	var resultCache service.ResultCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		c := cache.NewCache(client, cfg.CacheTTL)
		if err := c.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, prediction cache disabled")
		} else {
			log.Info().Msg("connected to Redis")
			resultCache = c
		}
	}

	// ---------------- Server --------------------
	svc := service.NewService(handle, resultCache, service.Options{
		BatchConcurrency: cfg.BatchConcurrency,
		MaxBatchSize:     cfg.MaxBatchSize,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(handler.NewHandler(svc), cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
