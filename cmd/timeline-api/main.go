package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"timeline/internal/platform/config"
	"timeline/internal/platform/logger"
	"timeline/internal/platform/metrics"
	phttp "timeline/internal/platform/net/http"
	"timeline/internal/platform/store"
	"timeline/internal/services/api"
	"timeline/internal/services/posts/media"
	postsmod "timeline/internal/services/posts/module"
	"timeline/internal/services/posts/repo"
)

func main() {
	logger.Init(logger.FromEnv())
	l := logger.Named("timeline-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// service-scoped config for HTTP etc (TIMELINE_API_*)
	root := config.New()
	apiCfg := root.Prefix("TIMELINE_API_")
	pgCfg := root.Prefix("SERVICE_PGSQL_") // without DBURL posts live in memory

	dsn := pgCfg.MayString("DBURL", "")
	if dsn != "" {
		if err := repo.Migrate(ctx, dsn); err != nil {
			l.Fatal().Err(err).Msg("posts migrations failed")
		}
	}

	st, err := store.Open(
		ctx,
		store.Config{
			PG: store.PGConfig{
				Enabled:     dsn != "",
				URL:         dsn,
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
				AppName:     api.ServiceName,
			},
		},
		store.WithLogger(*logger.Named("store")),
	)
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// the posts module reads TIMELINE_API_* itself; only media is injected
	var postsOpts postsmod.Options
	mcfg := media.FromConfig(root)
	if mcfg.Backend == media.BackendS3 {
		// the db backend is the posts repo itself, which the module wires
		ms, err := media.Open(ctx, mcfg, nil)
		if err != nil {
			l.Fatal().Err(err).Msg("media backend")
		}
		postsOpts.Media = ms
	}

	// http server (reads TIMELINE_API_ADDR)
	srv := phttp.NewServer(apiCfg)
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         *l,
			Registry:       metrics.NewRegistry(),
			Posts:          postsOpts,
			CORSOrigins:    apiCfg.MayCSV("CORS_ORIGINS", []string{"*"}),
			Slow:           apiCfg.MayDuration("SLOW_REQUEST", 0),
			Timeout:        apiCfg.MayDuration("REQUEST_TIMEOUT", 0),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)
	l.Info().Str("media", string(mcfg.Backend)).Bool("pg", dsn != "").Msg("timeline api configured")

	if err := srv.Run(ctx); err != nil {
		l.Fatal().Err(err).Msg("http server stopped")
	}
	l.Info().Msg("timeline api stopped")
}
