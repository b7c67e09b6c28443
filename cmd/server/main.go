package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/woozymasta/geoview/internal/basemap"
	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/logger"
	"github.com/woozymasta/geoview/internal/scene"
	"github.com/woozymasta/geoview/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string        `short:"c" long:"config"      env:"CONFIG_FILE"    description:"Path to scene file"           default:"scene.yaml"`
	Addr        string        `short:"a" long:"addr"        env:"LISTEN_ADDRESS" description:"Address to listen on"         default:"0.0.0.0"`
	Basemap     string        `short:"b" long:"basemap"     env:"BASEMAP"        description:"XYZ tile URL template or world image"`
	CacheDir    string        `long:"cache-dir"             env:"CACHE_DIR"      description:"Basemap tile cache directory" default:"tiles"`
	Port        int           `short:"p" long:"port"        env:"LISTEN_PORT"    description:"Port to listen on"            default:"8080"`
	Concurrency int           `long:"concurrency"           env:"CONCURRENCY"    description:"Basemap download concurrency" default:"8"`
	Tick        time.Duration `short:"t" long:"tick"        env:"TICK"           description:"Frame interval, 0 renders on request only" default:"100ms"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Scene
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load scene")
	}

	sc, err := scene.New(cfg, scene.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scene")
	}

	var base *basemap.Source
	if opts.Basemap != "" {
		base = &basemap.Source{
			Location:    opts.Basemap,
			CacheDir:    opts.CacheDir,
			Concurrency: opts.Concurrency,
			Client:      basemap.NewClient(15 * time.Second),
		}
	}

	name := strings.TrimSuffix(filepath.Base(opts.ConfigFile), filepath.Ext(opts.ConfigFile))
	srvCtx := server.NewServerContext(name, sc, base)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Tick > 0 {
		go srvCtx.Run(ctx, opts.Tick)
	}

	// Routes
	mux := http.NewServeMux()
	srvCtx.Routes(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.RequestLogger(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("scene", name).
		Int("markers", len(cfg.Markers)).
		Dur("tick", opts.Tick).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
