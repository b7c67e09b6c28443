package main

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/woozymasta/geoview/internal/basemap"
	"github.com/woozymasta/geoview/internal/config"
	"github.com/woozymasta/geoview/internal/export"
	"github.com/woozymasta/geoview/internal/logger"
	"github.com/woozymasta/geoview/internal/scene"
	"github.com/woozymasta/geoview/internal/transition"
	"github.com/woozymasta/geoview/internal/viewport"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"  env:"CONFIG_FILE" description:"Path to scene file" default:"scene.yaml"`
	Output     string        `short:"o" long:"out"     description:"Output file, format by extension (.webp, .svg, .geojson)" required:"true"`
	Basemap    string        `short:"b" long:"basemap" env:"BASEMAP"   description:"XYZ tile URL template or world image, WebP only"`
	CacheDir   string        `long:"cache-dir"         env:"CACHE_DIR" description:"Basemap tile cache directory" default:"tiles"`
	At         time.Duration `short:"t" long:"at"      description:"Scene time of the snapshot" default:"0s"`
	Step       time.Duration `long:"step"              description:"Frame step used to reach the snapshot time" default:"16ms"`
	Quality    float32       `short:"q" long:"quality" description:"WebP quality" default:"85"`
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

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load scene")
	}

	clock := transition.NewManualClock(time.Now())
	sc, err := scene.New(cfg, scene.Options{Clock: clock})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scene")
	}

	// route legs chain through completion callbacks, which only fire on frames
	if opts.Step <= 0 {
		opts.Step = 16 * time.Millisecond
	}
	frames := sc.Frame()
	for sc.Elapsed() < opts.At {
		clock.Advance(min(opts.Step, opts.At-sc.Elapsed()))
		frames = sc.Frame()
	}

	cache := sc.Viewport().Cache()
	if !cache.Valid {
		log.Fatal().Msg("Map never became ready")
	}
	size := image.Pt(int(math.Round(cache.Size.X)), int(math.Round(cache.Size.Y)))

	if err := write(opts, frames, size, cache); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write snapshot")
	}

	log.Info().
		Str("path", opts.Output).
		Dur("at", sc.Elapsed()).
		Int("markers", len(frames)).
		Msg("Snapshot written")
}

func write(opts Options, frames []scene.Frame, size image.Point, cache viewport.Cache) error {
	f, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(opts.Output)); ext {
	case ".svg":
		return export.WriteSVG(f, frames, size)
	case ".geojson", ".json":
		data, err := export.FramesGeoJSON(frames)
		if err != nil {
			return err
		}
		_, err = f.Write(data)
		return err
	case ".webp":
		var base image.Image
		if opts.Basemap != "" {
			src := &basemap.Source{
				Location: opts.Basemap,
				CacheDir: opts.CacheDir,
				Client:   basemap.NewClient(15 * time.Second),
			}
			canvas := image.NewRGBA(image.Rectangle{Max: size})
			if err := src.Draw(context.Background(), canvas, basemap.ViewOf(cache)); err != nil {
				log.Warn().Err(err).Msg("Failed to draw basemap")
			} else {
				base = canvas
			}
		}
		return export.WriteWebP(f, export.RenderImage(frames, size, base), opts.Quality)
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
}
