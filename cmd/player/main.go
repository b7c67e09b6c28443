package main

import (
	"context"
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

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string        `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to scene file" default:"scene.yaml"`
	KML         string        `short:"k" long:"kml"         description:"Write the marker tracks as KML to this file"`
	GeoJSON     string        `short:"g" long:"geojson"     description:"Write the marker tracks as GeoJSON to this file"`
	FramesDir   string        `short:"o" long:"frames-dir"  description:"Render every frame as WebP into this directory"`
	Basemap     string        `short:"b" long:"basemap"     env:"BASEMAP"   description:"XYZ tile URL template or world image drawn under frames"`
	CacheDir    string        `long:"cache-dir"             env:"CACHE_DIR" description:"Basemap tile cache directory" default:"tiles"`
	Duration    time.Duration `short:"d" long:"duration"    description:"Scene time to play" default:"10s"`
	FPS         float64       `long:"fps"                   description:"Frames per second" default:"30"`
	Concurrency int           `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"8"`
	Quality     float32       `short:"q" long:"quality"     description:"WebP quality of rendered frames" default:"85"`
	Force       bool          `short:"f" long:"force"       description:"Force overwrite of existing frames"`
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

	if opts.FPS <= 0 {
		opts.FPS = 30
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load scene")
	}

	clock := transition.NewManualClock(time.Now())
	sc, err := scene.New(cfg, scene.Options{Clock: clock})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scene")
	}

	step := time.Duration(float64(time.Second) / opts.FPS)
	total := int(math.Ceil(float64(opts.Duration) / float64(step)))

	log.Info().
		Str("scene", opts.ConfigFile).
		Dur("duration", opts.Duration).
		Float64("fps", opts.FPS).
		Int("frames", total+1).
		Msg("Starting player")

	captured := make([][]scene.Frame, 0, total+1)
	views := make([]*basemap.View, 0, total+1)
	for i := 0; i <= total; i++ {
		frames := sc.Frame()
		if opts.FramesDir != "" {
			captured = append(captured, frames)
			var view *basemap.View
			if cache := sc.Viewport().Cache(); cache.Valid {
				v := basemap.ViewOf(cache)
				view = &v
			}
			views = append(views, view)
		}
		clock.Advance(step)
	}

	if opts.KML != "" {
		writeFile(opts.KML, func(f *os.File) error {
			return export.WriteKML(f, sceneName(opts.ConfigFile), sc.Tracks())
		})
	}

	if opts.GeoJSON != "" {
		writeFile(opts.GeoJSON, func(f *os.File) error {
			data, err := export.TracksGeoJSON(sc.Tracks())
			if err != nil {
				return err
			}
			_, err = f.Write(data)
			return err
		})
	}

	if opts.FramesDir != "" {
		cache := sc.Viewport().Cache()
		if !cache.Valid {
			log.Fatal().Msg("Map never became ready, no frames to render")
		}
		size := image.Pt(int(math.Round(cache.Size.X)), int(math.Round(cache.Size.Y)))

		seq := export.Sequence{
			Dir:         opts.FramesDir,
			Size:        size,
			Concurrency: opts.Concurrency,
			Quality:     opts.Quality,
			Force:       opts.Force,
		}

		if opts.Basemap != "" {
			src := &basemap.Source{
				Location:    opts.Basemap,
				CacheDir:    opts.CacheDir,
				Concurrency: opts.Concurrency,
				Client:      basemap.NewClient(15 * time.Second),
			}
			backdrops := &basemap.Backdrops{Source: src, Size: size}
			seq.Background = func(i int) image.Image {
				if views[i] == nil {
					return nil
				}
				img, err := backdrops.Draw(context.Background(), *views[i])
				if err != nil {
					log.Error().Err(err).Int("frame", i).Msg("Failed to draw basemap")
					return nil
				}
				return img
			}
		}

		written, err := seq.Write(captured)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to render frames")
		}
		log.Info().Int("written", written).Str("dir", opts.FramesDir).Msg("Frames rendered")
	}

	log.Info().Dur("elapsed", sc.Elapsed()).Msg("Player finished successfully")
}

func writeFile(path string, fn func(*os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to create file")
	}
	defer f.Close()

	if err := fn(f); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write file")
	}
	log.Info().Str("path", path).Msg("File written")
}

func sceneName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
