// Command nameplate renders engraved plate textures.
//
// Usage:
//
//	nameplate render [-config nameplate.toml] [-text T] [-font F] [-size S] [-frame ID] [-out dir]
//	nameplate serve  [-config nameplate.toml] [-addr host:port]
//
// render writes bump.png, albedo.png and roughness.png (the roughness the
// material samples after its roughness patch). serve runs the preview
// feed until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/gogpu/nameplate"
	"github.com/gogpu/nameplate/config"
	"github.com/gogpu/nameplate/material"
	"github.com/gogpu/nameplate/preview"
	"github.com/gogpu/nameplate/request"
	"github.com/gogpu/nameplate/session"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(ctx, os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("nameplate: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: nameplate render|serve [flags]")
}

type commonFlags struct {
	config  *string
	verbose *bool
}

func addCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config:  fs.String("config", "", "configuration file (TOML)"),
		verbose: fs.Bool("v", false, "verbose logging"),
	}
}

func (c commonFlags) setup() (config.Config, error) {
	level := slog.LevelInfo
	if *c.verbose {
		level = slog.LevelDebug
	}
	nameplate.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *c.config == "" {
		return config.Default(), nil
	}
	return config.Load(*c.config)
}

func runRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	common := addCommon(fs)
	var (
		text  = fs.String("text", "", "text to engrave (default: placeholder)")
		font  = fs.String("font", request.DefaultFontFamily, "font family")
		size  = fs.String("size", "120", "nominal font size in pixels")
		frame = fs.String("frame", "", "frame texture id (default: configured frame)")
		out   = fs.String("out", ".", "output directory")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup()
	if err != nil {
		return err
	}

	s, err := session.New(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	if _, err := s.Start(ctx); err != nil {
		return err
	}

	txt := *text
	if txt == "" {
		txt = cfg.PlaceholderText
	}
	res, err := s.OnUpdateRequested(ctx, txt, *font, request.ParseSize(*size), *frame)
	if err != nil {
		return err
	}
	if res.Font.TimedOut {
		log.Printf("font %q not available, engraved with the default face", *font)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	files := []struct {
		name string
		img  image.Image
	}{
		{"bump.png", res.Maps.Bump},
		{"albedo.png", res.Maps.Albedo},
		{"roughness.png", material.EffectiveRoughness(res.Maps.Bump, float64(res.State.Roughness))},
	}
	for _, f := range files {
		if err := savePNG(filepath.Join(*out, f.name), f.img); err != nil {
			return err
		}
	}
	log.Printf("Maps saved to %s (%dx%d, generation %d)", *out, res.Maps.Size, res.Maps.Size, res.Generation)
	return nil
}

func savePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := addCommon(fs)
	addr := fs.String("addr", "", "listen address (default: preview.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.setup()
	if err != nil {
		return err
	}
	if *addr == "" {
		*addr = cfg.Preview.Addr
	}

	hub := preview.NewHub(cfg.Preview.SendQueue)
	hub.WithRoughness = true
	defer hub.Close()

	s, err := session.New(cfg, session.WithObserver(hub))
	if err != nil {
		return err
	}
	defer s.Close()
	if _, err := s.Start(ctx); err != nil {
		return err
	}

	err = preview.ListenAndServe(ctx, *addr, preview.NewServer(ctx, s, hub))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
