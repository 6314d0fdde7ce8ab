// Command growform grows a form from a script and writes it out as an STL
// model and a PNG preview.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/soypat/growform/internal/config"
	"github.com/soypat/growform/render"
	"github.com/soypat/growform/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	var (
		scriptPath = flag.String("script", "", "script file to grow; stdin if empty")
		name       = flag.String("name", "form", "base name of the output files")
		verbose    = flag.Bool("v", false, "log debug messages")
	)
	flag.IntVar(&cfg.Steps, "steps", cfg.Steps, "maximum number of bud turns")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory")
	flag.IntVar(&cfg.Smooth, "smooth", cfg.Smooth, "smoothing rounds applied before export")
	flag.IntVar(&cfg.PreviewSize, "size", cfg.PreviewSize, "preview size in pixels; 0 disables the preview")
	flag.BoolVar(&cfg.CheckInvariants, "check", cfg.CheckInvariants, "validate the mesh after every edit")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg, *scriptPath, *name); err != nil {
		slog.Error("growform failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, scriptPath, name string) error {
	var src []byte
	var err error
	if scriptPath == "" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(scriptPath)
	}
	if err != nil {
		return err
	}

	opts := session.Options{
		Seed:            cfg.Seed,
		RegionHops:      cfg.RegionHops,
		RelaxPerStep:    cfg.RelaxPerStep,
		CheckInvariants: cfg.CheckInvariants,
	}
	sess, err := session.New(string(src), opts, slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	start := time.Now()
	acted, err := sess.Run(ctx, cfg.Steps)
	if err != nil {
		slog.Warn("growth interrupted, writing partial form", "acted", acted)
	}
	st := sess.Stats()
	slog.Info("grown", "cells", st.Cells, "genus", st.Genus, "buds", st.Buds, "took", time.Since(start))

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	snap := sess.Snapshot(cfg.Smooth)
	stlPath := filepath.Join(cfg.OutputDir, name+".stl")
	if err := render.CreateSTL(stlPath, render.NewMeshRenderer(snap)); err != nil {
		return fmt.Errorf("write %s: %w", stlPath, err)
	}
	slog.Info("wrote model", "path", stlPath, "triangles", len(snap.Triangles))
	if cfg.PreviewSize > 0 {
		pngPath := filepath.Join(cfg.OutputDir, name+".png")
		if err := render.SavePreview(pngPath, snap, cfg.PreviewSize, render.DefaultView); err != nil {
			return fmt.Errorf("write %s: %w", pngPath, err)
		}
		slog.Info("wrote preview", "path", pngPath)
	}
	return nil
}
