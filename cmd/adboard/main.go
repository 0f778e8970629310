// Command adboard runs one source profile over a local export and prints the
// processed result as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AngelCh415/adboard/internal/config"
	"github.com/AngelCh415/adboard/internal/ingest"
	"github.com/AngelCh415/adboard/internal/store"
)

func main() {
	profileName := flag.String("profile", "xiaowang-ads", "source profile")
	outDir := flag.String("out", "", "also write <profile>.json into this directory")
	list := flag.Bool("list", false, "list profiles and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	profiles, err := ingest.NewRegistry(ingest.DefaultProfiles(cfg.CurrencyRate)...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *list {
		for _, p := range profiles.List() {
			fmt.Printf("%-16s %-9s %-6s header_row=%d convert=%t\n", p.Name, p.Account, p.Kind, p.HeaderRow, p.ConvertCurrency)
		}
		return
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: adboard [-profile name] [-out dir] <file.csv|file.xlsx|file.json>")
		os.Exit(2)
	}

	prof, ok := profiles.Get(*profileName)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown profile %q\n", *profileName)
		os.Exit(2)
	}

	path := flag.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	snap, stats, err := ingest.Transform(prof, filepath.Base(path), f)
	if err != nil {
		logger.Error("transform failed", slog.String("file", path), slog.String("err", err.Error()))
		os.Exit(1)
	}
	snap.UploadedAt = time.Now().UTC()
	if stats.Total() > 0 {
		logger.Debug("coercion defaults applied", slog.Any("by_kind", map[string]int(stats)))
	}

	if *outDir != "" {
		if err := store.NewJSONFileWriter(*outDir).Publish(prof.Name+".json", snap); err != nil {
			logger.Error("write failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", " ")
	if err := enc.Encode(snap); err != nil {
		os.Exit(1)
	}
}
