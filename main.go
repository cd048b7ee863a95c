package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/clipscan/clipscan/internal/catalog"
	"github.com/clipscan/clipscan/internal/compare"
	"github.com/clipscan/clipscan/internal/config"
	"github.com/clipscan/clipscan/internal/decoder"
	"github.com/clipscan/clipscan/internal/enumerator"
	"github.com/clipscan/clipscan/internal/fingerprint"
	"github.com/clipscan/clipscan/internal/logging"
	"github.com/clipscan/clipscan/internal/scan"
	"github.com/clipscan/clipscan/internal/storage"
)

func main() {
	cfg := config.Load()
	log.SetOutput(logging.Initialize(cfg.LogBufferSize))

	var (
		percent            = flag.Float64("percent", 90, "similarity threshold percent")
		flipped            = flag.Bool("flip", true, "also compare horizontally flipped fingerprints")
		excludeHard        = flag.Bool("exclude-hardlinks", true, "exclude hardlinked files from matches")
		durationWindow     = flag.Float64("duration-window", 5, "percent duration-ratio window")
		includeImages      = flag.Bool("images", true, "include image files alongside video")
		scanEntireDatabase = flag.Bool("scan-entire-database", false, "compare against every catalog record, not only those under the given roots")
		includeNonExisting = flag.Bool("include-non-existing-files", false, "keep catalog records whose file no longer exists instead of cleaning them")
		clean              = flag.Bool("clean", false, "remove stale catalog records and exit, without scanning")
	)
	flag.Parse()

	roots := flag.Args()
	if len(roots) == 0 {
		log.Fatal("usage: clipscan [flags] <root-dir>...")
	}

	if err := os.MkdirAll(cfg.CatalogDir, 0o755); err != nil {
		log.Fatalf("failed to create catalog directory: %v", err)
	}

	store := catalog.New(filepath.Join(cfg.CatalogDir, "catalog.gob"))
	dec := decoder.New(cfg.FFprobePath, cfg.FFmpegPath)
	preflight := storage.NewPreflight(1)

	history, err := catalog.OpenHistory(filepath.Join(cfg.CatalogDir, "history.sqlite"))
	if err != nil {
		log.Print(logging.Catalog("history index unavailable, continuing without it: %v", err))
		history = nil
	} else {
		defer history.Close()
	}

	engine := scan.NewEngine(store, dec, preflight, cfg.CatalogDir, history)

	if *clean {
		if err := store.Load(); err != nil {
			log.Fatalf("clipscan: failed to load catalog: %v", err)
		}
		engine.CleanCatalog(*includeNonExisting)
		if err := store.Save(); err != nil {
			log.Fatalf("clipscan: failed to save catalog after cleaning: %v", err)
		}
		return
	}

	positions := []fingerprint.PositionSetting{
		{Type: fingerprint.Percentage, Value: 10},
		{Type: fingerprint.Percentage, Value: 50},
		{Type: fingerprint.Percentage, Value: 90},
	}

	settings := scan.Settings{
		Enumerator: enumerator.Options{
			IncludeRoots:              roots,
			IncludeSubdirectories:     true,
			IgnoreReadOnlyFolders:     false,
			IgnoreReparsePoints:       true,
			IncludeImages:             *includeImages,
			ScanAgainstEntireDatabase: *scanEntireDatabase,
		},
		Fingerprint: fingerprint.Settings{
			Positions:      positions,
			MaxParallelism: cfg.DefaultParallelism,
		},
		Compare: compare.Settings{
			Positions:                  positions,
			Percent:                    *percent,
			CompareHorizontallyFlipped: *flipped,
			ExcludeHardlinks:           *excludeHard,
			PercentDurationDifference:  *durationWindow,
			WhiteThreshold:             255,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Print(logging.Scan("shutdown signal received, stopping scan"))
		engine.Stop()
		cancel()
	}()

	go func() {
		for ev := range engine.Events() {
			switch ev.Type {
			case scan.EventProgress:
				log.Print(logging.Scan("progress: %d/%d (eta %s)", ev.Processed, ev.Total, ev.Remaining))
			case scan.EventScanDone, scan.EventScanAborted:
				log.Print(logging.Scan("event: %s %s", ev.Type, ev.Detail))
				cancel()
			default:
				log.Print(logging.Scan("event: %s %s", ev.Type, ev.Detail))
			}
		}
	}()

	if err := engine.Start(ctx, settings); err != nil {
		log.Fatalf("clipscan: failed to start scan: %v", err)
	}

	<-ctx.Done()

	for _, g := range engine.LastGroups() {
		var total int64
		for _, item := range g.Items {
			total += item.FileSize
		}
		log.Print(logging.Compare("duplicate group %s: %d items, %s combined", g.GroupID, len(g.Items), humanize.Bytes(uint64(total))))
	}
}
