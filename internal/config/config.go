// Package config loads the ambient operational knobs the scan engine needs
// regardless of which embedder (GUI/CLI) is driving it: where the catalog
// snapshot lives, where the decoder binary is, and a couple of defaults used
// when the embedder doesn't override them per-scan.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	CatalogDir          string
	FFprobePath         string
	FFmpegPath          string
	DefaultParallelism  int
	LogBufferSize       int
}

func Load() *Config {
	catalogDir := os.Getenv("CLIPSCAN_CATALOG_DIR")
	if catalogDir == "" {
		catalogDir = "./data"
	}

	ffprobePath := os.Getenv("CLIPSCAN_FFPROBE")
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	ffmpegPath := os.Getenv("CLIPSCAN_FFMPEG")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	parallelism := envInt("CLIPSCAN_PARALLELISM", 4)
	logBufferSize := envInt("CLIPSCAN_LOG_BUFFER", 2000)

	return &Config{
		CatalogDir:         catalogDir,
		FFprobePath:        ffprobePath,
		FFmpegPath:         ffmpegPath,
		DefaultParallelism: parallelism,
		LogBufferSize:      logBufferSize,
	}
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
