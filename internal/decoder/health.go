package decoder

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Status mirrors the reference stack's health-check vocabulary, narrowed to
// the one dependency the scan engine actually has: the decoder binaries.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Check is a single preflight result for one binary.
type Check struct {
	Name      string
	Status    Status
	Message   string
	Latency   time.Duration
	LastCheck time.Time
	Error     string
}

// Preflight verifies the decoder binaries are present and runnable before
// start_search() begins. A missing decoder is a hard start-up error per the
// engine's error-propagation policy.
func (c *Client) Preflight(ctx context.Context) []Check {
	return []Check{
		c.checkBinary(ctx, "ffprobe", c.FFprobePath),
		c.checkBinary(ctx, "ffmpeg", c.FFmpegPath),
	}
}

func (c *Client) checkBinary(ctx context.Context, name, path string) Check {
	start := time.Now()
	now := time.Now()

	if _, err := exec.LookPath(path); err != nil {
		return Check{
			Name:      name,
			Status:    StatusUnhealthy,
			Message:   "binary not found on PATH",
			LastCheck: now,
			Error:     err.Error(),
		}
	}

	cmd := exec.CommandContext(ctx, path, "-version")
	err := cmd.Run()
	latency := time.Since(start)

	if err != nil {
		return Check{
			Name:      name,
			Status:    StatusUnhealthy,
			Message:   "failed to execute -version",
			Latency:   latency,
			LastCheck: now,
			Error:     err.Error(),
		}
	}

	return Check{
		Name:      name,
		Status:    StatusHealthy,
		Message:   "available",
		Latency:   latency,
		LastCheck: now,
	}
}

// AllHealthy reports whether every check in checks reports StatusHealthy,
// and a joined error describing the first failures if not.
func AllHealthy(checks []Check) error {
	var failed []Check
	for _, c := range checks {
		if c.Status != StatusHealthy {
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	msg := ""
	for _, c := range failed {
		msg += fmt.Sprintf("%s: %s (%s); ", c.Name, c.Message, c.Error)
	}
	return fmt.Errorf("decoder preflight failed: %s", msg)
}
