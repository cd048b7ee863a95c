// Package decoder wraps the external media decoding tool (ffprobe/ffmpeg)
// the scan engine treats as an opaque collaborator: Probe for metadata,
// ExtractGrayscaleThumbnails for fingerprint input, ExtractColorThumbnail for
// UI preview only. All three shell out via os/exec, the same way the
// reference stack's quality/subtitle/chapter extraction does.
package decoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MediaProbe is the Probe operation's result.
type MediaProbe struct {
	Duration        float64
	FPS             float64
	BitrateKbps     int
	AudioSampleRate int
	Width           int
	Height          int
}

// Client invokes ffprobe/ffmpeg at the configured paths. A Client is
// reentrant: every call launches its own child process, so workers in the
// Fingerprint Builder's pool invoke it independently without coordination.
type Client struct {
	FFprobePath string
	FFmpegPath  string
	// HWAccel, when non-empty, is passed as ffmpeg's -hwaccel value for
	// thumbnail extraction (e.g. "videotoolbox", "cuda", "qsv").
	HWAccel string
	// ExtraArgs are appended to every grayscale-thumbnail ffmpeg
	// invocation, after the standard flags, for embedder-supplied tuning.
	// ExtractColorThumbnail does not use them.
	ExtraArgs []string
	// Verbose prints ffmpeg's stderr from grayscale-thumbnail extraction to
	// stdout instead of discarding it. Probe and ExtractColorThumbnail do
	// not use it.
	Verbose bool
}

// New creates a Client from explicit binary paths.
func New(ffprobePath, ffmpegPath string) *Client {
	return &Client{FFprobePath: ffprobePath, FFmpegPath: ffmpegPath}
}

type probeStream struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	CodecType    string `json:"codec_type"`
	RFrameRate   string `json:"r_frame_rate"`
	SampleRate   string `json:"sample_rate"`
	BitRate      string `json:"bit_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// Probe returns duration, per-stream width/height, fps, bitrate and audio
// sample rate for path. For images most fields stay zero; callers only read
// Width/Height in that case.
func (c *Client) Probe(ctx context.Context, path string) (*MediaProbe, error) {
	cmd := exec.CommandContext(ctx, c.FFprobePath,
		"-v", "error",
		"-show_entries", "stream=width,height,codec_type,r_frame_rate,sample_rate,bit_rate",
		"-show_entries", "format=duration,bit_rate",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse probe output for %s: %w", path, err)
	}

	info := &MediaProbe{}
	if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if b, err := strconv.Atoi(parsed.Format.BitRate); err == nil {
		info.BitrateKbps = b / 1000
	}

	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			if s.Width > 0 {
				info.Width = s.Width
			}
			if s.Height > 0 {
				info.Height = s.Height
			}
			if fps := parseFrameRate(s.RFrameRate); fps > 0 {
				info.FPS = fps
			}
		case "audio":
			if sr, err := strconv.Atoi(s.SampleRate); err == nil {
				info.AudioSampleRate = sr
			}
		}
	}

	return info, nil
}

// parseFrameRate turns ffprobe's "30000/1001" rational frame rate strings
// into a float.
func parseFrameRate(raw string) float64 {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// ExtractGrayscaleThumbnails returns a 16x16, row-major, single-channel byte
// vector for every timestamp in positionsSeconds, in the same order. A
// failure at any one position fails the whole call, matching the external
// contract ("failure of any one position fails the whole call").
func (c *Client) ExtractGrayscaleThumbnails(ctx context.Context, path string, positionsSeconds []float64) ([][]byte, error) {
	out := make([][]byte, len(positionsSeconds))
	for i, ts := range positionsSeconds {
		gray, err := c.extractOneGrayscale(ctx, path, ts)
		if err != nil {
			return nil, fmt.Errorf("extract thumbnail at %.3fs for %s: %w", ts, path, err)
		}
		out[i] = gray
	}
	return out, nil
}

func (c *Client) extractOneGrayscale(ctx context.Context, path string, timestampSeconds float64) ([]byte, error) {
	args := []string{"-ss", formatTimestamp(timestampSeconds)}
	if c.HWAccel != "" {
		args = append(args, "-hwaccel", c.HWAccel)
	}
	args = append(args, "-i", path,
		"-frames:v", "1",
		"-vf", "scale=16:16:flags=bilinear,format=gray",
		"-f", "rawvideo",
		"-")
	args = append(args, c.ExtraArgs...)

	cmd := exec.CommandContext(ctx, c.FFmpegPath, args...)
	if c.Verbose {
		cmd.Stderr = verboseSink{}
	}
	raw, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	if len(raw) < 256 {
		return nil, fmt.Errorf("short thumbnail read: got %d bytes, want 256", len(raw))
	}
	return raw[:256], nil
}

// ExtractColorThumbnail returns an encoded preview image for display only;
// a failure here is never fatal to a scan, per the external contract.
func (c *Client) ExtractColorThumbnail(ctx context.Context, path string, timestampSeconds float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.FFmpegPath,
		"-ss", formatTimestamp(timestampSeconds),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-vcodec", "mjpeg",
		"-",
	)
	return cmd.Output()
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600+minutes*60)
	return fmt.Sprintf("%02d:%02d:%09.6f", hours, minutes, secs)
}

type verboseSink struct{}

func (verboseSink) Write(p []byte) (int, error) {
	fmt.Print(string(p))
	return len(p), nil
}
