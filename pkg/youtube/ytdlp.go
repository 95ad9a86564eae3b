package youtube

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/reviewpulse/reviewpulse/internal/resilience"
)

const (
	defaultYtDlpPath    = "yt-dlp"
	defaultYtDlpTimeout = 10 * time.Minute
)

// ErrYtDlpNotInstalled is returned when the yt-dlp binary cannot be run.
var ErrYtDlpNotInstalled = eris.New("youtube: yt-dlp not installed")

// ErrVideoUnavailable is returned for videos yt-dlp reports as removed,
// private, or region blocked. Not retryable.
var ErrVideoUnavailable = eris.New("youtube: video unavailable")

// AudioDownloader extracts a video's audio track with yt-dlp as a subprocess.
type AudioDownloader struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// Timeout is the maximum time to wait for yt-dlp. Defaults to 10 minutes.
	Timeout time.Duration

	// ExtraArgs are additional arguments to pass to yt-dlp.
	ExtraArgs []string
}

// NewAudioDownloader creates a yt-dlp based audio downloader.
func NewAudioDownloader(path string) *AudioDownloader {
	if path == "" {
		path = defaultYtDlpPath
	}
	return &AudioDownloader{Path: path, Timeout: defaultYtDlpTimeout}
}

// CheckInstalled verifies that yt-dlp is available.
func (d *AudioDownloader) CheckInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, d.Path, "--version")
	if err := cmd.Run(); err != nil {
		return ErrYtDlpNotInstalled
	}
	return nil
}

// Download fetches the audio track of videoURL into destDir and returns the
// path of the produced file. The caller owns cleanup of the file.
func (d *AudioDownloader) Download(ctx context.Context, videoURL, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "youtube: create audio dir")
	}

	outTemplate := filepath.Join(destDir, "%(id)s.%(ext)s")
	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--no-playlist",
		"--no-warnings",
		"-o", outTemplate,
		"--print", "after_move:filepath",
	}
	args = append(args, d.ExtraArgs...)
	args = append(args, videoURL)

	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultYtDlpTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, d.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return "", resilience.NewTransientError(eris.Wrapf(err, "youtube: yt-dlp timeout for %s", videoURL), 0)
		}
		return "", classifyYtDlpError(err, videoURL, stderr.String())
	}

	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return "", eris.Errorf("youtube: yt-dlp produced no output file for %s", videoURL)
	}
	return path, nil
}

// classifyYtDlpError maps yt-dlp stderr patterns onto sentinel errors so the
// caller can tell permanent failures from transient ones.
func classifyYtDlpError(err error, videoURL, stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "private video"),
		strings.Contains(lower, "has been removed"),
		strings.Contains(lower, "not available in your country"):
		return eris.Wrapf(ErrVideoUnavailable, "%s", videoURL)
	case strings.Contains(lower, "429"), strings.Contains(lower, "rate"):
		return resilience.NewTransientError(eris.Errorf("youtube: yt-dlp rate limited for %s: %s", videoURL, firstLine(stderr)), 429)
	default:
		return eris.Wrapf(err, "youtube: yt-dlp failed for %s: %s", videoURL, firstLine(stderr))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
