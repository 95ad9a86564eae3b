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
)

const defaultWhisperTimeout = 30 * time.Minute

// ErrWhisperNotInstalled is returned when the whisper binary cannot be run.
var ErrWhisperNotInstalled = eris.New("youtube: whisper not installed")

// Transcriber converts an audio file to text with the whisper CLI.
type Transcriber struct {
	// Path is the path to the whisper executable. Defaults to "whisper".
	Path string

	// Model selects the whisper model size. Defaults to "base".
	Model string

	// Language hints the spoken language. Defaults to "en".
	Language string

	// Timeout is the maximum time to wait per file. Defaults to 30 minutes.
	Timeout time.Duration
}

// NewTranscriber creates a whisper-backed transcriber.
func NewTranscriber(path, modelName, language string) *Transcriber {
	if path == "" {
		path = "whisper"
	}
	if modelName == "" {
		modelName = "base"
	}
	if language == "" {
		language = "en"
	}
	return &Transcriber{Path: path, Model: modelName, Language: language, Timeout: defaultWhisperTimeout}
}

// CheckInstalled verifies that whisper is available.
func (t *Transcriber) CheckInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.Path, "--help")
	if err := cmd.Run(); err != nil {
		return ErrWhisperNotInstalled
	}
	return nil
}

// Transcribe runs whisper on audioPath and returns the transcript text.
// Whisper writes its .txt output next to the audio file's directory.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	outDir := filepath.Dir(audioPath)

	timeout := t.Timeout
	if timeout == 0 {
		timeout = defaultWhisperTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, t.Path,
		audioPath,
		"--model", t.Model,
		"--language", t.Language,
		"--output_format", "txt",
		"--output_dir", outDir,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return "", eris.Wrapf(err, "youtube: whisper timeout for %s", audioPath)
		}
		return "", eris.Wrapf(err, "youtube: whisper failed for %s: %s", audioPath, firstLine(stderr.String()))
	}

	txtPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", eris.Wrapf(err, "youtube: read whisper output for %s", audioPath)
	}
	defer os.Remove(txtPath)

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", eris.Errorf("youtube: whisper produced empty transcript for %s", audioPath)
	}
	return text, nil
}
