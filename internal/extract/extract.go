package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"auxdeck/internal/logx"
)

// ErrOutputFileMissing reports an extraction whose reported output path does
// not exist on disk. A zero exit status alone is not proof of success.
var ErrOutputFileMissing = errors.New("extraction produced no usable output file")

// SubprocessError reports a non-zero exit from the extraction binary,
// carrying its error stream as the message.
type SubprocessError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *SubprocessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *SubprocessError) Unwrap() error { return e.Err }

// Result is the parsed outcome of a successful extraction.
type Result struct {
	Title    string
	FilePath string
}

// Extractor invokes the downloader binary to turn a hosting-site URL into a
// local audio file.
type Extractor struct {
	runner Runner
	logger logx.Logger
}

// NewExtractor builds an extractor over the given runner.
func NewExtractor(runner Runner, logger logx.Logger) *Extractor {
	if runner == nil {
		runner = CmdRunner{}
	}
	if logger == nil {
		logger = logx.Nop{}
	}
	return &Extractor{runner: runner, logger: logger}
}

// ExtractAudio runs the binary at binaryPath against sourceURL, writing the
// best available audio-only stream into targetDir. The tool is instructed to
// print exactly two lines: the resolved title, then the finalized absolute
// file path. The reported path must exist on disk or the call fails.
func (e *Extractor) ExtractAudio(ctx context.Context, binaryPath, sourceURL, targetDir string) (Result, error) {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("ensure extract dir: %w", err)
	}

	template := filepath.Join(targetDir, "%(title)s-%(id)s.%(ext)s")
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--no-simulate",
		"-f", "bestaudio/best",
		"--output", template,
		"--print", "title",
		"--print", "after_move:filepath",
		sourceURL,
	}

	e.logger.Printf("extract source=%s dir=%s", sourceURL, targetDir)
	res, runErr := e.runner.Run(ctx, binaryPath, args, RunOptions{})
	if runErr != nil {
		return Result{}, &SubprocessError{
			Command: filepath.Base(binaryPath),
			Stderr:  strings.TrimSpace(string(res.Stderr)),
			Err:     runErr,
		}
	}

	lines := nonBlankLines(string(res.Stdout))
	if len(lines) == 0 {
		return Result{}, fmt.Errorf("%s reported no output path: %w", filepath.Base(binaryPath), ErrOutputFileMissing)
	}

	filePath := lines[len(lines)-1]
	title := ""
	if len(lines) >= 2 {
		title = lines[0]
	}

	if _, err := os.Stat(filePath); err != nil {
		return Result{}, fmt.Errorf("%s: %w", filePath, ErrOutputFileMissing)
	}

	if title == "" {
		base := filepath.Base(filePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return Result{Title: title, FilePath: filePath}, nil
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
