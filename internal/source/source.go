// Package source classifies user-supplied track references and, when a
// reference points at a video-hosting site, orchestrates tool installation
// and audio extraction to turn it into a locally playable file.
package source

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"auxdeck/internal/extract"
	"auxdeck/internal/logx"
	"auxdeck/internal/paths"
	"auxdeck/internal/progress"
)

// DownloaderTool is the tool used to extract audio from hosting sites.
const DownloaderTool = "yt-dlp"

// fallbackScratchSegment names the per-playlist scratch directory when the
// playlist identifier sanitizes to nothing.
const fallbackScratchSegment = "playlist"

// Type distinguishes pass-through sources from ones requiring extraction.
type Type string

const (
	TypeDirect     Type = "direct"
	TypeExtraction Type = "extraction"
)

// ResolvedTrackSource is the outcome of resolving one source string.
type ResolvedTrackSource struct {
	RequestID  string `json:"request_id"`
	SourceType Type   `json:"source_type"`
	Location   string `json:"location"`
	Title      string `json:"title,omitempty"`
}

// extractionHosts are the video-hosting domains whose URLs require the
// downloader tool. Subdomains of each (m., www., player., ...) match too.
var extractionHosts = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"dailymotion.com",
}

// NeedsExtraction reports whether a source string is an absolute web URL on a
// known video-hosting domain. Everything else, including unparsable input,
// is treated as a direct source.
func NeedsExtraction(source string) bool {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, domain := range extractionHosts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// ToolInstaller provides a verified local binary for a named tool.
type ToolInstaller interface {
	EnsureInstalled(ctx context.Context, tool string) (string, error)
}

// AudioExtractor turns a hosting-site URL into a local audio file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, binaryPath, sourceURL, targetDir string) (extract.Result, error)
}

// Resolver is the top-level entry point for track-source resolution.
type Resolver struct {
	installer  ToolInstaller
	extractor  AudioExtractor
	extractDir string
	sink       progress.Sink
	logger     logx.Logger
}

// NewResolver builds a resolver that stores extracted audio under the
// application's extraction directory and reports progress to sink.
func NewResolver(installer ToolInstaller, extractor AudioExtractor, p paths.AppPaths, sink progress.Sink, logger logx.Logger) *Resolver {
	if sink == nil {
		sink = progress.Nop{}
	}
	if logger == nil {
		logger = logx.Nop{}
	}
	return &Resolver{
		installer:  installer,
		extractor:  extractor,
		extractDir: p.ExtractDir,
		sink:       sink,
		logger:     logger,
	}
}

// Resolve classifies source and either passes it through trimmed or runs the
// extraction pipeline. Progress events for the extraction path echo requestID
// so the caller can correlate them; the direct path emits none.
func (r *Resolver) Resolve(ctx context.Context, source, playlistID, requestID string) (ResolvedTrackSource, error) {
	trimmed := strings.TrimSpace(source)
	if !NeedsExtraction(trimmed) {
		return ResolvedTrackSource{
			RequestID:  requestID,
			SourceType: TypeDirect,
			Location:   trimmed,
		}, nil
	}

	r.emit(requestID, progress.StagePrepare, "preparing audio extraction")

	r.emit(requestID, progress.StageInstallTool, "checking "+DownloaderTool)
	binaryPath, err := r.installer.EnsureInstalled(ctx, DownloaderTool)
	if err != nil {
		return ResolvedTrackSource{}, fmt.Errorf("ensure %s: %w", DownloaderTool, err)
	}

	scratchDir := filepath.Join(r.extractDir, sanitizeSegment(playlistID))

	r.emit(requestID, progress.StageDownloadAudio, "downloading audio")
	res, err := r.extractor.ExtractAudio(ctx, binaryPath, trimmed, scratchDir)
	if err != nil {
		return ResolvedTrackSource{}, err
	}

	r.emit(requestID, progress.StageFinalize, "finalizing "+res.Title)
	r.logger.Printf("extracted %q to %s", res.Title, res.FilePath)

	return ResolvedTrackSource{
		RequestID:  requestID,
		SourceType: TypeExtraction,
		Location:   fileLocator(res.FilePath),
		Title:      res.Title,
	}, nil
}

func (r *Resolver) emit(requestID string, stage progress.Stage, message string) {
	r.sink.Publish(progress.Event{
		RequestID: requestID,
		Stage:     stage,
		Message:   message,
		Percent:   progress.PercentUnset,
	})
}

// sanitizeSegment reduces a playlist identifier to a safe single path
// segment, with a fixed fallback when nothing usable remains.
func sanitizeSegment(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	segment := strings.Trim(b.String(), "_")
	if segment == "" {
		return fallbackScratchSegment
	}
	return segment
}

// fileLocator maps a local file path to a locator the playback layer opens.
func fileLocator(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
