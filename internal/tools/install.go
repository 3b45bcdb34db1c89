package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"auxdeck/internal/catalog"
	"auxdeck/internal/integrity"
	"auxdeck/internal/logx"
	"auxdeck/internal/paths"
)

// ErrSignatureInvalid reports a release whose signature did not verify.
// Fatal to the install attempt; never retried automatically.
var ErrSignatureInvalid = errors.New("release signature invalid")

// ChecksumMismatchError reports a downloaded artifact whose hash does not
// match the release's declared hash. Fatal to the install attempt.
type ChecksumMismatchError struct {
	Tool     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch: expected %s, got %s", e.Tool, e.Expected, e.Actual)
}

// ReleaseSource resolves the target release for a tool on the current platform.
type ReleaseSource interface {
	Resolve(ctx context.Context, tool string) (catalog.Release, error)
}

// Fetcher retrieves a complete remote buffer.
type Fetcher interface {
	FetchBuffer(ctx context.Context, url string) ([]byte, error)
}

// Installer ensures a tool's verified binary is present locally. Each install
// attempt walks CheckExisting, then either confirms the existing binary or
// downloads, verifies, and commits a fresh one. Concurrent requests for the
// same tool coalesce onto a single in-flight install.
type Installer struct {
	releases ReleaseSource
	fetcher  Fetcher
	manifest *ManifestStore

	binDir       string
	downloadsDir string
	logger       logx.Logger
	now          func() time.Time
	group        singleflight.Group
}

// InstallerOptions configures an Installer. Zero values select defaults.
type InstallerOptions struct {
	Logger logx.Logger
	Now    func() time.Time
}

// NewInstaller builds an installer over the given release source and fetcher,
// storing binaries and the manifest per the application paths.
func NewInstaller(releases ReleaseSource, fetcher Fetcher, manifest *ManifestStore, p paths.AppPaths, opts InstallerOptions) *Installer {
	if opts.Logger == nil {
		opts.Logger = logx.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Installer{
		releases:     releases,
		fetcher:      fetcher,
		manifest:     manifest,
		binDir:       p.BinDir,
		downloadsDir: p.DownloadsDir,
		logger:       opts.Logger,
		now:          opts.Now,
	}
}

// EnsureInstalled returns the path of the tool's verified binary, installing
// or upgrading as needed. The on-disk binary is re-hashed on every call, so
// external tampering or corruption between runs is detected, not just version
// changes.
func (i *Installer) EnsureInstalled(ctx context.Context, tool string) (string, error) {
	v, err, _ := i.group.Do(tool, func() (any, error) {
		return i.ensure(ctx, tool)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Reinstall downloads and commits the tool's release even when the existing
// binary still verifies.
func (i *Installer) Reinstall(ctx context.Context, tool string) (string, error) {
	v, err, _ := i.group.Do(tool, func() (any, error) {
		rel, finalPath, err := i.resolveRelease(ctx, tool)
		if err != nil {
			return "", err
		}
		return i.install(ctx, tool, rel, finalPath)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (i *Installer) resolveRelease(ctx context.Context, tool string) (catalog.Release, string, error) {
	rel, err := i.releases.Resolve(ctx, tool)
	if err != nil {
		return catalog.Release{}, "", err
	}
	if strings.ContainsAny(rel.BinaryFileName, `/\`) || rel.BinaryFileName == "" {
		return catalog.Release{}, "", fmt.Errorf("release for %s has unusable binary file name %q", tool, rel.BinaryFileName)
	}
	return rel, filepath.Join(i.binDir, rel.BinaryFileName), nil
}

func (i *Installer) ensure(ctx context.Context, tool string) (string, error) {
	rel, finalPath, err := i.resolveRelease(ctx, tool)
	if err != nil {
		return "", err
	}

	manifest := i.manifest.Load()
	if rec, ok := manifest.Tools[tool]; ok && i.recordVerifies(rec, rel, finalPath) {
		if err := markExecutable(rec.BinaryPath); err != nil {
			return "", err
		}
		rec.LastVerifiedAt = i.now().UTC()
		manifest.Tools[tool] = rec
		if err := i.manifest.Save(manifest); err != nil {
			return "", err
		}
		i.logger.Printf("tool %s verified at %s", tool, rec.BinaryPath)
		return rec.BinaryPath, nil
	}

	return i.install(ctx, tool, rel, finalPath)
}

// recordVerifies reports whether the existing record still matches the target
// release and the on-disk binary still hashes to the recorded digest.
func (i *Installer) recordVerifies(rec Record, rel catalog.Release, finalPath string) bool {
	if rec.Version != rel.Version || rec.BinaryPath != finalPath {
		return false
	}
	if rel.ContentHash != "" && !strings.EqualFold(rec.ContentHash, rel.ContentHash) {
		return false
	}
	if ok, err := paths.FileExists(rec.BinaryPath); err != nil || !ok {
		return false
	}
	sum, err := integrity.HashFile(rec.BinaryPath)
	if err != nil || !strings.EqualFold(sum, rec.ContentHash) {
		return false
	}
	return true
}

func (i *Installer) install(ctx context.Context, tool string, rel catalog.Release, finalPath string) (string, error) {
	if err := os.MkdirAll(i.downloadsDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare downloads dir: %w", err)
	}

	data, err := i.fetcher.FetchBuffer(ctx, rel.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", tool, err)
	}

	tmp, err := os.CreateTemp(i.downloadsDir, tool+"-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp binary: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp binary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp binary: %w", err)
	}

	sum, err := integrity.HashFile(tmpPath)
	if err != nil {
		return "", err
	}
	if rel.ContentHash != "" && !strings.EqualFold(sum, rel.ContentHash) {
		return "", &ChecksumMismatchError{Tool: tool, Expected: rel.ContentHash, Actual: sum}
	}

	if rel.Signature != "" && rel.PublicKey != "" {
		sig, err := base64.StdEncoding.DecodeString(rel.Signature)
		if err != nil {
			return "", fmt.Errorf("%s: decode signature: %w", tool, ErrSignatureInvalid)
		}
		if !integrity.VerifySignature(catalog.ReleasePayload(tool, rel), rel.PublicKey, sig) {
			return "", fmt.Errorf("%s: %w", tool, ErrSignatureInvalid)
		}
	}

	if err := markExecutable(tmpPath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(i.binDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare bin dir: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("commit %s binary: %w", tool, err)
	}
	committed = true

	installedAt := i.now().UTC()
	manifest := i.manifest.Load()
	manifest.Tools[tool] = Record{
		Version:        rel.Version,
		ContentHash:    sum,
		BinaryPath:     finalPath,
		SourceURL:      rel.DownloadURL,
		InstalledAt:    installedAt,
		LastVerifiedAt: installedAt,
	}
	if err := i.manifest.Save(manifest); err != nil {
		return "", err
	}

	i.logger.Printf("installed %s %s to %s", tool, rel.Version, finalPath)
	return finalPath, nil
}

// Status reports the manifest record for a tool, re-hashing the on-disk
// binary to reflect its current verification state.
func (i *Installer) Status(tool string) Status {
	rec, ok := i.manifest.Load().Tools[tool]
	if !ok {
		return Status{Tool: tool}
	}

	st := Status{
		Tool:           tool,
		Version:        rec.Version,
		Installed:      true,
		Path:           rec.BinaryPath,
		InstalledAt:    rec.InstalledAt,
		LastVerifiedAt: rec.LastVerifiedAt,
	}

	sum, err := integrity.HashFile(rec.BinaryPath)
	switch {
	case err != nil:
		st.Error = err.Error()
	case !strings.EqualFold(sum, rec.ContentHash):
		st.Error = "binary does not match recorded hash"
	default:
		st.Verified = true
	}
	return st
}

func markExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}
