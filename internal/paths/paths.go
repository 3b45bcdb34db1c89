package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppPaths captures canonical locations for auxdeck's managed state: installed
// tool binaries, in-flight downloads, the remote catalog cache, extraction
// scratch space, and logs.
type AppPaths struct {
	Root             string
	BinDir           string
	DownloadsDir     string
	ExtractDir       string
	LogsDir          string
	ManifestFile     string
	CatalogCacheFile string
}

// Resolve determines the application data root. AUXDECK_HOME overrides the
// per-OS default entirely; AUXDECK_TOOLS_DIR overrides only the binaries
// directory.
func Resolve() (AppPaths, error) {
	root, err := dataRoot()
	if err != nil {
		return AppPaths{}, err
	}
	p := newAppPaths(root)

	if override, ok := os.LookupEnv("AUXDECK_TOOLS_DIR"); ok && override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return AppPaths{}, fmt.Errorf("resolve AUXDECK_TOOLS_DIR: %w", err)
		}
		p.BinDir = abs
		p.DownloadsDir = filepath.Join(abs, "downloads")
		p.ManifestFile = filepath.Join(abs, "manifest.json")
	}
	return p, nil
}

func dataRoot() (string, error) {
	if override, ok := os.LookupEnv("AUXDECK_HOME"); ok && override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("resolve AUXDECK_HOME: %w", err)
		}
		return abs, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Auxdeck"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "Auxdeck"), nil
		}
		return filepath.Join(home, "AppData", "Local", "Auxdeck"), nil
	default:
		return filepath.Join(home, ".local", "share", "auxdeck"), nil
	}
}

func newAppPaths(root string) AppPaths {
	binDir := filepath.Join(root, "bin")
	return AppPaths{
		Root:             root,
		BinDir:           binDir,
		DownloadsDir:     filepath.Join(binDir, "downloads"),
		ExtractDir:       filepath.Join(root, "extract"),
		LogsDir:          filepath.Join(root, "logs"),
		ManifestFile:     filepath.Join(binDir, "manifest.json"),
		CatalogCacheFile: filepath.Join(root, "catalog_cache.json"),
	}
}

// EnsureDirs creates the standard directory hierarchy.
func (p AppPaths) EnsureDirs() error {
	dirs := []string{p.Root, p.BinDir, p.DownloadsDir, p.ExtractDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
