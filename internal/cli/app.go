package cli

import (
	"io"
	"path/filepath"

	"auxdeck/internal/catalog"
	"auxdeck/internal/config"
	"auxdeck/internal/fetchx"
	"auxdeck/internal/logx"
	"auxdeck/internal/paths"
	"auxdeck/internal/tools"
)

// settingsFileName is resolved relative to the application data root.
const settingsFileName = "settings.yaml"

// app wires the shared services behind every command: resolved paths, loaded
// settings, the catalog cache, and the tool installer.
type app struct {
	paths     paths.AppPaths
	settings  config.Settings
	logger    logx.Logger
	logCloser io.Closer
	cache     *catalog.Cache
	installer *tools.Installer
}

func newApp() (*app, error) {
	p, err := paths.Resolve()
	if err != nil {
		return nil, err
	}
	if err := p.EnsureDirs(); err != nil {
		return nil, err
	}

	settings, err := config.Load(filepath.Join(p.Root, settingsFileName))
	if err != nil {
		return nil, err
	}
	trustKey, err := settings.TrustKey()
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logx.New(p)
	if err != nil {
		return nil, err
	}

	client := fetchx.New(settings.Network.Timeout())
	cache := catalog.NewCache(settings.Catalog.AssetURL(), p.CatalogCacheFile, client, catalog.CacheOptions{
		TrustKey: trustKey,
		Logger:   logger,
	})
	releases := catalog.NewResolver(cache, logger)
	store := tools.NewManifestStore(p.ManifestFile)
	installer := tools.NewInstaller(releases, client, store, p, tools.InstallerOptions{Logger: logger})

	return &app{
		paths:     p,
		settings:  settings,
		logger:    logger,
		logCloser: logCloser,
		cache:     cache,
		installer: installer,
	}, nil
}

func (a *app) Close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}
