// Package webassets holds what asset-serving modules share: virtual assets,
// content-hash versioning of asset URLs and cache folders.
package webassets

import (
	"go.uber.org/zap"
)

// Config configures a Manager.
type Config struct {
	// CacheDir is the parent of every module's cache folder. Optional.
	CacheDir string
	// Versioning appends content hashes to asset URLs.
	Versioning bool
	// CacheSize bounds the number of versioned bodies kept in memory.
	CacheSize int
	// Compress keeps a brotli copy of every versioned body.
	Compress bool
}

type Manager struct {
	conf     Config
	versions *VersionManager
}

func New(conf Config, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm, err := newVersionManager(conf.Versioning, conf.Compress, conf.CacheSize, log.Named("versions"))
	if err != nil {
		return nil, err
	}
	return &Manager{conf: conf, versions: vm}, nil
}

func (m *Manager) CacheDir() string {
	return m.conf.CacheDir
}

func (m *Manager) Versions() *VersionManager {
	return m.versions
}
