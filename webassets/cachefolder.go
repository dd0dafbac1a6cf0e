package webassets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yRedskull/jsrender/internal/confutil"
)

const confMarker = "__conf__"

// InitCacheFolder creates dir. With autopurge, the folder is emptied whenever
// conf differs from the configuration it was last initialised with.
func InitCacheFolder(dir string, conf map[string]string, autopurge bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache folder: %w", err)
	}
	if !autopurge {
		return nil
	}
	sum := sha256.Sum256([]byte(confutil.Fingerprint(conf)))
	want := hex.EncodeToString(sum[:])
	marker := filepath.Join(dir, confMarker)
	if got, err := os.ReadFile(marker); err == nil && string(got) == want {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cache folder: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("cache folder: purge: %w", err)
		}
	}
	if err := os.WriteFile(marker, []byte(want), 0o644); err != nil {
		return fmt.Errorf("cache folder: %w", err)
	}
	return nil
}
