package jsrender

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch observes the root folder until ctx is done. A change to a file drops
// its cached minified copy and the stored versions of the file and of the
// combined file, so the next request renders it afresh.
func (m *Module) Watch(ctx context.Context) error {
	root := m.RootDir()
	if root == "" {
		return errors.New("js: no root folder to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.log.Info("watching javascript files", zap.String("rootdir", root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						m.log.Warn("cannot watch folder", zap.String("folder", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			m.invalidate(ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// invalidate forgets everything derived from file.
func (m *Module) invalidate(file string) {
	rel, err := filepath.Rel(m.RootDir(), file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	if cache := m.CacheDir(); cache != "" {
		if err := os.Remove(filepath.Join(cache, filepath.FromSlash(rel))); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.log.Warn("cannot remove cache file", zap.String("path", rel), zap.Error(err))
		}
	}
	vm := m.assets.Versions()
	if urlpath, err := m.PathToURLPath(rel); err == nil {
		vm.Invalidate("js", urlpath)
	}
	// a .min.js sibling stands in for its source
	if strings.HasSuffix(rel, ".min.js") {
		vm.Invalidate("js", strings.TrimSuffix(rel, ".min.js")+".js")
	}
	vm.Invalidate("js", CombinedPath)
	m.log.Debug("javascript file changed", zap.String("path", rel))
}
