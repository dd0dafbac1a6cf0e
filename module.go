package jsrender

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yRedskull/jsrender/minifier"
	"github.com/yRedskull/jsrender/tpl"
	"github.com/yRedskull/jsrender/webassets"
	"go.uber.org/zap"
)

var (
	// ErrUnresolvedURL is returned when a url path matches no asset.
	ErrUnresolvedURL = errors.New("could not determine path for url")
	// ErrNotJavaScript is returned for asset paths that do not denote a
	// javascript file.
	ErrNotJavaScript = errors.New("not a javascript path")
)

// CombinedPath is the version manager key of the combined file.
const CombinedPath = "__combined__"

// Module is the configured javascript module. It is the converter of the js
// format and provides the js() template function.
type Module struct {
	conf     Config
	renderer *tpl.Renderer
	assets   *webassets.Manager
	minifier minifier.Backend
	virtual  *webassets.VirtualAssets
	log      *zap.Logger
}

func (m *Module) Config() Config {
	return m.conf
}

// Minify reports whether javascript content is minified.
func (m *Module) Minify() bool {
	return m.minifier != nil
}

func (m *Module) Minifier() minifier.Backend {
	return m.minifier
}

// RootDir is the folder javascript files are read from.
func (m *Module) RootDir() string {
	return m.renderer.FormatRootDir("js")
}

// CacheDir is the folder minified files are cached in, if any.
func (m *Module) CacheDir() string {
	return m.renderer.FormatCacheDir("js")
}

func (m *Module) Combine() bool {
	return m.conf.Combine
}

func (m *Module) Renderer() *tpl.Renderer {
	return m.renderer
}

func (m *Module) Assets() *webassets.Manager {
	return m.assets
}

// Virtual registers a javascript file generated by fn. A ".js" extension is
// appended to path if missing.
func (m *Module) Virtual(path string, fn webassets.RenderFunc) error {
	if !strings.HasSuffix(path, ".js") {
		path += ".js"
	}
	return m.virtual.Register(path, fn)
}

func (m *Module) IsVirtual(path string) bool {
	return m.virtual.Has(path)
}

// Paths lists all javascript files below the root folder and all virtual
// files, sorted. Minified siblings (*.min.js) are left out.
func (m *Module) Paths(includeHidden bool) ([]string, error) {
	all, err := m.renderer.Paths("js", m.virtual, includeHidden)
	if err != nil {
		return nil, err
	}
	paths := all[:0]
	for _, p := range all {
		if strings.HasSuffix(p, ".min.js") {
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (m *Module) sourceFile(p string) string {
	return filepath.Join(m.RootDir(), filepath.FromSlash(p))
}

// ConvertString minifies js if a minifier is configured. When path names a
// file below the root folder and a cache folder is configured, the result is
// cached and reused until the file changes.
func (m *Module) ConvertString(ctx context.Context, js, path string) (string, error) {
	var cachefile string
	if path != "" && m.CacheDir() != "" && !m.IsVirtual(path) {
		src, err := os.Stat(m.sourceFile(path))
		if err == nil {
			cachefile = filepath.Join(m.CacheDir(), filepath.FromSlash(path))
			if fi, err := os.Stat(cachefile); err == nil && fi.ModTime().After(src.ModTime()) {
				b, err := os.ReadFile(cachefile)
				if err == nil {
					return string(b), nil
				}
				m.log.Warn("unreadable cache file", zap.String("file", cachefile), zap.Error(err))
			}
		}
	}
	if m.minifier != nil {
		out, err := m.minifier.MinifyString(ctx, js)
		if err != nil {
			return "", fmt.Errorf("minify %s: %w", path, err)
		}
		js = out
	}
	if cachefile != "" {
		if err := writeCacheFile(cachefile, js); err != nil {
			m.log.Warn("could not write cache file", zap.String("file", cachefile), zap.Error(err))
		}
	}
	return js, nil
}

func writeCacheFile(file, content string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), file)
}

// ConvertFile renders a virtual file or reads a file below the root folder
// and passes it through ConvertString. When minifying, an existing
// "<name>.min.js" sibling is returned as is.
func (m *Module) ConvertFile(ctx context.Context, path string) (string, error) {
	if m.IsVirtual(path) {
		js, err := m.virtual.Render(ctx, path)
		if err != nil {
			return "", err
		}
		return m.ConvertString(ctx, js, path)
	}
	file := m.sourceFile(path)
	if fi, err := os.Stat(file); err != nil || !fi.Mode().IsRegular() {
		return "", &webassets.AssetNotFoundError{Category: "js", Path: path}
	}
	if m.Minify() && strings.HasSuffix(file, ".js") {
		if b, err := os.ReadFile(strings.TrimSuffix(file, ".js") + ".min.js"); err == nil {
			return stripBOM(string(b)), nil
		}
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return m.ConvertString(ctx, stripBOM(string(b)), path)
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// RenderSingle renders the asset at path, virtual or not.
func (m *Module) RenderSingle(ctx context.Context, path string) (string, error) {
	if m.IsVirtual(path) {
		return m.ConvertFile(ctx, path)
	}
	return m.renderer.RenderFile(ctx, path)
}

// RenderCombined renders all files of Paths(false) into one. Without a
// minifier every file is preceded by a banner naming it.
func (m *Module) RenderCombined(ctx context.Context) (string, error) {
	paths, err := m.Paths(false)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, 2*len(paths))
	for _, p := range paths {
		if !m.Minify() {
			parts = append(parts, banner(p))
		}
		js, err := m.RenderSingle(ctx, p)
		if err != nil {
			return "", err
		}
		parts = append(parts, js)
	}
	return strings.Join(parts, "\n\n"), nil
}

const bannerWidth = 76

func banner(p string) string {
	stars := strings.Repeat("*", bannerWidth)
	pad := bannerWidth - utf8.RuneCountInString(p)
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	centred := strings.Repeat(" ", left) + p + strings.Repeat(" ", pad-left)
	return "/*" + stars + "*/\n/*" + centred + "*/\n/*" + stars + "*/"
}

// PathToURLPath strips template engine extensions: "app.js.tmpl" is served
// as "app.js".
func (m *Module) PathToURLPath(p string) (string, error) {
	urlpath := p
	if !strings.HasSuffix(urlpath, ".js") {
		if i := strings.LastIndex(urlpath, "."); i >= 0 {
			urlpath = urlpath[:i]
		}
	}
	if !strings.HasSuffix(urlpath, ".js") {
		return "", fmt.Errorf("%w: %s", ErrNotJavaScript, p)
	}
	return urlpath, nil
}

// URLPathToPath maps a url path back to a virtual file, a file below the
// root folder or a template rendering to it.
func (m *Module) URLPathToPath(urlpath string) (string, error) {
	urlpath = strings.TrimPrefix(urlpath, "/")
	clean := path.Clean(urlpath)
	if !strings.HasSuffix(urlpath, ".js") || clean != urlpath || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedURL, urlpath)
	}
	if m.IsVirtual(urlpath) {
		return urlpath, nil
	}
	if isFile(m.sourceFile(urlpath)) {
		return urlpath, nil
	}
	for _, ext := range m.renderer.Engines() {
		if isFile(m.sourceFile(urlpath + "." + ext)) {
			return urlpath + "." + ext, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnresolvedURL, urlpath)
}

func isFile(file string) bool {
	fi, err := os.Stat(file)
	return err == nil && fi.Mode().IsRegular()
}

func escapeURLPath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// URLSingle returns the url of a single javascript file, carrying a content
// hash if versioning is enabled.
func (m *Module) URLSingle(ctx context.Context, p string) (string, error) {
	urlpath, err := m.PathToURLPath(p)
	if err != nil {
		return "", err
	}
	u := m.conf.URLPrefix + escapeURLPath(urlpath)
	vm := m.assets.Versions()
	if !vm.Enabled() {
		return u, nil
	}

	var hasher webassets.Hasher
	if m.IsVirtual(p) {
		hasher = func(ctx context.Context) (string, error) {
			return m.virtual.Hash(ctx, p)
		}
	} else {
		hasher = webassets.FileHasher(m.sourceFile(p))
	}
	hash, err := vm.Store(ctx, "js", urlpath, []webassets.Hasher{hasher}, func(ctx context.Context) ([]byte, error) {
		js, err := m.RenderSingle(ctx, p)
		return []byte(js), err
	})
	if err != nil {
		return "", err
	}
	if hash != "" {
		u += "?" + webassets.VersionParam + "=" + hash
	}
	return u, nil
}

// URLCombined returns the url of the combined file.
func (m *Module) URLCombined(ctx context.Context) (string, error) {
	u := m.conf.CombinedURL
	vm := m.assets.Versions()
	if !vm.Enabled() {
		return u, nil
	}
	hashers, err := m.combinedHashers()
	if err != nil {
		return "", err
	}
	hash, err := vm.Store(ctx, "js", CombinedPath, hashers, func(ctx context.Context) ([]byte, error) {
		js, err := m.RenderCombined(ctx)
		return []byte(js), err
	})
	if err != nil {
		return "", err
	}
	if hash != "" {
		u += "?" + webassets.VersionParam + "=" + hash
	}
	return u, nil
}

func (m *Module) combinedHashers() ([]webassets.Hasher, error) {
	paths, err := m.Paths(false)
	if err != nil {
		return nil, err
	}
	var files []string
	var hashers []webassets.Hasher
	for _, p := range paths {
		if !m.IsVirtual(p) {
			files = append(files, m.sourceFile(p))
			continue
		}
		hashers = append(hashers, func(ctx context.Context) (string, error) {
			return m.virtual.Hash(ctx, p)
		})
	}
	return append([]webassets.Hasher{webassets.FileHasher(files...)}, hashers...), nil
}

// Tags renders the script tags for the given paths, in order. Without paths
// it links the combined file if combining, or every file of Paths(false).
func (m *Module) Tags(ctx context.Context, paths ...string) (template.HTML, error) {
	if len(paths) == 0 {
		if m.conf.Combine {
			u, err := m.URLCombined(ctx)
			if err != nil {
				return "", err
			}
			return scriptTag(u), nil
		}
		all, err := m.Paths(false)
		if err != nil {
			return "", err
		}
		if len(all) == 0 {
			return "", nil
		}
		paths = all
	}
	var b strings.Builder
	for _, p := range paths {
		u, err := m.URLSingle(ctx, p)
		if err != nil {
			return "", err
		}
		b.WriteString(string(scriptTag(u)))
	}
	return template.HTML(b.String()), nil
}

func scriptTag(u string) template.HTML {
	return template.HTML(`<script src="` + template.HTMLEscapeString(u) + `"></script>`)
}

func (m *Module) templateTags(paths ...string) (template.HTML, error) {
	return m.Tags(context.Background(), paths...)
}
