// Package tpl is the templating host asset modules plug into. It knows
// formats (file types with a MIME type, root and cache folder and an optional
// converter), template functions per format, template engines, and renders
// HTML pages through a minifier and an LRU cache.
package tpl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	minjs "github.com/tdewolff/minify/v2/js"
	"github.com/yRedskull/jsrender/webassets"
	"go.uber.org/zap"
)

// ErrUnknownFormat is returned for paths whose format was never registered.
var ErrUnknownFormat = errors.New("unknown template format")

// JavaScriptMime matches every MIME type browsers accept for javascript.
var JavaScriptMime = regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`)

// javaScriptTypes are the literal types JavaScriptMime matches. Literal
// entries take precedence over patterns in minify.M, so AddMinifier can
// replace them.
var javaScriptTypes = []string{
	"application/javascript",
	"application/x-javascript",
	"application/ecmascript",
	"application/x-ecmascript",
	"text/javascript",
	"text/x-javascript",
	"text/ecmascript",
	"text/x-ecmascript",
}

func New(opts Options) (*Renderer, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	for _, t := range javaScriptTypes {
		m.AddFunc(t, minjs.Minify)
	}
	m.Add("text/html", &minhtml.Minifier{
		KeepSpecialComments: true,
		KeepDocumentTags:    true,
		KeepWhitespace:      false,
	})

	var c *lru.Cache
	if opts.CacheSize > 0 {
		var err error
		c, err = lru.New(opts.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	r := &Renderer{
		rootDir:      opts.RootDir,
		cacheDir:     opts.CacheDir,
		formats:      make(map[string]*Format),
		engines:      map[string]Engine{"tmpl": TextEngine{}},
		pagePattern:  opts.Pages,
		minifier:     m,
		cache:        c,
		pagesVersion: opts.Version,
		ttl:          ttl,
		log:          log,
	}
	if err := r.RegisterFormat("html", "text/html", "", "", nil); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterFormat adds a format. Empty folders fall back to a sub-folder named
// after the format inside the renderer's root and cache folders.
func (r *Renderer) RegisterFormat(name, mimeType, rootDir, cacheDir string, conv Converter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.formats[name]; ok {
		return fmt.Errorf("format %q already registered", name)
	}
	if rootDir == "" && r.rootDir != "" {
		rootDir = filepath.Join(r.rootDir, name)
	}
	if cacheDir == "" && r.cacheDir != "" {
		cacheDir = filepath.Join(r.cacheDir, name)
	}
	r.formats[name] = &Format{
		Name:      name,
		MimeType:  mimeType,
		RootDir:   rootDir,
		CacheDir:  cacheDir,
		converter: conv,
		funcs:     make(map[string]any),
	}
	r.log.Debug("format registered", zap.String("format", name), zap.String("rootdir", rootDir))
	return nil
}

func (r *Renderer) format(name string) *Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.formats[name]
}

// Formats lists the registered format names.
func (r *Renderer) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for n := range r.formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Renderer) HasFormat(name string) bool {
	return r.format(name) != nil
}

func (r *Renderer) FormatRootDir(name string) string {
	if f := r.format(name); f != nil {
		return f.RootDir
	}
	return ""
}

func (r *Renderer) FormatCacheDir(name string) string {
	if f := r.format(name); f != nil {
		return f.CacheDir
	}
	return ""
}

func (r *Renderer) FormatMimeType(name string) string {
	if f := r.format(name); f != nil {
		return f.MimeType
	}
	return ""
}

// AddFunction makes fn callable by name in templates of the given format.
func (r *Renderer) AddFunction(format, name string, fn any) error {
	r.mu.Lock()
	f, ok := r.formats[format]
	if ok {
		f.funcs[name] = fn
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if format == "html" {
		// parsed pages captured the old function set
		r.pagesVal.Store((*pageTemplate)(nil))
	}
	return nil
}

// AddFilter registers a pipeline function, used as {{ .Value | name }}.
func (r *Renderer) AddFilter(format, name string, fn any) error {
	return r.AddFunction(format, name, fn)
}

// Funcs returns a copy of the functions registered for format.
func (r *Renderer) Funcs(format string) map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any)
	if f, ok := r.formats[format]; ok {
		for k, v := range f.funcs {
			out[k] = v
		}
	}
	return out
}

func (r *Renderer) RegisterEngine(ext string, e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[ext] = e
}

// Engines lists the registered engine extensions.
func (r *Renderer) Engines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.engines))
	for e := range r.engines {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

func (r *Renderer) engine(ext string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[ext]
	return e, ok
}

// AddMinifier replaces the page minifier for MIME types matching pattern.
func (r *Renderer) AddMinifier(pattern *regexp.Regexp, fn minify.MinifierFunc) {
	for _, t := range append([]string{"text/css", "text/html"}, javaScriptTypes...) {
		if pattern.MatchString(t) {
			r.minifier.AddFunc(t, fn)
		}
	}
	r.minifier.AddFuncRegexp(pattern, fn)
}

// splitPath returns the format and, if the path is a template, the engine
// extension of path.
func (r *Renderer) splitPath(path string) (format, engineExt string) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if _, ok := r.engine(ext); ok && ext != "" {
		rest := strings.TrimSuffix(path, "."+ext)
		return strings.TrimPrefix(filepath.Ext(rest), "."), ext
	}
	return ext, ""
}

// Paths lists the files of a format found below its root folder plus the
// virtual paths, sorted. Paths are slash separated and relative to the root
// folder. Files starting with an underscore are hidden unless includeHidden.
func (r *Renderer) Paths(format string, virtual PathLister, includeHidden bool) ([]string, error) {
	f := r.format(format)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	var paths []string
	if virtual != nil {
		for _, p := range virtual.Paths() {
			if includeHidden || !hidden(p) {
				paths = append(paths, p)
			}
		}
	}
	if f.RootDir != "" {
		err := filepath.WalkDir(f.RootDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == f.RootDir && errors.Is(err, fs.ErrNotExist) {
					return fs.SkipAll
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(f.RootDir, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if name, _ := r.splitPath(rel); name != format {
				return nil
			}
			if !includeHidden && hidden(rel) {
				return nil
			}
			paths = append(paths, rel)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RenderFile renders the asset at path: templates go through their engine and
// then the converter's ConvertString, plain files through ConvertFile.
func (r *Renderer) RenderFile(ctx context.Context, path string) (string, error) {
	name, engineExt := r.splitPath(path)
	f := r.format(name)
	if f == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if engineExt == "" {
		if f.converter != nil {
			return f.converter.ConvertFile(ctx, path)
		}
		return readAsset(f, path)
	}

	src, err := readAsset(f, path)
	if err != nil {
		return "", err
	}
	e, _ := r.engine(engineExt)
	out, err := e.Render(ctx, path, src, r.Funcs(name))
	if err != nil {
		return "", fmt.Errorf("render %s: %w", path, err)
	}
	if f.converter != nil {
		return f.converter.ConvertString(ctx, out, path)
	}
	return out, nil
}

func readAsset(f *Format, path string) (string, error) {
	b, err := os.ReadFile(filepath.Join(f.RootDir, filepath.FromSlash(path)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &webassets.AssetNotFoundError{Category: f.Name, Path: path}
		}
		return "", err
	}
	return string(b), nil
}
