package jsrender

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yRedskull/jsrender/internal/confutil"
	"github.com/yRedskull/jsrender/minifier"
	"github.com/yRedskull/jsrender/tpl"
	"github.com/yRedskull/jsrender/webassets"
	"go.uber.org/zap"
)

// Defaults of the configuration keys understood by Init.
var Defaults = map[string]string{
	"rootdir":      "",
	"cachedir":     "",
	"minifier":     "",
	"combine":      "false",
	"url_prefix":   "/js/",
	"combined_url": "/combined.js",
}

// MimeType is registered for the js format.
const MimeType = "application/javascript"

// Config is the resolved configuration of a Module.
type Config struct {
	RootDir     string
	CacheDir    string
	Minifier    string
	Combine     bool
	URLPrefix   string
	CombinedURL string
}

type options struct {
	log *zap.Logger
}

// Option customises Init.
type Option func(*options)

// WithLogger sets the logger of the module and its minifier.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// Init configures javascript handling and registers the js format with
// renderer. Recognised keys:
//
//	rootdir       folder containing all javascript files. Falls back to the
//	              "js" sub-folder of the renderer's root folder.
//	cachedir      cache folder for minified files. Falls back to the "js"
//	              sub-folder of the asset manager's cache folder, then to
//	              the one of the renderer's cache folder.
//	minifier      backend to minify with, see minifier.New. Options for the
//	              backend are given as "minifier.<option>"; the name may also
//	              be given as "minifier.name".
//	combine       whether js() without arguments links the combined file.
//	url_prefix    prefix of single file urls, default "/js/".
//	combined_url  url of the combined file, default "/combined.js".
func Init(conf map[string]string, assets *webassets.Manager, renderer *tpl.Renderer, opts ...Option) (*Module, error) {
	o := options{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	log := o.log.Named("js")

	merged := make(map[string]string, len(Defaults)+len(conf))
	for k, v := range Defaults {
		merged[k] = v
	}
	for k, v := range conf {
		merged[k] = v
	}

	c := Config{
		RootDir:     merged["rootdir"],
		CacheDir:    merged["cachedir"],
		Minifier:    merged["minifier"],
		URLPrefix:   merged["url_prefix"],
		CombinedURL: merged["combined_url"],
	}
	if c.Minifier == "" {
		c.Minifier = merged["minifier.name"]
	}
	combine, err := confutil.ParseBool(merged["combine"])
	if err != nil {
		return nil, fmt.Errorf("js: combine: %w", err)
	}
	c.Combine = combine
	if !strings.HasPrefix(c.URLPrefix, "/") || !strings.HasSuffix(c.URLPrefix, "/") {
		return nil, fmt.Errorf("js: url_prefix must start and end with a slash: %q", c.URLPrefix)
	}

	var backend minifier.Backend
	if c.Minifier != "" {
		backend, err = minifier.New(c.Minifier, confutil.Sub(merged, "minifier"), log.Named("minifier"))
		if err != nil {
			return nil, fmt.Errorf("js: %w", err)
		}
	}

	if c.CacheDir == "" && assets.CacheDir() != "" {
		c.CacheDir = filepath.Join(assets.CacheDir(), "js")
	}

	m := &Module{
		conf:     c,
		renderer: renderer,
		assets:   assets,
		minifier: backend,
		virtual:  webassets.NewVirtualAssets(),
		log:      log,
	}
	if err := renderer.RegisterFormat("js", MimeType, c.RootDir, c.CacheDir, m); err != nil {
		return nil, fmt.Errorf("js: %w", err)
	}
	// the renderer may have filled in its own cache folder
	if dir := m.CacheDir(); dir != "" {
		if err := webassets.InitCacheFolder(dir, merged, true); err != nil {
			return nil, fmt.Errorf("js: %w", err)
		}
	}
	if backend != nil {
		renderer.AddMinifier(tpl.JavaScriptMime, minifier.Func(backend))
	}
	if err := m.finalize(); err != nil {
		return nil, err
	}
	log.Info("javascript module configured",
		zap.String("rootdir", m.RootDir()),
		zap.String("cachedir", m.CacheDir()),
		zap.String("minifier", c.Minifier),
		zap.Bool("combine", c.Combine))
	return m, nil
}

// finalize adds the js function and escape_js filter to html templates.
func (m *Module) finalize() error {
	if !m.renderer.HasFormat("html") {
		return nil
	}
	if err := m.renderer.AddFunction("html", "js", m.templateTags); err != nil {
		return err
	}
	return m.renderer.AddFilter("html", "escape_js", escapeFilter)
}
