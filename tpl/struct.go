package tpl

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/tdewolff/minify/v2"
	"go.uber.org/zap"
)

// Converter turns source of a format into its deliverable form, e.g. by
// minifying it.
type Converter interface {
	ConvertString(ctx context.Context, src, path string) (string, error)
	ConvertFile(ctx context.Context, path string) (string, error)
}

// Engine renders a template file before it is handed to the format's
// converter. Engines are selected by the last extension of a path, so
// "app.js.tmpl" is rendered by the "tmpl" engine as a "js" file.
type Engine interface {
	Render(ctx context.Context, name, src string, funcs map[string]any) (string, error)
}

// PathLister lists paths that exist without a file on disk.
type PathLister interface {
	Paths() []string
}

// Format is a file type known to the renderer.
type Format struct {
	Name      string
	MimeType  string
	RootDir   string
	CacheDir  string
	converter Converter
	funcs     map[string]any
}

// cachedPage keeps the minified body and its etag
type cachedPage struct {
	Body        []byte
	ETag        string
	ContentType string
	CreatedAt   time.Time
}

type Renderer struct {
	rootDir  string
	cacheDir string

	mu      sync.RWMutex
	formats map[string]*Format
	engines map[string]Engine

	pagesVal    atomic.Value // stores *htmltemplate.Template
	pagePattern string

	minifier     *minify.M
	cache        *lru.Cache
	pagesVersion string
	ttl          time.Duration
	log          *zap.Logger
}

// Options configure a Renderer.
type Options struct {
	// RootDir is the parent of each format's root folder.
	RootDir string
	// CacheDir is the parent of each format's cache folder.
	CacheDir string
	// Pages is a glob of html/template files rendered by RenderPage.
	Pages string
	// Version is mixed into page cache keys.
	Version   string
	TTL       time.Duration
	CacheSize int
	Logger    *zap.Logger
}
