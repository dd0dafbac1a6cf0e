package webassets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// VersionParam is the query parameter carrying an asset's content hash.
const VersionParam = "_v"

// Hasher returns a token that changes whenever the underlying asset changes.
type Hasher func(ctx context.Context) (string, error)

// Renderer produces the body of an asset.
type Renderer func(ctx context.Context) ([]byte, error)

// versionEntry keeps the rendered body and its hash
type versionEntry struct {
	source    string
	hash      string
	body      []byte
	brotli    []byte
	createdAt time.Time
}

// VersionManager hands out content hashes for asset URLs and serves the
// bodies those hashes were computed from.
type VersionManager struct {
	enabled  bool
	compress bool
	cache    *lru.Cache
	log      *zap.Logger
}

func newVersionManager(enabled, compress bool, size int, log *zap.Logger) (*VersionManager, error) {
	vm := &VersionManager{enabled: enabled, compress: compress, log: log}
	if !enabled {
		return vm, nil
	}
	if size <= 0 {
		size = 256
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	vm.cache = c
	return vm, nil
}

func (vm *VersionManager) Enabled() bool {
	return vm.enabled
}

func entryKey(category, path string) string {
	return category + "|" + path
}

// Store returns the hash for the asset, rendering it only if one of the
// hashers reports a change since the last call. It returns "" when versioning
// is disabled.
func (vm *VersionManager) Store(ctx context.Context, category, path string, hashers []Hasher, render Renderer) (string, error) {
	if !vm.enabled {
		return "", nil
	}
	var parts []string
	for _, h := range hashers {
		s, err := h(ctx)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	source := strings.Join(parts, ",")
	key := entryKey(category, path)
	if v, ok := vm.cache.Get(key); ok {
		if e := v.(*versionEntry); e.source == source {
			return e.hash, nil
		}
	}

	body, err := render(ctx)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	e := &versionEntry{
		source:    source,
		hash:      hex.EncodeToString(sum[:])[:16],
		body:      body,
		createdAt: time.Now(),
	}
	if vm.compress {
		e.brotli, err = compressBrotli(body)
		if err != nil {
			vm.log.Warn("brotli compression failed", zap.String("path", path), zap.Error(err))
		}
	}
	vm.cache.Add(key, e)
	vm.log.Debug("asset version stored",
		zap.String("category", category), zap.String("path", path), zap.String("hash", e.hash))
	return e.hash, nil
}

// Hash returns the last stored hash for the asset.
func (vm *VersionManager) Hash(category, path string) (string, bool) {
	if !vm.enabled {
		return "", false
	}
	v, ok := vm.cache.Get(entryKey(category, path))
	if !ok {
		return "", false
	}
	return v.(*versionEntry).hash, true
}

// HandleRequest answers a request for a versioned asset from the store. It
// returns false if the request must be rendered by the caller, which happens
// when versioning is off, the request carries no version, or the version is
// stale.
func (vm *VersionManager) HandleRequest(c *gin.Context, category, path, contentType string) bool {
	if !vm.enabled {
		return false
	}
	version := c.Query(VersionParam)
	if version == "" {
		return false
	}
	v, ok := vm.cache.Get(entryKey(category, path))
	if !ok {
		return false
	}
	e := v.(*versionEntry)
	if e.hash != version {
		return false
	}

	c.Header("Content-Type", contentType)
	c.Header("ETag", `"`+e.hash+`"`)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Header("Vary", "Accept-Encoding")
	if inmMatches(c.GetHeader("If-None-Match"), e.hash) {
		c.Status(http.StatusNotModified)
		c.Writer.WriteHeaderNow()
		return true
	}
	body := e.body
	if e.brotli != nil && acceptsBrotli(c.GetHeader("Accept-Encoding")) {
		c.Header("Content-Encoding", "br")
		body = e.brotli
	}
	c.Writer.WriteHeader(http.StatusOK)
	_, _ = c.Writer.Write(body)
	return true
}

// Invalidate drops the stored version of an asset.
func (vm *VersionManager) Invalidate(category, path string) {
	if !vm.enabled {
		return
	}
	vm.cache.Remove(entryKey(category, path))
}

// Purge drops all stored versions.
func (vm *VersionManager) Purge() {
	if !vm.enabled {
		return
	}
	vm.cache.Purge()
}

// FileHasher hashes the name, size and modification time of each file.
// Missing files hash as missing instead of failing.
func FileHasher(files ...string) Hasher {
	return func(context.Context) (string, error) {
		h := sha256.New()
		for _, f := range files {
			fi, err := os.Stat(f)
			if err != nil {
				fmt.Fprintf(h, "%s:missing\n", f)
				continue
			}
			fmt.Fprintf(h, "%s:%d:%d\n", f, fi.Size(), fi.ModTime().UnixNano())
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}
}

// inmMatches checks whether If-None-Match contains the etag (handles
// multiple values and weak validators).
func inmMatches(inm string, etag string) bool {
	if inm == "" {
		return false
	}
	for _, p := range strings.Split(inm, ",") {
		p = strings.TrimSpace(p)
		if p == "*" || p == `W/"`+etag+`"` || p == `"`+etag+`"` {
			return true
		}
	}
	return false
}

func acceptsBrotli(acceptEncoding string) bool {
	for _, p := range strings.Split(acceptEncoding, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(p), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}

func compressBrotli(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
