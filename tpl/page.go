package tpl

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	htmltemplate "html/template"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

type pageTemplate = htmltemplate.Template

// ErrNoPages is returned when RenderPage is used without a page pattern.
var ErrNoPages = errors.New("no page templates configured")

// ReloadPages re-parses the page templates and swaps them in atomically. The
// page cache is cleared so no stale HTML is served.
func (r *Renderer) ReloadPages() error {
	if r.pagePattern == "" {
		return ErrNoPages
	}
	root := htmltemplate.New("").Funcs(r.Funcs("html"))
	tmpl, err := root.ParseGlob(r.pagePattern)
	if err != nil {
		return err
	}
	r.pagesVal.Store(tmpl)
	r.ClearCache()
	return nil
}

func (r *Renderer) currentPages() (*pageTemplate, error) {
	if v, ok := r.pagesVal.Load().(*pageTemplate); ok && v != nil {
		return v, nil
	}
	if err := r.ReloadPages(); err != nil {
		return nil, err
	}
	return r.pagesVal.Load().(*pageTemplate), nil
}

// RenderPage executes the named page template and writes it minified. GET
// responses are cached with a weak etag for the configured TTL; other methods
// are rendered unminified and uncached. In gin's debug mode the templates are
// reloaded on every call.
func (r *Renderer) RenderPage(c *gin.Context, status int, name string, data any) {
	if IsDebugMode() && r.pagePattern != "" {
		if err := r.ReloadPages(); err != nil {
			r.log.Error("reload pages failed", zap.Error(err))
		}
	}

	tmpl, err := r.currentPages()
	if err != nil {
		r.log.Error("no pages loaded", zap.Error(err))
		c.String(http.StatusInternalServerError, "template error")
		return
	}

	if c.Request.Method != http.MethodGet {
		buf := &bytes.Buffer{}
		if err := tmpl.ExecuteTemplate(buf, name, data); err != nil {
			r.log.Error("page execute error", zap.String("page", name), zap.Error(err))
			c.String(http.StatusInternalServerError, "template render error")
			return
		}
		c.Data(status, "text/html; charset=utf-8", buf.Bytes())
		return
	}

	contentType := "text/html; charset=utf-8"
	key := c.Request.URL.Path + "?" + c.Request.URL.RawQuery + "|tmpl:" + name + "|v:" + r.pagesVersion

	cache := r.pageCache()
	if cache != nil {
		if v, ok := cache.Get(key); ok {
			ci := v.(cachedPage)
			if time.Since(ci.CreatedAt) < r.ttl {
				if inmMatches(c.GetHeader("If-None-Match"), ci.ETag) {
					c.Status(http.StatusNotModified)
					c.Writer.WriteHeaderNow()
					return
				}
				writePage(c, status, ci)
				return
			}
			cache.Remove(key)
		}
	}

	buf := &bytes.Buffer{}
	if err := tmpl.ExecuteTemplate(buf, name, data); err != nil {
		r.log.Error("page execute error", zap.String("page", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "template render error")
		return
	}

	dst := &bytes.Buffer{}
	if err := r.minifier.Minify("text/html", dst, bytes.NewReader(buf.Bytes())); err != nil {
		r.log.Warn("minify error, serving unminified page", zap.String("page", name), zap.Error(err))
		dst.Reset()
		_, _ = io.Copy(dst, buf)
	}

	sum := sha256.Sum256(dst.Bytes())
	ci := cachedPage{
		Body:        dst.Bytes(),
		ETag:        hex.EncodeToString(sum[:]),
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
	if cache != nil {
		cache.Add(key, ci)
	}
	writePage(c, status, ci)
}

func writePage(c *gin.Context, status int, ci cachedPage) {
	c.Header("Content-Type", ci.ContentType)
	c.Header("ETag", `W/"`+ci.ETag+`"`)
	c.Header("Cache-Control", "public, max-age=60")
	c.Header("Vary", "Accept-Encoding")
	c.Writer.WriteHeader(status)
	_, _ = c.Writer.Write(ci.Body)
}

func (r *Renderer) pageCache() *lru.Cache {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache
}

// ClearCache empties the page cache, if any.
func (r *Renderer) ClearCache() {
	if cache := r.pageCache(); cache != nil {
		cache.Purge()
	}
}

// DisableCache turns page caching off at runtime.
func (r *Renderer) DisableCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = nil
}
