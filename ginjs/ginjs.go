// Package ginjs serves the files of a jsrender.Module with gin.
package ginjs

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yRedskull/jsrender"
	"github.com/yRedskull/jsrender/excjs"
	"github.com/yRedskull/jsrender/webassets"
	"go.uber.org/zap"
)

// ContentType of every javascript response.
const ContentType = "application/javascript; charset=UTF-8"

type handler struct {
	module *jsrender.Module
	log    *zap.Logger
}

// Register adds the routes for single files below the module's url prefix and
// for the combined file.
func Register(router gin.IRoutes, m *jsrender.Module, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{module: m, log: log.Named("ginjs")}
	conf := m.Config()
	router.GET(conf.URLPrefix+"*path", h.single)
	router.GET(conf.CombinedURL, h.combined)
}

func (h *handler) single(c *gin.Context) {
	urlpath := strings.TrimPrefix(c.Param("path"), "/")
	if !strings.HasSuffix(urlpath, ".js") {
		c.String(http.StatusNotFound, "not found")
		return
	}
	versions := h.module.Assets().Versions()
	if versions.HandleRequest(c, "js", urlpath, ContentType) {
		return
	}
	path, err := h.module.URLPathToPath(urlpath)
	if err != nil {
		c.String(http.StatusNotFound, "not found")
		return
	}
	js, err := h.module.RenderSingle(c.Request.Context(), path)
	if err != nil {
		h.fail(c, path, err)
		return
	}
	c.Data(http.StatusOK, ContentType, []byte(js))
}

func (h *handler) combined(c *gin.Context) {
	versions := h.module.Assets().Versions()
	if versions.HandleRequest(c, "js", jsrender.CombinedPath, ContentType) {
		return
	}
	js, err := h.module.RenderCombined(c.Request.Context())
	if err != nil {
		h.fail(c, "combined", err)
		return
	}
	c.Data(http.StatusOK, ContentType, []byte(js))
}

// fail answers with 404 for missing assets and 500 otherwise. In debug mode
// the 500 body logs the error to the browser console.
func (h *handler) fail(c *gin.Context, path string, err error) {
	var nf *webassets.AssetNotFoundError
	if errors.As(err, &nf) {
		c.String(http.StatusNotFound, "not found")
		return
	}
	h.log.Error("javascript render failed", zap.String("path", path), zap.Error(err))
	if gin.IsDebugging() {
		c.Data(http.StatusInternalServerError, ContentType, []byte(excjs.ConsoleJS(err)))
		return
	}
	c.String(http.StatusInternalServerError, "internal error")
}
