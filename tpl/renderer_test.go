package tpl

import (
	"context"
	"errors"
	htmltemplate "html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdewolff/minify/v2"
	"github.com/yRedskull/jsrender/webassets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// upper is a converter that marks what went through it.
type upper struct{ root string }

func (u upper) ConvertString(_ context.Context, src, path string) (string, error) {
	return strings.ToUpper(src), nil
}

func (u upper) ConvertFile(ctx context.Context, path string) (string, error) {
	b, err := os.ReadFile(filepath.Join(u.root, path))
	if err != nil {
		return "", &webassets.AssetNotFoundError{Category: "js", Path: path}
	}
	return u.ConvertString(ctx, string(b), path)
}

type virtual []string

func (v virtual) Paths() []string { return v }

func TestFormats(t *testing.T) {
	r, err := New(Options{RootDir: "/srv/tpl", CacheDir: "/var/cache/tpl"})
	require.NoError(t, err)
	require.NoError(t, r.RegisterFormat("js", "application/javascript", "", "", nil))
	require.NoError(t, r.RegisterFormat("css", "text/css", "/srv/css", "/tmp/css", nil))
	assert.Error(t, r.RegisterFormat("js", "application/javascript", "", "", nil))

	assert.Equal(t, []string{"css", "html", "js"}, r.Formats())
	assert.True(t, r.HasFormat("html"))
	assert.Equal(t, filepath.Join("/srv/tpl", "js"), r.FormatRootDir("js"))
	assert.Equal(t, filepath.Join("/var/cache/tpl", "js"), r.FormatCacheDir("js"))
	assert.Equal(t, "/srv/css", r.FormatRootDir("css"))
	assert.Equal(t, "application/javascript", r.FormatMimeType("js"))
	assert.Empty(t, r.FormatMimeType("svg"))
	assert.Equal(t, []string{"tmpl"}, r.Engines())
}

func TestFunctions(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, r.AddFunction("html", "hello", func() string { return "hi" }))
	require.NoError(t, r.AddFilter("html", "shout", strings.ToUpper))
	assert.ErrorIs(t, r.AddFunction("svg", "x", strings.ToUpper), ErrUnknownFormat)

	funcs := r.Funcs("html")
	assert.Contains(t, funcs, "hello")
	assert.Contains(t, funcs, "shout")
	delete(funcs, "hello")
	assert.Contains(t, r.Funcs("html"), "hello", "Funcs returns a copy")
}

func TestPaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"app.js":          "",
		"lib/util.js":     "",
		"_private.js":     "",
		"lib/_inner.js":   "",
		"gen.js.tmpl":     "",
		"style.css":       "",
		"readme.txt":      "",
		"lib/extra.js.go": "",
	})
	r, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, r.RegisterFormat("js", "application/javascript", root, "", nil))

	paths, err := r.Paths("js", virtual{"virt.js", "_hidden_virt.js"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.js", "gen.js.tmpl", "lib/util.js", "virt.js"}, paths)

	paths, err = r.Paths("js", nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"_private.js", "app.js", "gen.js.tmpl", "lib/_inner.js", "lib/util.js"}, paths)

	_, err = r.Paths("svg", nil, false)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestPathsMissingRoot(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, r.RegisterFormat("js", "application/javascript", filepath.Join(t.TempDir(), "nope"), "", nil))
	paths, err := r.Paths("js", virtual{"a.js"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, paths)
}

func TestRenderFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"app.js":         "var app;",
		"gen.js.tmpl":    `var name = "{{ .Path }}"; var n = {{ double 21 }};`,
		"broken.js.tmpl": `{{ .Nope`,
	})
	r, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, r.RegisterFormat("js", "application/javascript", root, "", upper{root}))
	require.NoError(t, r.AddFunction("js", "double", func(i int) int { return i * 2 }))

	out, err := r.RenderFile(context.Background(), "app.js")
	require.NoError(t, err)
	assert.Equal(t, "VAR APP;", out)

	out, err = r.RenderFile(context.Background(), "gen.js.tmpl")
	require.NoError(t, err)
	assert.Equal(t, `VAR NAME = "GEN.JS.TMPL"; VAR N = 42;`, out)

	_, err = r.RenderFile(context.Background(), "broken.js.tmpl")
	assert.Error(t, err)

	_, err = r.RenderFile(context.Background(), "missing.js.tmpl")
	var nf *webassets.AssetNotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = r.RenderFile(context.Background(), "image.svg")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

// shout renders templates in upper case.
type shout struct{}

func (shout) Render(_ context.Context, _, src string, _ map[string]any) (string, error) {
	return strings.ToUpper(src), nil
}

func TestRegisterEngine(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"loud.js.shout": "var loud;",
		"quiet.js":      "var quiet;",
	})
	r, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, r.RegisterFormat("js", "application/javascript", root, "", nil))
	r.RegisterEngine("shout", shout{})
	assert.Equal(t, []string{"shout", "tmpl"}, r.Engines())

	paths, err := r.Paths("js", nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"loud.js.shout", "quiet.js"}, paths)

	out, err := r.RenderFile(context.Background(), "loud.js.shout")
	require.NoError(t, err)
	assert.Equal(t, "VAR LOUD;", out)
}

func TestRenderFileWithoutConverter(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"txt/a.txt": "plain"})
	r, err := New(Options{RootDir: root})
	require.NoError(t, err)
	require.NoError(t, r.RegisterFormat("txt", "text/plain", "", "", nil))

	out, err := r.RenderFile(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}

func newPageRenderer(t *testing.T, cacheSize int) *Renderer {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.html": `{{ define "index" }}<html>
  <body>
    <p>  Hello, {{ . }}  </p>
    {{ greet }}
  </body>
</html>{{ end }}`,
	})
	r, err := New(Options{Pages: filepath.Join(dir, "*.html"), CacheSize: cacheSize, Version: "1"})
	require.NoError(t, err)
	require.NoError(t, r.AddFunction("html", "greet", func() htmltemplate.HTML { return "<b>hi</b>" }))
	return r
}

func TestRenderPage(t *testing.T) {
	r := newPageRenderer(t, 16)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RenderPage(c, http.StatusOK, "index", "World")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Hello, World")
	assert.Contains(t, body, "<b>hi</b>")
	assert.NotContains(t, body, "\n    ")
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	// served from cache, conditional request
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("If-None-Match", etag)
	r.RenderPage(c, http.StatusOK, "index", "Someone else")
	assert.Equal(t, http.StatusNotModified, w.Code)

	r.ClearCache()
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RenderPage(c, http.StatusOK, "index", "Again")
	assert.Contains(t, w.Body.String(), "Hello, Again")
}

func TestAddMinifierReplacesInlineScripts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.html": `{{ define "index" }}<p>x</p><script>var  a  =  1;</script>{{ end }}`,
	})
	r, err := New(Options{Pages: filepath.Join(dir, "*.html")})
	require.NoError(t, err)

	out, err := r.minifier.String("text/javascript", "var  a  =  1;")
	require.NoError(t, err)
	assert.Equal(t, "var a=1", out)

	r.AddMinifier(JavaScriptMime, func(_ *minify.M, w io.Writer, _ io.Reader, _ map[string]string) error {
		_, err := io.WriteString(w, "CONFIGURED")
		return err
	})
	out, err = r.minifier.String("application/javascript", "var  a  =  1;")
	require.NoError(t, err)
	assert.Equal(t, "CONFIGURED", out)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RenderPage(c, http.StatusOK, "index", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<script>CONFIGURED</script>")

	css, err := r.minifier.String("text/css", "a {  color : red ; }")
	require.NoError(t, err)
	assert.Equal(t, "a{color:red}", css)
}

func TestDisableCache(t *testing.T) {
	r := newPageRenderer(t, 16)
	render := func(name string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		r.RenderPage(c, http.StatusOK, "index", name)
		return w
	}

	assert.Contains(t, render("First").Body.String(), "Hello, First")
	assert.Contains(t, render("Second").Body.String(), "Hello, First")

	r.DisableCache()
	assert.Contains(t, render("Third").Body.String(), "Hello, Third")
	assert.Contains(t, render("Fourth").Body.String(), "Hello, Fourth")
	r.ClearCache()
}

func TestRenderPageNonGet(t *testing.T) {
	r := newPageRenderer(t, 0)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	r.RenderPage(c, http.StatusOK, "index", "Poster")
	assert.Contains(t, w.Body.String(), "Hello, Poster")
	assert.Empty(t, w.Header().Get("ETag"))
}

func TestRenderPageErrors(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RenderPage(c, http.StatusOK, "index", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	r = newPageRenderer(t, 0)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RenderPage(c, http.StatusOK, "missing", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
