package minifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/robertkrimen/otto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdewolff/minify/v2"
)

const sample = `
/* adds two numbers */
function add(firstNumber, secondNumber) {
    var total = firstNumber + secondNumber;
    return total;
}

// greets someone
function greet(personName) {
    var greeting = "Hello, " + personName + "!";
    return greeting;
}

var result = add(2, 3) + " " + greet("World");
`

func evalResult(t *testing.T, js string) string {
	vm := otto.New()
	_, err := vm.Run(js)
	require.NoError(t, err)
	v, err := vm.Get("result")
	require.NoError(t, err)
	return v.String()
}

func TestInProcessBackendsPreserveBehavior(t *testing.T) {
	want := evalResult(t, sample)
	require.Equal(t, "5 Hello, World!", want)

	for name, b := range map[string]Backend{
		"slimit":  NewSlimit(),
		"jsmin":   NewJsmin(),
		"esbuild": &Esbuild{Target: api.ES5},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := b.MinifyString(context.Background(), sample)
			require.NoError(t, err)
			require.NoError(t, Validate(out))
			assert.Less(t, len(out), len(sample))
			assert.NotContains(t, out, "adds two numbers")
			assert.Equal(t, want, evalResult(t, out))
		})
	}
}

func TestSlimitMangles(t *testing.T) {
	out, err := NewSlimit().MinifyString(context.Background(), sample)
	require.NoError(t, err)
	assert.NotContains(t, out, "firstNumber")
}

func TestJsminKeepsNames(t *testing.T) {
	out, err := NewJsmin().MinifyString(context.Background(), sample)
	require.NoError(t, err)
	assert.Contains(t, out, "firstNumber")
}

func TestMinifyFileReadsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sample.js")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o644))

	out, err := NewJsmin().MinifyFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "5 Hello, World!", evalResult(t, out))

	_, err = NewSlimit().MinifyFile(context.Background(), filepath.Join(t.TempDir(), "missing.js"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sample.js")
	outfile := filepath.Join(dir, "sample.min.js")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o644))

	require.NoError(t, WriteFile(context.Background(), &Esbuild{Target: api.ES5}, file, outfile))
	b, err := os.ReadFile(outfile)
	require.NoError(t, err)
	assert.Equal(t, "5 Hello, World!", evalResult(t, string(b)))
}

func TestEsbuildReportsSyntaxErrors(t *testing.T) {
	_, err := (&Esbuild{}).MinifyString(context.Background(), "function (")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "esbuild")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("var a = 1;"))
	assert.Error(t, Validate("var = ;"))
}

type stubBackend struct{ out string }

func (s stubBackend) MinifyString(context.Context, string) (string, error) { return s.out, nil }
func (s stubBackend) MinifyFile(context.Context, string) (string, error)   { return s.out, nil }

func TestVerifiedRejectsBrokenOutput(t *testing.T) {
	v := &Verified{Backend: stubBackend{out: "function ("}}
	_, err := v.MinifyString(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidOutput)
	_, err = v.MinifyFile(context.Background(), "x.js")
	assert.ErrorIs(t, err, ErrInvalidOutput)

	v = &Verified{Backend: stubBackend{out: "var a=1;"}}
	out, err := v.MinifyString(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "var a=1;", out)
}

func TestFuncAdaptsBackend(t *testing.T) {
	m := minify.New()
	m.AddFunc("application/javascript", Func(stubBackend{out: "min"}))
	out, err := m.String("application/javascript", "var a = 1;")
	require.NoError(t, err)
	assert.Equal(t, "min", out)
}

func TestNew(t *testing.T) {
	for name, want := range map[string]any{
		"slimit":                     &Slimit{},
		"Jsmin":                      &Jsmin{},
		"esbuild":                    &Esbuild{},
		"jsrender.minifier.Uglifyjs": &Uglifyjs{},
	} {
		b, err := New(name, nil, nil)
		require.NoError(t, err, name)
		assert.IsType(t, want, b, name)
	}

	b, err := New("yuicompressor", map[string]string{"jar": "/opt/yui.jar", "java": "/usr/bin/java"}, nil)
	require.NoError(t, err)
	require.IsType(t, &YuiCompressor{}, b)
	assert.Equal(t, "/opt/yui.jar", b.(*YuiCompressor).Jar)

	_, err = New("yuicompressor", nil, nil)
	assert.ErrorIs(t, err, ErrMissingJar)

	b, err = New("esbuild", map[string]string{"target": "ES5"}, nil)
	require.NoError(t, err)
	assert.Equal(t, api.ES5, b.(*Esbuild).Target)
	_, err = New("esbuild", map[string]string{"target": "es1"}, nil)
	assert.Error(t, err)

	_, err = New("closure", nil, nil)
	assert.Error(t, err)

	b, err = New("uglifyjs", map[string]string{"binary": "/usr/local/bin/uglifyjs", "args": "--compress --mangle", "verify": "yes"}, nil)
	require.NoError(t, err)
	require.IsType(t, &Verified{}, b)
	u := b.(*Verified).Backend.(*Uglifyjs)
	assert.Equal(t, "/usr/local/bin/uglifyjs", u.Binary)
	assert.Equal(t, []string{"--compress", "--mangle"}, u.Args)

	_, err = New("jsmin", map[string]string{"verify": "sometimes"}, nil)
	assert.Error(t, err)
}

// writeScript creates an executable shell script standing in for an external
// minifier.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

// echoes the last argument if it is a file, stdin otherwise
const catScript = `last=""
for a in "$@"; do last="$a"; done
printf 'min:'
if [ -f "$last" ]; then cat "$last"; else cat; fi
`

func TestUglifyjs(t *testing.T) {
	u := &Uglifyjs{Binary: writeScript(t, catScript)}

	out, err := u.MinifyString(context.Background(), "var a = 1;")
	require.NoError(t, err)
	assert.Equal(t, "min:var a = 1;", out)

	file := filepath.Join(t.TempDir(), "a.js")
	require.NoError(t, os.WriteFile(file, []byte("var b = 2;"), 0o644))
	out, err = u.MinifyFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "min:var b = 2;", out)
}

func TestPackageFunctionsUseUglifyjs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uglifyjs"), []byte("#!/bin/sh\n"+catScript), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	out, err := MinifyString(context.Background(), "var a = 1;")
	require.NoError(t, err)
	assert.Equal(t, "min:var a = 1;", out)

	file := filepath.Join(t.TempDir(), "a.js")
	require.NoError(t, os.WriteFile(file, []byte("var b = 2;"), 0o644))
	out, err = MinifyFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "min:var b = 2;", out)
}

func TestUglifyjsFailure(t *testing.T) {
	u := &Uglifyjs{Binary: writeScript(t, "echo 'Parse error at 0:1' >&2\nexit 3\n")}
	_, err := u.MinifyString(context.Background(), "function (")

	var perr *ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.ExitCode)
	assert.Contains(t, perr.Stderr, "Parse error")
	assert.True(t, strings.HasPrefix(perr.Command, u.Binary))
	assert.Contains(t, perr.Error(), "exit status 3")
}

func TestUglifyjsWarningsDoNotFail(t *testing.T) {
	u := &Uglifyjs{Binary: writeScript(t, "echo 'WARN: dropping unused variable' >&2\n"+catScript)}
	out, err := u.MinifyString(context.Background(), "var c;")
	require.NoError(t, err)
	assert.Equal(t, "min:var c;", out)
}

func TestMissingExecutable(t *testing.T) {
	u := &Uglifyjs{Binary: filepath.Join(t.TempDir(), "nope")}
	_, err := u.MinifyString(context.Background(), "var a;")
	require.Error(t, err)
	var perr *ProcessError
	assert.False(t, errors.As(err, &perr))
}

func TestYuiCompressor(t *testing.T) {
	y := &YuiCompressor{Jar: "yui.jar", Java: writeScript(t, catScript)}
	out, err := y.MinifyString(context.Background(), "var a = 1;")
	require.NoError(t, err)
	assert.Equal(t, "min:var a = 1;", out)

	file := filepath.Join(t.TempDir(), "a.js")
	require.NoError(t, os.WriteFile(file, []byte("var b;"), 0o644))
	out, err = y.MinifyFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, "min:var b;", out)
}

func TestYuiCompressorEmptyInput(t *testing.T) {
	y := &YuiCompressor{Jar: "yui.jar", Java: filepath.Join(t.TempDir(), "no-java")}
	out, err := y.MinifyString(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", out)

	_, err = (&YuiCompressor{}).MinifyString(context.Background(), "var a;")
	assert.ErrorIs(t, err, ErrMissingJar)
}
