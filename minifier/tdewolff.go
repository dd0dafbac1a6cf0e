package minifier

import (
	"context"
	"fmt"

	"github.com/tdewolff/minify/v2"
	minjs "github.com/tdewolff/minify/v2/js"
)

const mimeJS = "application/javascript"

// Slimit mangles local identifiers in addition to removing whitespace and
// comments.
type Slimit struct {
	m *minify.M
}

// NewSlimit returns a ready to use Slimit backend.
func NewSlimit() *Slimit {
	m := minify.New()
	m.Add(mimeJS, &minjs.Minifier{})
	return &Slimit{m: m}
}

func (s *Slimit) MinifyString(_ context.Context, js string) (string, error) {
	return minifyWith(s.m, "slimit", js)
}

func (s *Slimit) MinifyFile(ctx context.Context, file string) (string, error) {
	js, err := readFile(file)
	if err != nil {
		return "", err
	}
	return s.MinifyString(ctx, js)
}

// Jsmin only strips whitespace and comments. Variable names are kept.
type Jsmin struct {
	m *minify.M
}

// NewJsmin returns a ready to use Jsmin backend.
func NewJsmin() *Jsmin {
	m := minify.New()
	m.Add(mimeJS, &minjs.Minifier{KeepVarNames: true})
	return &Jsmin{m: m}
}

func (j *Jsmin) MinifyString(_ context.Context, js string) (string, error) {
	return minifyWith(j.m, "jsmin", js)
}

func (j *Jsmin) MinifyFile(ctx context.Context, file string) (string, error) {
	js, err := readFile(file)
	if err != nil {
		return "", err
	}
	return j.MinifyString(ctx, js)
}

func minifyWith(m *minify.M, name, js string) (string, error) {
	out, err := m.String(mimeJS, js)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
