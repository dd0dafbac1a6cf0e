package tpl

import (
	"bytes"
	"context"
	"text/template"
)

// TextEngine renders text/template files. Templates see the path being
// rendered as .Path.
type TextEngine struct{}

func (TextEngine) Render(_ context.Context, name, src string, funcs map[string]any) (string, error) {
	t, err := template.New(name).Funcs(funcs).Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Path string }{name}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
