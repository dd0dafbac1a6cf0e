package minifier

import (
	"context"
	"io"

	"github.com/tdewolff/minify/v2"
)

// Func adapts b for use in a minify.M, e.g. for inline scripts in HTML.
func Func(b Backend) minify.MinifierFunc {
	return func(_ *minify.M, w io.Writer, r io.Reader, _ map[string]string) error {
		src, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		out, err := b.MinifyString(context.Background(), string(src))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
}
