package minifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Esbuild minifies whitespace, identifiers and syntax using esbuild's
// transform API. Legal comments are kept inline.
type Esbuild struct {
	// Target defaults to esnext.
	Target api.Target
}

func (e *Esbuild) MinifyString(_ context.Context, js string) (string, error) {
	result := api.Transform(js, api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            e.Target,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsInline,
	})
	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		if msg.Location != nil {
			return "", fmt.Errorf("esbuild: line %d: %s", msg.Location.Line, msg.Text)
		}
		return "", fmt.Errorf("esbuild: %s", msg.Text)
	}
	return string(result.Code), nil
}

func (e *Esbuild) MinifyFile(ctx context.Context, file string) (string, error) {
	js, err := readFile(file)
	if err != nil {
		return "", err
	}
	return e.MinifyString(ctx, js)
}

var esbuildTargets = map[string]api.Target{
	"":       api.DefaultTarget,
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

func esbuildTarget(name string) (api.Target, error) {
	t, ok := esbuildTargets[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("esbuild: unknown target %q", name)
	}
	return t, nil
}
