// Package minifier reduces the size of javascript code without altering its
// semantics. Callers who do not care how the code is minified can use
// MinifyString and MinifyFile.
//
// Available backends:
//
//   - Slimit: good minification with identifier mangling, in-process.
//   - Jsmin: very fast, strips whitespace and comments only, in-process.
//   - Uglifyjs: moderate speed, good minification, keeps license comments.
//     Depends on node.js and the uglifyjs executable.
//   - YuiCompressor: fast, moderate compression, keeps license comments.
//     Depends on java and the yuicompressor jar.
//   - Esbuild: fast and good minification, keeps legal comments, in-process.
package minifier

import (
	"context"
	"fmt"
	"os"
)

// Backend is implemented by every minification backend.
type Backend interface {
	// MinifyString minifies the given javascript source.
	MinifyString(ctx context.Context, js string) (string, error)
	// MinifyFile minifies the contents of the given file.
	MinifyFile(ctx context.Context, file string) (string, error)
}

// MinifyString minifies js using uglifyjs, the only configuration-free
// backend that preserves licensing information.
func MinifyString(ctx context.Context, js string) (string, error) {
	return (&Uglifyjs{}).MinifyString(ctx, js)
}

// MinifyFile does the same as MinifyString, but operates on a file.
func MinifyFile(ctx context.Context, file string) (string, error) {
	return (&Uglifyjs{}).MinifyFile(ctx, file)
}

// WriteFile minifies file with b and writes the result to outfile.
func WriteFile(ctx context.Context, b Backend, file, outfile string) error {
	out, err := b.MinifyFile(ctx, file)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outfile, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outfile, err)
	}
	return nil
}

func readFile(file string) (string, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
