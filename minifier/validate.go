package minifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/robertkrimen/otto/parser"
)

// ErrInvalidOutput is returned by a verifying backend when the minified code
// does not parse.
var ErrInvalidOutput = errors.New("minified javascript does not parse")

// Validate reports whether js is syntactically valid javascript.
func Validate(js string) error {
	if _, err := parser.ParseFile(nil, "", js, 0); err != nil {
		return err
	}
	return nil
}

// Verified wraps a backend and rejects output that no longer parses.
type Verified struct {
	Backend Backend
}

func (v *Verified) MinifyString(ctx context.Context, js string) (string, error) {
	out, err := v.Backend.MinifyString(ctx, js)
	if err != nil {
		return "", err
	}
	return v.check(out)
}

func (v *Verified) MinifyFile(ctx context.Context, file string) (string, error) {
	out, err := v.Backend.MinifyFile(ctx, file)
	if err != nil {
		return "", err
	}
	return v.check(out)
}

func (v *Verified) check(out string) (string, error) {
	if err := Validate(out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return out, nil
}
