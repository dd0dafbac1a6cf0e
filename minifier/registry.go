package minifier

import (
	"fmt"
	"strings"

	"github.com/yRedskull/jsrender/internal/confutil"
	"go.uber.org/zap"
)

// New creates the backend registered under name. Names are matched
// case-insensitively on their last dotted segment, so "uglifyjs",
// "Uglifyjs" and "jsrender.minifier.Uglifyjs" are equivalent.
//
// Recognized options:
//
//	uglifyjs       binary, args (space separated)
//	yuicompressor  jar (required), java
//	esbuild        target (es5, es2015 ... es2022, esnext)
//	any            verify (bool): reject output that does not parse
func New(name string, opts map[string]string, log *zap.Logger) (Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	key := strings.ToLower(name)
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}

	var b Backend
	switch key {
	case "slimit":
		b = NewSlimit()
	case "jsmin":
		b = NewJsmin()
	case "esbuild":
		target, err := esbuildTarget(opts["target"])
		if err != nil {
			return nil, err
		}
		b = &Esbuild{Target: target}
	case "uglifyjs", "uglify":
		u := &Uglifyjs{Binary: opts["binary"], Logger: log}
		if args, ok := opts["args"]; ok {
			u.Args = strings.Fields(args)
		}
		b = u
	case "yuicompressor", "yui":
		if opts["jar"] == "" {
			return nil, ErrMissingJar
		}
		b = &YuiCompressor{Jar: opts["jar"], Java: opts["java"], Logger: log}
	default:
		return nil, fmt.Errorf("unknown minifier %q", name)
	}

	verify, err := confutil.ParseBool(opts["verify"])
	if err != nil {
		return nil, fmt.Errorf("minifier option verify: %w", err)
	}
	if verify {
		b = &Verified{Backend: b}
	}
	log.Debug("minifier configured", zap.String("backend", key), zap.Bool("verify", verify))
	return b, nil
}
