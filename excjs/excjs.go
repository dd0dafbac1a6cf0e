// Package excjs converts Go errors into a JSON structure that javascript
// clients can turn back into a readable stack trace.
package excjs

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Frame is one stack entry: file, line, function and source line. It
// encodes as a JSON array.
type Frame [4]any

// Exception is the JSON form of an error.
type Exception struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Trace   []Frame `json:"trace,omitempty"`
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FromError converts err. If err (or anything it wraps) carries a pkg/errors
// stack trace, the trace is included with the most recent call last; leading
// frames whose file contains one of the untrace strings are dropped.
func FromError(err error, untrace ...string) Exception {
	exc := Exception{
		Type:    typeName(errors.Cause(err)),
		Message: err.Error(),
	}
	var st stackTracer
	if !errors.As(err, &st) {
		return exc
	}
	frames := st.StackTrace()
	sources := make(map[string][]string)
	trace := make([]Frame, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		pc := uintptr(frames[i]) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line := fn.FileLine(pc)
		trace = append(trace, Frame{file, line, fn.Name(), sourceLine(sources, file, line)})
	}
	for len(trace) > 0 && skip(trace[0][0].(string), untrace) {
		trace = trace[1:]
	}
	exc.Trace = trace
	return exc
}

// sourceLine returns the trimmed text of line in file, or "" when the source
// is not available. Files are read once per call to FromError.
func sourceLine(sources map[string][]string, file string, line int) string {
	lines, ok := sources[file]
	if !ok {
		if b, err := os.ReadFile(file); err == nil {
			lines = strings.Split(string(b), "\n")
		}
		sources[file] = lines
	}
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

func skip(file string, untrace []string) bool {
	for _, u := range untrace {
		if u != "" && strings.Contains(file, u) {
			return true
		}
	}
	return false
}

func typeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// JSON returns FromError(err, untrace...) encoded as JSON.
func JSON(err error, untrace ...string) ([]byte, error) {
	return json.Marshal(FromError(err, untrace...))
}

// FormatterModule is the AMD module name FormatterJS defines.
const FormatterModule = "lib/excjs/excformat"

// FormatterJS returns an AMD module exporting excformat(exc), which renders
// an Exception the way Go prints a panic: the message, then the frames.
func FormatterJS() string {
	return strings.TrimSpace(`
define('` + FormatterModule + `', function() {
    return function excformat(exc) {
        if (typeof exc.trace === 'undefined' || !exc.trace) {
            return exc.type + ': ' + exc.message;
        }
        var msg = exc.type + ': ' + exc.message + '\n\n';
        msg += 'Stack trace (most recent call last):\n';
        for (var j = 0; j < exc.trace.length; j++) {
            var frame = exc.trace[j];
            msg += '  ' + frame[2] + '\n';
            msg += '    ' + frame[0] + ':' + frame[1] + '\n';
        }
        return msg;
    }
});
`)
}

// ConsoleJS returns a script that logs err to the browser console.
func ConsoleJS(err error, untrace ...string) string {
	exc := FromError(err, untrace...)
	b, jerr := json.Marshal(exc)
	if jerr != nil {
		b = []byte(`{"type":"error","message":"unencodable error"}`)
	}
	return `(function(exc) {
    var msg = exc.type + ': ' + exc.message;
    if (exc.trace) {
        for (var j = 0; j < exc.trace.length; j++) {
            msg += '\n    ' + exc.trace[j][2] + ' (' + exc.trace[j][0] + ':' + exc.trace[j][1] + ')';
        }
    }
    if (typeof console !== 'undefined') { console.error(msg); }
})(` + string(b) + `);
`
}
