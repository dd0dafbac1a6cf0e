package jsrender

import (
	"fmt"
	"html/template"
	"strings"
)

var jsEscapes = map[rune]string{
	'\\':     `\u005C`,
	'\'':     `\u0027`,
	'"':      `\u0022`,
	'>':      `\u003E`,
	'<':      `\u003C`,
	'&':      `\u0026`,
	'=':      `\u003D`,
	'-':      `\u002D`,
	';':      `\u003B`,
	'\u2028': `\u2028`,
	'\u2029': `\u2029`,
}

// Escape makes value safe to embed in a javascript string literal, inside or
// outside of an HTML script element.
func Escape(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r < 32 {
			fmt.Fprintf(&b, `\u%04X`, r)
			continue
		}
		if esc, ok := jsEscapes[r]; ok {
			b.WriteString(esc)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeFilter is Escape for html templates; the result is not escaped again.
func escapeFilter(value string) template.JSStr {
	return template.JSStr(Escape(value))
}
