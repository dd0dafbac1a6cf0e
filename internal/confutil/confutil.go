// Package confutil parses the flat string maps modules are configured with.
package confutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ParseBool accepts the usual boolean spellings plus yes/no and on/off.
// An empty value is false.
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return false, nil
	case "yes", "on", "y":
		return true, nil
	case "no", "off", "n":
		return false, nil
	}
	b, err := cast.ToBoolE(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", value)
	}
	return b, nil
}

// Sub collects all keys below prefix ("minifier" collects "minifier.jar" as
// "jar").
func Sub(conf map[string]string, prefix string) map[string]string {
	out := make(map[string]string)
	p := prefix + "."
	for k, v := range conf {
		if strings.HasPrefix(k, p) {
			out[strings.TrimPrefix(k, p)] = v
		}
	}
	return out
}

// Flatten converts a nested map as produced by config loaders into the flat
// dotted form. Values are stringified with cast.
func Flatten(in map[string]any) map[string]string {
	out := make(map[string]string)
	flatten("", in, out)
	return out
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = cast.ToString(v)
	}
}

// Fingerprint is a stable textual form of conf, used to detect config changes.
func Fingerprint(conf map[string]string) string {
	keys := make([]string, 0, len(conf))
	for k := range conf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(conf[k])
		b.WriteByte('\n')
	}
	return b.String()
}
