package tpl

import (
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// hidden reports whether the base name of p starts with an underscore.
func hidden(p string) bool {
	return strings.HasPrefix(path.Base(p), "_")
}

// inmMatches checks whether If-None-Match contains the weak or strong form of
// etag.
func inmMatches(inm string, etag string) bool {
	if inm == "" {
		return false
	}
	for _, p := range strings.Split(inm, ",") {
		p = strings.TrimSpace(p)
		if p == `W/"`+etag+`"` || p == `"`+etag+`"` {
			return true
		}
	}
	return false
}
