package webassets

import "fmt"

// AssetNotFoundError is returned when an asset path resolves to nothing.
type AssetNotFoundError struct {
	Category string
	Path     string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("%s asset not found: %s", e.Category, e.Path)
}
