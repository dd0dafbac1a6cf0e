package webassets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
)

// RenderFunc produces the content of a virtual asset.
type RenderFunc func(ctx context.Context) (string, error)

// VirtualAssets are assets generated by code instead of read from disk.
type VirtualAssets struct {
	mu      sync.RWMutex
	renders map[string]RenderFunc
}

func NewVirtualAssets() *VirtualAssets {
	return &VirtualAssets{renders: make(map[string]RenderFunc)}
}

// Register adds a virtual asset. Registering the same path twice is an error.
func (v *VirtualAssets) Register(path string, fn RenderFunc) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.renders[path]; ok {
		return fmt.Errorf("virtual asset %q already registered", path)
	}
	v.renders[path] = fn
	return nil
}

// Paths returns all registered paths in lexical order.
func (v *VirtualAssets) Paths() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	paths := make([]string, 0, len(v.renders))
	for p := range v.renders {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (v *VirtualAssets) Has(path string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.renders[path]
	return ok
}

func (v *VirtualAssets) Render(ctx context.Context, path string) (string, error) {
	v.mu.RLock()
	fn, ok := v.renders[path]
	v.mu.RUnlock()
	if !ok {
		return "", &AssetNotFoundError{Category: "virtual", Path: path}
	}
	return fn(ctx)
}

// Hash is the hex sha256 of the rendered asset.
func (v *VirtualAssets) Hash(ctx context.Context, path string) (string, error) {
	out, err := v.Render(ctx, path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(out))
	return hex.EncodeToString(sum[:]), nil
}
