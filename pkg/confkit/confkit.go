// Package confkit holds the small helpers shared by every config loader:
// path resolution against the main config file, optional sub-files and .env loading.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeromicro/go-zero/core/conf"
)

// ResolvePath expands environment variables in file and anchors relative
// paths at base.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// LoadFile reads a go-zero config file into a new T, optionally expanding ${VAR}.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var opts []conf.Option
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	var cfg T
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// Section points at a separately loaded config file.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File relative to base with loader. An empty File is a no-op.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	path := ResolvePath(base, s.File)
	v, err := loader(path)
	if err != nil {
		return err
	}
	s.File, s.Value = path, v
	return nil
}

// Loaded reports whether Hydrate produced a value.
func (s *Section[T]) Loaded() bool {
	return s != nil && s.Value != nil
}
