// Package license holds the process-wide license handed to the conversion
// module when a worker starts.
package license

import (
	"errors"
	"os"
	"slices"
	"sync"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
)

// ErrEmptyLicense is returned when registering a license without data.
var ErrEmptyLicense = errors.New("wordsdk: empty license")

// License is the registered license material.
type License struct {
	Data   []byte
	Secret string
	Source string // file path, or empty for in-memory licenses
}

// Registry stores at most one license.
type Registry struct {
	mu      sync.RWMutex
	current *License
}

var defaultRegistry = &Registry{}

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register replaces the current license.
func (r *Registry) Register(data []byte, secret, source string) error {
	if len(data) == 0 {
		return ErrEmptyLicense
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = &License{Data: slices.Clone(data), Secret: secret, Source: source}
	return nil
}

// RegisterFile reads the license at path and registers it.
func (r *Registry) RegisterFile(path, secret string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &sdkerrors.IOError{Op: "read", Path: path, Err: err}
	}
	return r.Register(data, secret, path)
}

// Current returns a copy of the registered license.
func (r *Registry) Current() (License, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return License{}, false
	}
	l := *r.current
	l.Data = slices.Clone(l.Data)
	return l, true
}

// Clear removes the registered license.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
}
