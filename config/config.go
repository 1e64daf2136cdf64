// Package config loads the settings used to bootstrap a conversion
// environment: which engine runs the module, where the module lives, and
// which fonts and license workers see.
//
// Settings are layered: a YAML file, then WORDSDK_* environment variables,
// then whatever the caller sets explicitly.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
)

// Engine names.
const (
	EngineWazero         = "wazero"
	EngineWazeroCompiler = "wazero-compiler"
	EngineWasmer         = "wasmer"

	DefaultEngine = EngineWazero
)

// Environment variables read by ApplyEnv.
const (
	EnvEngine        = "WORDSDK_ENGINE"
	EnvModule        = "WORDSDK_MODULE"
	EnvLicense       = "WORDSDK_LICENSE"
	EnvLicenseSecret = "WORDSDK_LICENSE_SECRET"
	EnvVerbose       = "WORDSDK_VERBOSE"
)

var validate = validator.New()

// Config is the bootstrap configuration.
type Config struct {
	Engine string `yaml:"engine,omitempty" validate:"omitempty,oneof=wazero wazero-compiler wasmer" jsonschema:"enum=wazero,enum=wazero-compiler,enum=wasmer" jsonschema_description:"Engine that runs the conversion module"`
	Module string `yaml:"module,omitempty" validate:"required" jsonschema_description:"Path to the conversion module (.wasm)"`

	Verbose        int  `yaml:"verbose,omitempty" validate:"min=0,max=3" jsonschema:"minimum=0,maximum=3" jsonschema_description:"Module log verbosity"`
	ProductionMode bool `yaml:"production_mode,omitempty" jsonschema_description:"Disable evaluation output in the module"`

	Fonts   Fonts    `yaml:"fonts,omitempty"`
	License *License `yaml:"license,omitempty"`

	Wazero Wazero `yaml:"wazero,omitempty"`
	Wasmer Wasmer `yaml:"wasmer,omitempty"`
}

// Fonts selects the fonts registered before workers start.
type Fonts struct {
	System bool     `yaml:"system,omitempty" jsonschema_description:"Register the fonts installed on this machine"`
	Dirs   []string `yaml:"dirs,omitempty" jsonschema_description:"Directories scanned for .ttf and .otf files"`
	Files  []string `yaml:"files,omitempty" jsonschema_description:"Individual font files"`
}

// License points at the license file.
type License struct {
	Path   string `yaml:"path" validate:"required"`
	Secret string `yaml:"secret,omitempty"`
}

// Wazero tunes the wazero engines.
type Wazero struct {
	MemoryLimitPages uint32 `yaml:"memory_limit_pages,omitempty" validate:"max=65536" jsonschema:"maximum=65536" jsonschema_description:"Guest memory cap in 64KiB pages"`
}

// Wasmer tunes the wasmer engine.
type Wasmer struct {
	Compiler string `yaml:"compiler,omitempty" validate:"omitempty,oneof=cranelift llvm singlepass" jsonschema:"enum=cranelift,enum=llvm,enum=singlepass"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Engine: DefaultEngine}
}

// Load reads and parses the YAML file at path. Relative paths inside the
// file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &sdkerrors.IOError{Op: "read", Path: path, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes YAML. The document is checked against Schema first, so
// unknown keys and wrongly typed values are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if cfg.Engine == "" {
		cfg.Engine = DefaultEngine
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEngine); ok && v != "" {
		c.Engine = v
	}
	if v, ok := lookup(EnvModule); ok && v != "" {
		c.Module = v
	}
	if v, ok := lookup(EnvLicense); ok && v != "" {
		if c.License == nil {
			c.License = &License{}
		}
		c.License.Path = v
	}
	if v, ok := lookup(EnvLicenseSecret); ok && c.License != nil {
		c.License.Secret = v
	}
	if v, ok := lookup(EnvVerbose); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvVerbose, err)
		}
		c.Verbose = n
	}
	return nil
}

// Validate reports whether c can be used to bootstrap an environment.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// EngineName returns the configured engine, or DefaultEngine.
func (c *Config) EngineName() string {
	if c.Engine == "" {
		return DefaultEngine
	}
	return c.Engine
}

func (c *Config) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Module = abs(c.Module)
	for i, d := range c.Fonts.Dirs {
		c.Fonts.Dirs[i] = abs(d)
	}
	for i, f := range c.Fonts.Files {
		c.Fonts.Files[i] = abs(f)
	}
	if c.License != nil {
		c.License.Path = abs(c.License.Path)
	}
}
