package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
)

const sample = `
engine: wazero-compiler
module: modules/wordsdk.wasm
verbose: 2
production_mode: true
fonts:
  system: true
  dirs: [fonts]
  files: [/usr/share/fonts/Go.ttf]
license:
  path: wordsdk.lic
  secret: s3cret
wazero:
  memory_limit_pages: 512
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, EngineWazeroCompiler, cfg.Engine)
	assert.Equal(t, "modules/wordsdk.wasm", cfg.Module)
	assert.Equal(t, 2, cfg.Verbose)
	assert.True(t, cfg.ProductionMode)
	assert.True(t, cfg.Fonts.System)
	assert.Equal(t, []string{"fonts"}, cfg.Fonts.Dirs)
	require.NotNil(t, cfg.License)
	assert.Equal(t, "s3cret", cfg.License.Secret)
	assert.Equal(t, uint32(512), cfg.Wazero.MemoryLimitPages)
	assert.NoError(t, cfg.Validate())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultEngine, cfg.Engine)

	cfg, err = Parse([]byte("module: x.wasm\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultEngine, cfg.Engine)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "module: x.wasm\nthreads: 4\n"},
		{"unknown engine", "engine: v8\n"},
		{"wrong type", "verbose: loud\n"},
		{"verbose out of range", "verbose: 9\n"},
		{"license without path", "license:\n  secret: s\n"},
		{"unknown wasmer compiler", "wasmer:\n  compiler: tcc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %v", err)
			assert.NotEmpty(t, schemaErr.Problems)
		})
	}
}

func TestCheckSchema(t *testing.T) {
	require.NoError(t, checkSchema([]byte(sample)))

	err := checkSchema([]byte("verbose: 9\nengine: v8\n"))
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr), "got %v", err)
	assert.Len(t, schemaErr.Problems, 2)
	assert.True(t, contains(schemaErr.Problems, "/verbose"), "%v", schemaErr.Problems)
	assert.True(t, contains(schemaErr.Problems, "/engine"), "%v", schemaErr.Problems)
}

func contains(problems []string, loc string) bool {
	for _, p := range problems {
		if strings.HasPrefix(p, loc+": ") {
			return true
		}
	}
	return false
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("module: [unterminated\n"))
	require.Error(t, err)
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wordsdk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "modules", "wordsdk.wasm"), cfg.Module)
	assert.Equal(t, []string{filepath.Join(dir, "fonts")}, cfg.Fonts.Dirs)
	assert.Equal(t, []string{"/usr/share/fonts/Go.ttf"}, cfg.Fonts.Files)
	assert.Equal(t, filepath.Join(dir, "wordsdk.lic"), cfg.License.Path)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvEngine:        "wasmer",
		EnvModule:        "/opt/wordsdk/wordsdk.wasm",
		EnvLicense:       "/etc/wordsdk.lic",
		EnvLicenseSecret: "from-env",
		EnvVerbose:       "1",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "wasmer", cfg.Engine)
	assert.Equal(t, "/opt/wordsdk/wordsdk.wasm", cfg.Module)
	require.NotNil(t, cfg.License)
	assert.Equal(t, "/etc/wordsdk.lic", cfg.License.Path)
	assert.Equal(t, "from-env", cfg.License.Secret)
	assert.Equal(t, 1, cfg.Verbose)
}

func TestApplyEnv_Unset(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, cfg.ApplyEnv(func(string) (string, bool) { return "", false }))

	assert.Equal(t, EngineWazeroCompiler, cfg.Engine)
	assert.Equal(t, "s3cret", cfg.License.Secret)
}

func TestApplyEnv_BadVerbose(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == EnvVerbose {
			return "lots", true
		}
		return "", false
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"minimal", Config{Module: "m.wasm"}, false},
		{"missing module", Config{Engine: EngineWazero}, true},
		{"unknown engine", Config{Module: "m.wasm", Engine: "v8"}, true},
		{"verbose too high", Config{Module: "m.wasm", Verbose: 4}, true},
		{"license without path", Config{Module: "m.wasm", License: &License{Secret: "x"}}, true},
		{"wasmer compiler", Config{Module: "m.wasm", Wasmer: Wasmer{Compiler: "llvm"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineName(t *testing.T) {
	assert.Equal(t, DefaultEngine, (&Config{}).EngineName())
	assert.Equal(t, EngineWasmer, (&Config{Engine: EngineWasmer}).EngineName())
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "wordsdk configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"engine", "module", "verbose", "production_mode", "fonts", "license", "wazero", "wasmer"} {
		assert.Contains(t, props, key)
	}

	engine, ok := props["engine"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"wazero", "wazero-compiler", "wasmer"}, engine["enum"])
}
