// Package bootstrap turns a config.Config into a ready conversion
// environment: fonts and license registered, module compiled on the chosen
// engine, worker options filled in.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	wordsdk "github.com/wordsdk/wordsdk-go"
	"github.com/wordsdk/wordsdk-go/config"
	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/engine"
	"github.com/wordsdk/wordsdk-go/engine/wasmer"
	"github.com/wordsdk/wordsdk-go/engine/wazero"
	"github.com/wordsdk/wordsdk-go/fonts"
	"github.com/wordsdk/wordsdk-go/license"
)

// Engines lists the engine names NewProvider understands.
var Engines = []string{config.EngineWazero, config.EngineWazeroCompiler, config.EngineWasmer}

// NewProvider compiles module on the named engine. An empty kind selects
// config.DefaultEngine.
func NewProvider(ctx context.Context, kind string, module []byte) (engine.Provider, error) {
	return newProvider(ctx, &config.Config{Engine: kind}, module)
}

func newProvider(ctx context.Context, cfg *config.Config, module []byte) (engine.Provider, error) {
	switch kind := cfg.EngineName(); kind {
	case config.EngineWazero, config.EngineWazeroCompiler:
		var opts []wazero.Option
		if kind == config.EngineWazeroCompiler {
			opts = append(opts, wazero.WithCompiler())
		}
		if pages := cfg.Wazero.MemoryLimitPages; pages > 0 {
			opts = append(opts, wazero.WithMemoryLimitPages(pages))
		}
		p, err := wazero.NewProvider(ctx, module, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.EngineWasmer:
		var opts []wasmer.Option
		if c := cfg.Wasmer.Compiler; c != "" {
			opts = append(opts, wasmer.WithCompiler(wasmer.Compiler(c)))
		}
		p, err := wasmer.NewProvider(module, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, &sdkerrors.EngineUnavailableError{Engine: kind, Err: errors.New("unknown engine")}
	}
}

// Environment is what Setup produces.
type Environment struct {
	Provider engine.Provider
	Options  wordsdk.Options
	Fonts    int // fonts registered by Setup
}

// NewWorker creates a worker on the environment's provider.
func (e *Environment) NewWorker(ctx context.Context) (*wordsdk.Worker, error) {
	return wordsdk.CreateWorker(ctx, e.Provider, e.Options)
}

// Close releases the provider.
func (e *Environment) Close(ctx context.Context) error {
	return e.Provider.Close(ctx)
}

// Setup applies cfg to the process-wide font and license registries, reads
// and compiles the module, and returns the resulting environment.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Environment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n, err := registerFonts(cfg.Fonts)
	if err != nil {
		return nil, err
	}
	if cfg.License != nil {
		if err := license.Default().RegisterFile(cfg.License.Path, cfg.License.Secret); err != nil {
			return nil, err
		}
	}

	module, err := os.ReadFile(cfg.Module)
	if err != nil {
		return nil, &sdkerrors.IOError{Op: "read", Path: cfg.Module, Err: err}
	}

	provider, err := newProvider(ctx, cfg, module)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	logger.InfoContext(ctx, "environment ready",
		"engine", provider.Name(),
		"module", cfg.Module,
		"fonts", n,
		"license", cfg.License != nil)

	return &Environment{
		Provider: provider,
		Options: wordsdk.Options{
			Verbose:        cfg.Verbose,
			Logger:         logger,
			ProductionMode: cfg.ProductionMode,
		},
		Fonts: n,
	}, nil
}

func registerFonts(cfg config.Fonts) (int, error) {
	reg := fonts.Default()
	total := 0
	if cfg.System {
		n, err := reg.LoadSystemFonts()
		if err != nil {
			return total, err
		}
		total += n
	}
	if len(cfg.Dirs) > 0 {
		n, err := reg.LoadSystemFonts(cfg.Dirs...)
		if err != nil {
			return total, err
		}
		total += n
	}
	for _, path := range cfg.Files {
		if _, err := reg.RegisterFile(path); err != nil {
			return total, err
		}
		total++
	}
	return total, nil
}
