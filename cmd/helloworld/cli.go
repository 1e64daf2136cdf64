package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wordsdk/wordsdk-go/bootstrap"
	"github.com/wordsdk/wordsdk-go/config"
	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
)

const (
	exitOK      = 0
	exitConvert = 1
	exitUsage   = 2
)

var (
	okStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#90EE90"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// lookupEnv is replaced in tests.
var lookupEnv = os.LookupEnv

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type cliOptions struct {
	configPath  string
	engine      string
	module      string
	in          string
	out         string
	fonts       stringList
	fontDirs    stringList
	systemFonts bool
	license     string
	secret      string
	verbose     int
	production  bool
	schema      bool

	set map[string]bool
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	opts, usage, err := parseArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		writef(stdout, "%s", usage)
		return exitOK
	}
	if err != nil {
		writef(stderr, "helloworld: %v\n\n%s", err, usage)
		return exitUsage
	}

	if opts.schema {
		data, err := config.Schema()
		if err != nil {
			writef(stderr, "helloworld: %v\n", err)
			return exitConvert
		}
		writef(stdout, "%s\n", data)
		return exitOK
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		writef(stderr, "helloworld: %v\n", err)
		return exitUsage
	}

	logger, sync := newLogger(stderr, cfg.ProductionMode, cfg.Verbose)
	defer sync()

	if err := convert(ctx, cfg, opts, logger); err != nil {
		msg := fmt.Sprintf("helloworld: %v", err)
		if isTerminal(stderr) {
			msg = errorStyle.Render(msg)
		}
		writef(stderr, "%s\n", msg)
		logger.DebugContext(ctx, "conversion failed", "kind", sdkerrors.Kind(err), "error", err)
		return exitConvert
	}

	if isTerminal(stdout) {
		writef(stdout, "%s %s (using %s)\n", okStyle.Render("Created PDF"), pathStyle.Render(opts.out), cfg.EngineName())
	} else {
		writef(stdout, "Created PDF %s (using %s)\n", opts.out, cfg.EngineName())
	}
	return exitOK
}

func parseArgs(args []string) (cliOptions, string, error) {
	opts := cliOptions{set: make(map[string]bool)}
	fs := flag.NewFlagSet("helloworld", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.engine, "engine", "", "engine: "+strings.Join(bootstrap.Engines, ", "))
	fs.StringVar(&opts.module, "module", "", "path to the conversion module")
	fs.StringVar(&opts.in, "in", "HelloWorld.docx", "input document")
	fs.StringVar(&opts.out, "out", "HelloWorld.pdf", "output PDF")
	fs.Var(&opts.fonts, "font", "font file to register (repeatable)")
	fs.Var(&opts.fontDirs, "font-dir", "directory of fonts to register (repeatable)")
	fs.BoolVar(&opts.systemFonts, "system-fonts", false, "register the fonts installed on this machine")
	fs.StringVar(&opts.license, "license", "", "license file")
	fs.StringVar(&opts.secret, "secret", "", "license secret")
	fs.IntVar(&opts.verbose, "verbose", 0, "module log verbosity (0-3)")
	fs.BoolVar(&opts.production, "production", false, "run the module in production mode")
	fs.BoolVar(&opts.schema, "schema", false, "print the configuration JSON Schema and exit")

	usage := cliUsage(fs)
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, usage, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, usage, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, usage, nil
}

func cliUsage(fs *flag.FlagSet) string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	b.WriteString("  helloworld [flags]\n\n")
	b.WriteString("Converts -in to -out. Settings are read from -config, then WORDSDK_* environment\n")
	b.WriteString("variables, then flags.\n\n")
	b.WriteString("Flags:\n")
	fs.VisitAll(func(f *flag.Flag) {
		writef(&b, "  -%s\t%s\n", f.Name, f.Usage)
	})
	return b.String()
}

// loadConfig layers the config file, the environment and explicit flags.
func loadConfig(opts cliOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return nil, err
	}

	if opts.set["engine"] {
		cfg.Engine = opts.engine
	}
	if opts.set["module"] {
		cfg.Module = opts.module
	}
	if opts.set["verbose"] {
		cfg.Verbose = opts.verbose
	}
	if opts.set["production"] {
		cfg.ProductionMode = opts.production
	}
	if opts.systemFonts {
		cfg.Fonts.System = true
	}
	cfg.Fonts.Files = append(cfg.Fonts.Files, opts.fonts...)
	cfg.Fonts.Dirs = append(cfg.Fonts.Dirs, opts.fontDirs...)
	if opts.set["license"] {
		if cfg.License == nil {
			// ApplyEnv only sets the secret on a configured license.
			cfg.License = &config.License{}
			if secret, ok := lookupEnv(config.EnvLicenseSecret); ok {
				cfg.License.Secret = secret
			}
		}
		cfg.License.Path = opts.license
	}
	if opts.set["secret"] && cfg.License != nil {
		cfg.License.Secret = opts.secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func convert(ctx context.Context, cfg *config.Config, opts cliOptions, logger *slog.Logger) error {
	env, err := bootstrap.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close(ctx)

	w, err := env.NewWorker(ctx)
	if err != nil {
		return err
	}
	defer w.Close(ctx)

	if err := w.ImportFile(ctx, opts.in); err != nil {
		return err
	}
	return w.ExportPDFToFile(ctx, opts.out)
}

// newLogger builds a zap core on w and exposes it through slog. Production
// mode logs JSON at info; otherwise console output, at debug from verbosity 2.
func newLogger(w io.Writer, production bool, verbose int) (*slog.Logger, func()) {
	level := zapcore.InfoLevel
	if verbose >= 2 {
		level = zapcore.DebugLevel
	}

	var enc zapcore.Encoder
	if production {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))

	logger := slog.New(zapslog.NewHandler(core, zapslog.WithName("helloworld")))
	return logger, func() { _ = core.Sync() }
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
