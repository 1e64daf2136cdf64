package wordsdk

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/wordsdk/wordsdk-go/fonts"
	"github.com/wordsdk/wordsdk-go/license"
)

// validate is shared; validator caches struct metadata.
var validate = validator.New()

// Options configures a Worker. The Worker copies Options at creation, so
// later changes have no effect on it.
type Options struct {
	// Verbose controls how much of the module's own logging reaches Logger:
	// 0 errors and warnings, 1 adds info, 2 and 3 add debug.
	Verbose int `json:"verbose" validate:"min=0,max=3"`

	// Logger receives worker and module logs. Nil means slog.Default().
	Logger *slog.Logger `json:"-"`

	// ProductionMode is passed to the module, which disables its diagnostic
	// output and evaluation watermarks when set.
	ProductionMode bool `json:"production_mode"`

	// Fonts and License override the process-wide registries.
	Fonts   *fonts.Registry   `json:"-"`
	License *license.Registry `json:"-"`
}

// Validate reports whether o is usable.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("wordsdk: invalid options: %w", err)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Fonts == nil {
		o.Fonts = fonts.Default()
	}
	if o.License == nil {
		o.License = license.Default()
	}
	return o
}
