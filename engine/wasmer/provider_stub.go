//go:build !cgo || !wasmer

package wasmer

import (
	"context"
	"errors"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/engine"
)

const available = false

var errNotLinked = errors.New("native runtime not linked (build with cgo and -tags wasmer)")

// Provider is not constructible in this build.
type Provider struct{}

var _ engine.Provider = (*Provider)(nil)

// NewProvider always fails with EngineUnavailable in this build.
func NewProvider(_ []byte, opts ...Option) (*Provider, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return nil, &sdkerrors.EngineUnavailableError{Engine: providerName, Err: errNotLinked}
}

func (*Provider) Name() string { return providerName }

func (*Provider) NewInstance(context.Context, engine.HostModule, engine.InstanceConfig) (engine.Instance, error) {
	return nil, &sdkerrors.EngineUnavailableError{Engine: providerName, Err: errNotLinked}
}

func (*Provider) Close(context.Context) error { return nil }
