//go:build cgo && wasmer

package wasmer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-go/wasmer"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
	"github.com/wordsdk/wordsdk-go/engine"
	"github.com/wordsdk/wordsdk-go/internal/enginetest"
)

func TestProvider(t *testing.T) {
	require.True(t, Available())
	enginetest.Run(t, func(t *testing.T, module []byte) engine.Provider {
		p, err := NewProvider(module)
		if errors.Is(err, sdkerrors.ErrEngineUnavailable) {
			t.Skipf("wasmer unavailable: %v", err)
		}
		require.NoError(t, err)
		assert.Equal(t, "wasmer", p.Name())
		return p
	})
}

func TestNewProvider_InvalidModule(t *testing.T) {
	_, err := NewProvider([]byte("definitely not wasm"))
	require.Error(t, err)
	if errors.Is(err, sdkerrors.ErrEngineUnavailable) {
		t.Skipf("wasmer unavailable: %v", err)
	}
	assert.True(t, errors.Is(err, sdkerrors.ErrModuleLoad))
}

func TestConversions(t *testing.T) {
	assert.Equal(t, uint64(0xFFFFFFFF), fromScalar(int32(-1)))
	assert.Equal(t, int32(-1), toArg(wasmer.I32, 0xFFFFFFFF))
	assert.Equal(t, []uint64{1, 2}, fromResult([]any{int32(1), int64(2)}))
	assert.Nil(t, fromResult(nil))
}
