package license

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/wordsdk/wordsdk-go/domain/errors"
)

func TestRegistry_Register(t *testing.T) {
	var r Registry

	_, ok := r.Current()
	assert.False(t, ok)

	data := []byte("LICENSE-KEY")
	require.NoError(t, r.Register(data, "s3cret", ""))
	data[0] = 'X'

	l, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "LICENSE-KEY", string(l.Data))
	assert.Equal(t, "s3cret", l.Secret)

	l.Data[0] = 'Y'
	again, _ := r.Current()
	assert.Equal(t, "LICENSE-KEY", string(again.Data))

	r.Clear()
	_, ok = r.Current()
	assert.False(t, ok)
}

func TestRegistry_Register_Empty(t *testing.T) {
	var r Registry
	assert.ErrorIs(t, r.Register(nil, "", ""), ErrEmptyLicense)
}

func TestRegistry_RegisterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordsdk.lic")
	require.NoError(t, os.WriteFile(path, []byte("file-license"), 0o600))

	var r Registry
	require.NoError(t, r.RegisterFile(path, "pw"))

	l, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, path, l.Source)
	assert.Equal(t, "file-license", string(l.Data))
}

func TestRegistry_RegisterFile_Missing(t *testing.T) {
	var r Registry
	err := r.RegisterFile(filepath.Join(t.TempDir(), "none.lic"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sdkerrors.ErrIO))
}
